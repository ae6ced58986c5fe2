package scoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentryflow/pkg/featurestore"
	"sentryflow/shared/types"
)

type captureSink struct {
	ch chan types.AlertDecision
}

func (s *captureSink) Deliver(_ context.Context, alert types.AlertDecision) {
	s.ch <- alert
}

func waitForAlert(t *testing.T, ch chan types.AlertDecision) types.AlertDecision {
	t.Helper()
	select {
	case alert := <-ch:
		return alert
	case <-time.After(2 * time.Second):
		t.Fatal("no alert dispatched")
		return types.AlertDecision{}
	}
}

func TestRunOnceAlertsAboveThreshold(t *testing.T) {
	ctx := context.Background()
	store := featurestore.NewMemory()
	require.NoError(t, store.AtomicAdd(ctx,
		types.AggregationKey{DeviceID: "dev1", Window: "2025-01-01T00:08:00Z"},
		types.Delta{types.MetricConnCount: 3, types.MetricAlertCount: 2}))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"scores":[{"score":1.2345}]}`))
	}))
	defer server.Close()

	bus := NewBus(8)
	defer bus.Close()
	sink := &captureSink{ch: make(chan types.AlertDecision, 1)}
	bus.Register(sink)

	runner := NewRunner(store, NewOracleClient(server.URL), 1.0, 10, bus)
	runner.RunOnce(ctx, "2025-01-01T00:08:00Z")

	alert := waitForAlert(t, sink.ch)
	assert.Equal(t, "dev1", alert.DeviceID)
	assert.Equal(t, 1.2345, alert.Score)
	assert.Equal(t, "2025-01-01T00:08:00Z", alert.Window)
}

func TestRunOnceNoAlertBelowThreshold(t *testing.T) {
	ctx := context.Background()
	store := featurestore.NewMemory()
	require.NoError(t, store.AtomicAdd(ctx,
		types.AggregationKey{DeviceID: "dev1", Window: "2025-01-01T00:08:00Z"},
		types.Delta{types.MetricConnCount: 3}))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"scores":[{"score":1.2345}]}`))
	}))
	defer server.Close()

	bus := NewBus(8)
	defer bus.Close()
	sink := &captureSink{ch: make(chan types.AlertDecision, 1)}
	bus.Register(sink)

	runner := NewRunner(store, NewOracleClient(server.URL), 1.5, 10, bus)
	runner.RunOnce(ctx, "2025-01-01T00:08:00Z")

	select {
	case alert := <-sink.ch:
		t.Fatalf("unexpected alert for %s", alert.DeviceID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRunOnceOracleFailureIsolatedPerDevice(t *testing.T) {
	ctx := context.Background()
	store := featurestore.NewMemory()
	require.NoError(t, store.AtomicAdd(ctx,
		types.AggregationKey{DeviceID: "dev1", Window: "2025-01-01T00:08:00Z"},
		types.Delta{types.MetricConnCount: 1}))
	require.NoError(t, store.AtomicAdd(ctx,
		types.AggregationKey{DeviceID: "dev2", Window: "2025-01-01T00:08:00Z"},
		types.Delta{types.MetricConnCount: 100}))

	// Fail the first invocation, score the rest high.
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "throttled", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"scores":[{"score":2.0}]}`))
	}))
	defer server.Close()

	bus := NewBus(8)
	defer bus.Close()
	sink := &captureSink{ch: make(chan types.AlertDecision, 2)}
	bus.Register(sink)

	runner := NewRunner(store, NewOracleClient(server.URL), 1.0, 10, bus)
	runner.RunOnce(ctx, "2025-01-01T00:08:00Z")

	// Exactly one of the two devices scored and alerted.
	alert := waitForAlert(t, sink.ch)
	assert.Equal(t, 2.0, alert.Score)
	assert.Equal(t, 2, calls)
}

func TestRunOnceEmptyWindowIsQuiet(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()
	runner := NewRunner(featurestore.NewMemory(), NewOracleClient("http://127.0.0.1:1"), 1.0, 10, bus)
	runner.RunOnce(context.Background(), "2025-01-01T00:08:00Z")
}

func TestRunOnceUsesFallbackWindowInAlerts(t *testing.T) {
	ctx := context.Background()
	store := featurestore.NewMemory()
	require.NoError(t, store.AtomicAdd(ctx,
		types.AggregationKey{DeviceID: "dev1", Window: "2025-01-01T00:07:00Z"},
		types.Delta{types.MetricAlertCount: 5}))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"scores":[{"score":3.0}]}`))
	}))
	defer server.Close()

	bus := NewBus(8)
	defer bus.Close()
	sink := &captureSink{ch: make(chan types.AlertDecision, 1)}
	bus.Register(sink)

	runner := NewRunner(store, NewOracleClient(server.URL), 1.0, 10, bus)
	runner.RunOnce(ctx, "2025-01-01T00:10:00Z")

	alert := waitForAlert(t, sink.ch)
	// The alert label carries the substituted window, not the requested one.
	assert.Equal(t, "2025-01-01T00:07:00Z", alert.Window)
}
