package featurestore

import (
	"context"
	"sync"

	"sentryflow/shared/types"
)

// Memory is a mutex-guarded in-process Store used in tests and local runs.
type Memory struct {
	mu     sync.Mutex
	rows   map[types.AggregationKey]map[string]float64
	recent []types.AggregationKey // oldest first, one entry per key
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[types.AggregationKey]map[string]float64)}
}

func (m *Memory) Get(_ context.Context, key types.AggregationKey) (*types.FeatureWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &types.FeatureWindow{DeviceID: key.DeviceID, Window: key.Window, Metrics: copyMetrics(row)}, nil
}

func (m *Memory) AtomicAdd(_ context.Context, key types.AggregationKey, deltas types.Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok {
		row = make(map[string]float64, len(deltas))
		m.rows[key] = row
	}
	for name, v := range deltas {
		row[name] += v
	}
	m.touch(key)
	return nil
}

func (m *Memory) QueryByWindow(_ context.Context, window string) ([]types.FeatureWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.FeatureWindow
	for key, row := range m.rows {
		if key.Window == window {
			out = append(out, types.FeatureWindow{DeviceID: key.DeviceID, Window: key.Window, Metrics: copyMetrics(row)})
		}
	}
	return out, nil
}

func (m *Memory) ScanRecent(_ context.Context, limit int) ([]types.FeatureWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.FeatureWindow
	for i := len(m.recent) - 1; i >= 0 && len(out) < limit; i-- {
		key := m.recent[i]
		out = append(out, types.FeatureWindow{DeviceID: key.DeviceID, Window: key.Window, Metrics: copyMetrics(m.rows[key])})
	}
	return out, nil
}

// touch moves key to the most-recent end of the recency list.
func (m *Memory) touch(key types.AggregationKey) {
	for i, k := range m.recent {
		if k == key {
			m.recent = append(m.recent[:i], m.recent[i+1:]...)
			break
		}
	}
	m.recent = append(m.recent, key)
}

func copyMetrics(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
