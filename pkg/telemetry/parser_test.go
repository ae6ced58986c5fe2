package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentryflow/shared/types"
)

func connLine(fields ...string) string {
	return strings.Join(fields, "\t")
}

func TestParseConnRecord(t *testing.T) {
	line := connLine("1700000000.0", "Cuid1", "dev1", "10.0.0.2", "443", "tcp", "ssl", "1.5", "512", "1024")
	evt, err := ParseMessage(line, types.SourceConn)
	require.NoError(t, err)
	require.NotNil(t, evt)

	assert.Equal(t, "dev1", evt.DeviceID)
	assert.Equal(t, types.SourceConn, evt.Source)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), evt.Timestamp)
	assert.Equal(t, 1.0, evt.Metrics[types.MetricConnCount])
	assert.Equal(t, 512.0, evt.Metrics[types.MetricOrigBytesSum])
	assert.Equal(t, 1024.0, evt.Metrics[types.MetricRespBytesSum])
}

func TestParseConnDashBytesMeanZero(t *testing.T) {
	line := connLine("1700000000.0", "Cuid1", "dev1", "10.0.0.2", "443", "tcp", "ssl", "1.5", "-", "-")
	evt, err := ParseMessage(line, types.SourceConn)
	require.NoError(t, err)
	require.NotNil(t, evt)
	assert.Equal(t, 0.0, evt.Metrics[types.MetricOrigBytesSum])
	assert.Equal(t, 0.0, evt.Metrics[types.MetricRespBytesSum])
	assert.Equal(t, 1.0, evt.Metrics[types.MetricConnCount])
}

func TestParseConnHeaderSkipped(t *testing.T) {
	evt, err := ParseMessage("#fields\tts\tuid\tid.orig_h", types.SourceConn)
	assert.NoError(t, err)
	assert.Nil(t, evt)
}

func TestParseConnShortLineSkipped(t *testing.T) {
	evt, err := ParseMessage(connLine("1700000000.0", "Cuid1", "dev1", "512", "1024"), types.SourceConn)
	assert.NoError(t, err)
	assert.Nil(t, evt)
}

func TestParseConnNoTabSkipped(t *testing.T) {
	evt, err := ParseMessage("plain text without tabs", types.SourceConn)
	assert.NoError(t, err)
	assert.Nil(t, evt)
}

func TestParseConnBadByteCount(t *testing.T) {
	line := connLine("1700000000.0", "Cuid1", "dev1", "10.0.0.2", "443", "tcp", "ssl", "1.5", "oops", "1024")
	evt, err := ParseMessage(line, types.SourceConn)
	assert.Error(t, err)
	assert.Nil(t, evt)
}

func TestParseConnBadTimestamp(t *testing.T) {
	line := connLine("yesterday", "Cuid1", "dev1", "10.0.0.2", "443", "tcp", "ssl", "1.5", "512", "1024")
	evt, err := ParseMessage(line, types.SourceConn)
	assert.Error(t, err)
	assert.Nil(t, evt)
}

func TestParseAlertRecord(t *testing.T) {
	msg := `{"event_type":"alert","src_ip":"dev2","timestamp":"2025-01-01T00:00:30Z"}`
	evt, err := ParseMessage(msg, types.SourceAlert)
	require.NoError(t, err)
	require.NotNil(t, evt)
	assert.Equal(t, "dev2", evt.DeviceID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 30, 0, time.UTC), evt.Timestamp)
	assert.Equal(t, 1.0, evt.Metrics[types.MetricAlertCount])
}

func TestParseAlertSuricataOffset(t *testing.T) {
	// Suricata writes offsets without a colon.
	msg := `{"event_type":"alert","src_ip":"dev2","timestamp":"2025-01-01T07:00:30.123456+0700"}`
	evt, err := ParseMessage(msg, types.SourceAlert)
	require.NoError(t, err)
	require.NotNil(t, evt)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 30, 123456000, time.UTC), evt.Timestamp)
}

func TestParseAlertNonAlertIgnored(t *testing.T) {
	msg := `{"event_type":"flow","src_ip":"dev2","timestamp":"2025-01-01T00:00:30Z"}`
	evt, err := ParseMessage(msg, types.SourceAlert)
	assert.NoError(t, err)
	assert.Nil(t, evt)
}

func TestParseAlertMissingFieldsSkipped(t *testing.T) {
	evt, err := ParseMessage(`{"event_type":"alert","timestamp":"2025-01-01T00:00:30Z"}`, types.SourceAlert)
	assert.NoError(t, err)
	assert.Nil(t, evt)

	evt, err = ParseMessage(`{"event_type":"alert","src_ip":"dev2"}`, types.SourceAlert)
	assert.NoError(t, err)
	assert.Nil(t, evt)
}

func TestParseAlertBadJSON(t *testing.T) {
	evt, err := ParseMessage(`{"event_type":"alert",`, types.SourceAlert)
	assert.Error(t, err)
	assert.Nil(t, evt)
}

func TestParseAlertBadTimestamp(t *testing.T) {
	msg := `{"event_type":"alert","src_ip":"dev2","timestamp":"not a time"}`
	evt, err := ParseMessage(msg, types.SourceAlert)
	assert.Error(t, err)
	assert.Nil(t, evt)
}

func TestClassifyObjectKey(t *testing.T) {
	kind, ok := ClassifyObjectKey("zeek-logs/2025/01/batch.log")
	assert.True(t, ok)
	assert.Equal(t, types.SourceConn, kind)

	kind, ok = ClassifyObjectKey("suricata-logs/eve.json")
	assert.True(t, ok)
	assert.Equal(t, types.SourceAlert, kind)

	_, ok = ClassifyObjectKey("other/eve.json")
	assert.False(t, ok)
}
