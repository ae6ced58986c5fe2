package types

import "time"

// SourceKind tags which telemetry schema a message came from. The tag is
// derived from where the batch originated, never sniffed from content.
type SourceKind string

const (
    SourceConn  SourceKind = "conn"
    SourceAlert SourceKind = "alert"
)

// Metric names stored per feature window. The parser only ever emits the
// counters carried by the source logs; the remaining columns exist so the
// scoring vector keeps a stable shape and default to zero.
const (
    MetricOrigBytesSum    = "orig_bytes_sum"
    MetricRespBytesSum    = "resp_bytes_sum"
    MetricOrigPktsSum     = "orig_pkts_sum"
    MetricRespPktsSum     = "resp_pkts_sum"
    MetricDurationMean    = "duration_mean"
    MetricUniqueDestIPs   = "unique_dest_ips"
    MetricUniqueDestPorts = "unique_dest_ports"
    MetricConnCount       = "conn_count"
    MetricAlertCount      = "alert_count"
    MetricUniqueAlertSigs = "unique_alert_signatures"
)

// FeatureColumns is the fixed feature order the scoring oracle expects.
var FeatureColumns = []string{
    MetricOrigBytesSum,
    MetricRespBytesSum,
    MetricOrigPktsSum,
    MetricRespPktsSum,
    MetricDurationMean,
    MetricUniqueDestIPs,
    MetricUniqueDestPorts,
    MetricConnCount,
    MetricAlertCount,
    MetricUniqueAlertSigs,
}

// Event is one normalized telemetry record produced by the parser.
type Event struct {
    DeviceID  string
    Timestamp time.Time
    Source    SourceKind
    Metrics   map[string]float64
}

// AggregationKey identifies one device's fixed one-minute window. Window is
// the minute-truncated UTC timestamp rendered as 2006-01-02T15:04:00Z, so
// string ordering matches temporal ordering.
type AggregationKey struct {
    DeviceID string
    Window   string
}

// Delta accumulates metric increments for one key within a batch.
type Delta map[string]float64

// FeatureWindow is the persistent per-key counter row.
type FeatureWindow struct {
    DeviceID string
    Window   string
    Metrics  map[string]float64
}

// AlertDecision is emitted when a device's anomaly score exceeds the
// configured threshold.
type AlertDecision struct {
    DeviceID string
    Score    float64
    Window   string
}
