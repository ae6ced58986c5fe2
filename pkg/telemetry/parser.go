// Package telemetry classifies and normalizes raw log messages into events.
//
// Two source schemas are supported: tab-delimited Zeek conn.log records and
// Suricata EVE JSON alerts. The schema is chosen by an explicit SourceKind
// passed by the caller, derived from where the batch originated.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sentryflow/shared/types"
)

// minConnFields is the minimum column count for a usable conn.log line
// (timestamp through resp_bytes).
const minConnFields = 10

// Suricata writes offsets without a colon, which RFC3339 rejects.
var alertTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999-0700",
	"2006-01-02T15:04:05-0700",
}

// ParseMessage normalizes one message into an Event. A nil Event with nil
// error means the message carries nothing aggregable (header line, short
// line, non-alert record) and is silently skipped. A non-nil error means
// the message is malformed; callers log it and move on, never aborting
// the batch.
func ParseMessage(msg string, kind types.SourceKind) (*types.Event, error) {
	switch kind {
	case types.SourceConn:
		return parseConn(msg)
	case types.SourceAlert:
		return parseAlert(msg)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

func parseConn(msg string) (*types.Event, error) {
	if !strings.Contains(msg, "\t") || strings.HasPrefix(msg, "#") {
		return nil, nil
	}
	parts := strings.Split(strings.TrimSpace(msg), "\t")
	if len(parts) < minConnFields {
		return nil, nil
	}
	ts, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("conn timestamp %q: %w", parts[0], err)
	}
	origBytes, err := byteCount(parts[8])
	if err != nil {
		return nil, fmt.Errorf("orig_bytes: %w", err)
	}
	respBytes, err := byteCount(parts[9])
	if err != nil {
		return nil, fmt.Errorf("resp_bytes: %w", err)
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return &types.Event{
		DeviceID:  parts[2],
		Timestamp: time.Unix(sec, nsec).UTC(),
		Source:    types.SourceConn,
		Metrics: map[string]float64{
			types.MetricConnCount:    1,
			types.MetricOrigBytesSum: origBytes,
			types.MetricRespBytesSum: respBytes,
		},
	}, nil
}

// byteCount parses a Zeek byte-count field, where "-" is the unset marker.
func byteCount(field string) (float64, error) {
	if field == "-" {
		return 0, nil
	}
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("byte count %q: %w", field, err)
	}
	return float64(n), nil
}

func parseAlert(msg string) (*types.Event, error) {
	if !strings.Contains(msg, "event_type") {
		return nil, nil
	}
	var rec struct {
		EventType string `json:"event_type"`
		SrcIP     string `json:"src_ip"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(msg), &rec); err != nil {
		return nil, fmt.Errorf("alert record: %w", err)
	}
	// Non-alert event types (flow, dns, ...) are expected traffic, not errors.
	if rec.EventType != "alert" {
		return nil, nil
	}
	if rec.SrcIP == "" || rec.Timestamp == "" {
		return nil, nil
	}
	ts, err := parseAlertTime(rec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("alert timestamp %q: %w", rec.Timestamp, err)
	}
	return &types.Event{
		DeviceID:  rec.SrcIP,
		Timestamp: ts.UTC(),
		Source:    types.SourceAlert,
		Metrics: map[string]float64{
			types.MetricAlertCount: 1,
		},
	}, nil
}

func parseAlertTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range alertTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ClassifyObjectKey maps a batch object key to the schema its messages use.
// The prefix convention comes from the collectors' upload layout.
func ClassifyObjectKey(key string) (types.SourceKind, bool) {
	switch {
	case strings.HasPrefix(key, "zeek-logs/"):
		return types.SourceConn, true
	case strings.HasPrefix(key, "suricata-logs/"):
		return types.SourceAlert, true
	default:
		return "", false
	}
}
