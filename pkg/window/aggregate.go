// Package window buckets events into fixed one-minute windows per device.
package window

import (
	"time"

	"sentryflow/shared/types"
)

// startLayout renders the enclosing minute with seconds forced to zero.
const startLayout = "2006-01-02T15:04:00Z"

// Start returns the canonical window identifier for an instant: the UTC
// minute containing it. Two timestamps in the same minute always render
// the same string regardless of sub-minute offset.
func Start(t time.Time) string {
	return t.UTC().Format(startLayout)
}

// Key returns the aggregation key an event folds into.
func Key(e types.Event) types.AggregationKey {
	return types.AggregationKey{DeviceID: e.DeviceID, Window: Start(e.Timestamp)}
}

// Aggregate folds a batch of events into per-key metric deltas. The fold is
// a pure single pass; per-key sums are independent of event order, and keys
// with no events never appear.
func Aggregate(events []types.Event) map[types.AggregationKey]types.Delta {
	out := make(map[types.AggregationKey]types.Delta)
	for _, e := range events {
		k := Key(e)
		d, ok := out[k]
		if !ok {
			d = make(types.Delta)
			out[k] = d
		}
		for name, v := range e.Metrics {
			d[name] += v
		}
	}
	return out
}
