package scoring

import "sentryflow/shared/types"

// Decider applies the threshold decision to an anomaly score. The compare
// is strict: a score exactly at the threshold does not alert.
type Decider struct {
	Threshold float64
}

// Decide returns an alert decision when score exceeds the threshold, else
// nil.
func (d Decider) Decide(deviceID, window string, score float64) *types.AlertDecision {
	if score > d.Threshold {
		return &types.AlertDecision{DeviceID: deviceID, Score: score, Window: window}
	}
	return nil
}
