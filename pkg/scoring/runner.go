package scoring

import (
	"context"

	"sentryflow/shared/logging"
	"sentryflow/shared/types"
)

// Oracle scores one feature row. Satisfied by *OracleClient.
type Oracle interface {
	Score(ctx context.Context, row types.FeatureWindow) (float64, error)
}

// Runner executes one scoring pass per tick: resolve the target window,
// score every device row in it, and publish alert decisions. Failures are
// isolated per device; one unreachable oracle call never blocks the rest.
type Runner struct {
	store     Reader
	oracle    Oracle
	decider   Decider
	scanLimit int
	bus       *Bus
}

func NewRunner(store Reader, oracle Oracle, threshold float64, scanLimit int, bus *Bus) *Runner {
	return &Runner{
		store:     store,
		oracle:    oracle,
		decider:   Decider{Threshold: threshold},
		scanLimit: scanLimit,
		bus:       bus,
	}
}

// RunOnce scores the target window. An empty resolution is a normal
// outcome (too early, no data yet), not an error.
func (r *Runner) RunOnce(ctx context.Context, target string) {
	scRunsTotal.Inc()
	rows, resolved, err := ResolveWindow(ctx, r.store, target, r.scanLimit)
	if err != nil {
		logging.Errorf("scoring: window resolution failed: %v", err)
		return
	}
	if len(rows) == 0 {
		logging.Infof("scoring: no feature sets found for window %s", target)
		return
	}
	if resolved != target {
		scFallbacksTotal.Inc()
	}
	logging.Infof("scoring: %d feature sets in window %s", len(rows), resolved)

	for _, row := range rows {
		score, err := r.oracle.Score(ctx, row)
		if err != nil {
			scOracleErrors.Inc()
			logging.Errorf("scoring: oracle failed for device %s: %v", row.DeviceID, err)
			continue
		}
		scScoresTotal.Inc()
		logging.Infof("scoring: device %s window %s score %.4f", row.DeviceID, resolved, score)
		if alert := r.decider.Decide(row.DeviceID, resolved, score); alert != nil {
			scAlertsTotal.Inc()
			if err := r.bus.Publish(ctx, *alert); err != nil {
				logging.Errorf("scoring: alert publish failed for %s: %v", row.DeviceID, err)
			}
		}
	}
}
