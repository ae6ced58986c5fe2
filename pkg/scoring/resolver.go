// Package scoring runs the scheduled scoring path: resolve a feature
// window, score each device's vector against the anomaly oracle, and
// dispatch alert decisions for scores above the threshold.
package scoring

import (
	"context"
	"fmt"
	"time"

	"sentryflow/pkg/window"
	"sentryflow/shared/logging"
	"sentryflow/shared/types"
)

// TargetWindow returns the window identifier to score at an instant: lag
// in the past, truncated to the minute, so the aggregation window has had
// time to close.
func TargetWindow(now time.Time, lag time.Duration) string {
	return window.Start(now.Add(-lag))
}

// Reader is the slice of the feature store the scoring path needs.
type Reader interface {
	QueryByWindow(ctx context.Context, window string) ([]types.FeatureWindow, error)
	ScanRecent(ctx context.Context, limit int) ([]types.FeatureWindow, error)
}

// ResolveWindow fetches every device row for target. When the target has
// no rows yet it falls back to the newest window found in a bounded recent
// scan and re-queries with that. The substitution crosses devices and time
// windows, which is intentional, documented behavior; the returned window
// string is the one actually resolved so callers can label alerts with it.
// No rows anywhere is a normal empty result, not an error.
func ResolveWindow(ctx context.Context, store Reader, target string, scanLimit int) ([]types.FeatureWindow, string, error) {
	rows, err := store.QueryByWindow(ctx, target)
	if err != nil {
		return nil, "", fmt.Errorf("query window %s: %w", target, err)
	}
	if len(rows) > 0 {
		return rows, target, nil
	}

	logging.Warnf("scoring: no feature sets for window %s, falling back to most recent", target)
	recent, err := store.ScanRecent(ctx, scanLimit)
	if err != nil {
		return nil, "", fmt.Errorf("fallback scan: %w", err)
	}
	best := ""
	for _, row := range recent {
		if row.Window > best {
			best = row.Window
		}
	}
	if best == "" {
		return nil, "", nil
	}

	logging.Warnf("scoring: substituting window %s for requested %s", best, target)
	rows, err = store.QueryByWindow(ctx, best)
	if err != nil {
		return nil, "", fmt.Errorf("query fallback window %s: %w", best, err)
	}
	return rows, best, nil
}
