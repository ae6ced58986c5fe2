package featurestore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"

	"sentryflow/shared/types"
)

// PostgresStore keeps one row per (device_id, window_ts) with a fixed column
// per metric. AtomicAdd is an additive upsert: the whole read-modify-write
// happens inside one statement, so concurrent mergers against the same key
// serialize at the row and never lose increments.
type PostgresStore struct {
	db    *sql.DB
	table string
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewPostgres wraps an existing connection pool. The table must already
// exist (see tools/cli/cmd/migrate-db).
func NewPostgres(db *sql.DB, table string) (*PostgresStore, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key types.AggregationKey) (*types.FeatureWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE device_id = $1 AND window_ts = $2`,
		strings.Join(types.FeatureColumns, ", "), s.table)
	row := s.db.QueryRowContext(ctx, query, key.DeviceID, key.Window)
	fw, err := scanRow(row, key.DeviceID, key.Window)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", key.DeviceID, key.Window, err)
	}
	return fw, nil
}

func (s *PostgresStore) AtomicAdd(ctx context.Context, key types.AggregationKey, deltas types.Delta) error {
	// Every metric column is written; absent deltas add zero, which leaves
	// the stored counter untouched.
	cols := make([]string, 0, len(types.FeatureColumns))
	placeholders := make([]string, 0, len(types.FeatureColumns))
	updates := make([]string, 0, len(types.FeatureColumns))
	args := []any{key.DeviceID, key.Window}
	for i, name := range types.FeatureColumns {
		cols = append(cols, name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+3))
		updates = append(updates, fmt.Sprintf("%s = %s.%s + EXCLUDED.%s", name, s.table, name, name))
		args = append(args, deltas[name])
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (device_id, window_ts, %s, updated_at)
		VALUES ($1, $2, %s, NOW())
		ON CONFLICT (device_id, window_ts)
		DO UPDATE SET %s, updated_at = NOW()`,
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		strings.Join(updates, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("atomic add %s/%s: %w", key.DeviceID, key.Window, err)
	}
	return nil
}

func (s *PostgresStore) QueryByWindow(ctx context.Context, window string) ([]types.FeatureWindow, error) {
	query := fmt.Sprintf(`SELECT device_id, %s FROM %s WHERE window_ts = $1`,
		strings.Join(types.FeatureColumns, ", "), s.table)
	rows, err := s.db.QueryContext(ctx, query, window)
	if err != nil {
		return nil, fmt.Errorf("query window %s: %w", window, err)
	}
	defer rows.Close()
	var out []types.FeatureWindow
	for rows.Next() {
		fw, err := scanDeviceRow(rows, window)
		if err != nil {
			return nil, err
		}
		out = append(out, *fw)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ScanRecent(ctx context.Context, limit int) ([]types.FeatureWindow, error) {
	query := fmt.Sprintf(`SELECT device_id, window_ts, %s FROM %s ORDER BY updated_at DESC LIMIT $1`,
		strings.Join(types.FeatureColumns, ", "), s.table)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("scan recent: %w", err)
	}
	defer rows.Close()
	var out []types.FeatureWindow
	for rows.Next() {
		var device, window string
		vals := make([]float64, len(types.FeatureColumns))
		dest := []any{&device, &window}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan recent row: %w", err)
		}
		out = append(out, types.FeatureWindow{DeviceID: device, Window: window, Metrics: metricsFromVals(vals)})
	}
	return out, rows.Err()
}

func scanRow(row *sql.Row, device, window string) (*types.FeatureWindow, error) {
	vals := make([]float64, len(types.FeatureColumns))
	dest := make([]any, len(vals))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &types.FeatureWindow{DeviceID: device, Window: window, Metrics: metricsFromVals(vals)}, nil
}

func scanDeviceRow(rows *sql.Rows, window string) (*types.FeatureWindow, error) {
	var device string
	vals := make([]float64, len(types.FeatureColumns))
	dest := []any{&device}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan window row: %w", err)
	}
	return &types.FeatureWindow{DeviceID: device, Window: window, Metrics: metricsFromVals(vals)}, nil
}

func metricsFromVals(vals []float64) map[string]float64 {
	metrics := make(map[string]float64, len(vals))
	for i, name := range types.FeatureColumns {
		metrics[name] = vals[i]
	}
	return metrics
}
