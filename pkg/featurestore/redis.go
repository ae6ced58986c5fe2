package featurestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sentryflow/shared/types"
)

// RedisStore keeps each feature window in a hash and maintains two lookup
// structures: a per-window set of row members (the secondary index backing
// QueryByWindow) and a recency zset backing ScanRecent. HIncrByFloat gives
// the required native atomic add per metric.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis wraps an existing Redis client. prefix namespaces all keys so
// several tables can share one instance.
func NewRedis(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

const memberSep = "|"

func (s *RedisStore) rowKey(key types.AggregationKey) string {
	return s.prefix + ":row:" + key.DeviceID + memberSep + key.Window
}

func (s *RedisStore) windowKey(window string) string {
	return s.prefix + ":win:" + window
}

func (s *RedisStore) recentKey() string {
	return s.prefix + ":recent"
}

func (s *RedisStore) Get(ctx context.Context, key types.AggregationKey) (*types.FeatureWindow, error) {
	fields, err := s.rdb.HGetAll(ctx, s.rowKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.rowKey(key), err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return &types.FeatureWindow{
		DeviceID: key.DeviceID,
		Window:   key.Window,
		Metrics:  parseFields(fields),
	}, nil
}

func (s *RedisStore) AtomicAdd(ctx context.Context, key types.AggregationKey, deltas types.Delta) error {
	member := key.DeviceID + memberSep + key.Window
	pipe := s.rdb.TxPipeline()
	for name, v := range deltas {
		pipe.HIncrByFloat(ctx, s.rowKey(key), name, v)
	}
	pipe.SAdd(ctx, s.windowKey(key.Window), key.DeviceID)
	pipe.ZAdd(ctx, s.recentKey(), redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: member,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("atomic add %s: %w", member, err)
	}
	return nil
}

func (s *RedisStore) QueryByWindow(ctx context.Context, window string) ([]types.FeatureWindow, error) {
	devices, err := s.rdb.SMembers(ctx, s.windowKey(window)).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", s.windowKey(window), err)
	}
	out := make([]types.FeatureWindow, 0, len(devices))
	for _, device := range devices {
		key := types.AggregationKey{DeviceID: device, Window: window}
		row, err := s.Get(ctx, key)
		if err == ErrNotFound {
			continue // index entry without a row; nothing to score
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, nil
}

func (s *RedisStore) ScanRecent(ctx context.Context, limit int) ([]types.FeatureWindow, error) {
	members, err := s.rdb.ZRevRange(ctx, s.recentKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", s.recentKey(), err)
	}
	out := make([]types.FeatureWindow, 0, len(members))
	for _, member := range members {
		device, window, ok := strings.Cut(member, memberSep)
		if !ok {
			continue
		}
		row, err := s.Get(ctx, types.AggregationKey{DeviceID: device, Window: window})
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, nil
}

func parseFields(fields map[string]string) map[string]float64 {
	metrics := make(map[string]float64, len(fields))
	for name, raw := range fields {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			metrics[name] = v
		}
	}
	return metrics
}
