// Package ingest runs the ingestion path: fetch a delivered batch, decode
// it into messages, normalize events, bucket them into windows, and merge
// the resulting deltas into the feature store.
//
// Delivery is at-least-once and there is no per-event idempotency key: a
// redelivered batch is merged again and double-counts its metrics. This is
// a known limitation of the source telemetry, kept deliberately rather
// than papered over with a dedup layer the collectors cannot honor.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"sentryflow/pkg/framedec"
	"sentryflow/pkg/telemetry"
	"sentryflow/pkg/window"
	"sentryflow/shared/logging"
	"sentryflow/shared/types"
)

// previewLen bounds how much of a malformed message reaches the logs.
const previewLen = 150

// Notification mirrors the object-store event envelope posted when a new
// batch object lands.
type Notification struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// DecodeNotification parses a notification body.
func DecodeNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if len(n.Records) == 0 {
		return nil, fmt.Errorf("notification has no records")
	}
	return &n, nil
}

// Processor wires the ingestion path together around an injected store and
// batch source.
type Processor struct {
	store  Merger
	source Fetcher
}

// Merger is the slice of the feature store the ingestion path needs.
type Merger interface {
	AtomicAdd(ctx context.Context, key types.AggregationKey, deltas types.Delta) error
}

func NewProcessor(store Merger, source Fetcher) *Processor {
	return &Processor{store: store, source: source}
}

// ProcessNotification handles one delivery notification: the object key is
// URL-decoded (keys arrive percent-encoded with '+' for spaces) and each
// referenced object is processed independently.
func (p *Processor) ProcessNotification(ctx context.Context, n *Notification) error {
	for _, rec := range n.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			logging.Errorf("ingest: undecodable object key %q: %v", rec.S3.Object.Key, err)
			continue
		}
		if err := p.ProcessObject(ctx, rec.S3.Bucket.Name, key); err != nil {
			return err
		}
	}
	return nil
}

// ProcessObject runs the full pipeline for one batch object. Message-level
// and key-level failures are logged and skipped; only a failure to fetch
// the object itself is returned.
func (p *Processor) ProcessObject(ctx context.Context, bucket, key string) error {
	batchID := uuid.New().String()
	igBatchesTotal.Inc()
	logging.Infof("ingest[%s]: processing %s/%s", batchID, bucket, key)

	kind, ok := telemetry.ClassifyObjectKey(key)
	if !ok {
		logging.Warnf("ingest[%s]: object key %q matches no known source prefix, skipping", batchID, key)
		return nil
	}

	blob, err := p.source.Fetch(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("fetch batch %s/%s: %w", bucket, key, err)
	}

	msgs, mode := framedec.Decode(blob)
	if len(msgs) == 0 {
		if mode != framedec.ModeEmpty {
			igDecodeEmpty.Inc()
			logging.Errorf("ingest[%s]: batch %s decoded to zero messages (mode=%s, %d bytes)",
				batchID, key, mode, len(blob))
		}
		return nil
	}
	igMessagesTotal.Add(float64(len(msgs)))
	logging.Infof("ingest[%s]: %d messages (mode=%s)", batchID, len(msgs), mode)

	events := make([]types.Event, 0, len(msgs))
	skipped := 0
	for _, msg := range msgs {
		evt, err := telemetry.ParseMessage(msg, kind)
		if err != nil {
			skipped++
			igMessagesSkipped.Inc()
			logging.Warnf("ingest[%s]: skipping malformed message: %s... error: %v",
				batchID, preview(msg), err)
			continue
		}
		if evt == nil {
			continue
		}
		events = append(events, *evt)
	}

	deltas := window.Aggregate(events)
	merged := 0
	for k, d := range deltas {
		if err := p.store.AtomicAdd(ctx, k, d); err != nil {
			igMergeErrors.Inc()
			logging.Errorf("ingest[%s]: merge failed for %s@%s: %v", batchID, k.DeviceID, k.Window, err)
			continue
		}
		igMergesTotal.Inc()
		merged++
	}
	logging.Infof("ingest[%s]: %d events from %d messages (%d skipped), %d/%d keys merged",
		batchID, len(events), len(msgs), skipped, merged, len(deltas))
	return nil
}

func preview(msg string) string {
	if len(msg) > previewLen {
		return msg[:previewLen]
	}
	return msg
}
