package ingest

import "github.com/prometheus/client_golang/prometheus"

var (
	igBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_ingest_batches_total",
		Help: "Log batches processed",
	})
	igDecodeEmpty = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_ingest_decode_empty_total",
		Help: "Batches that yielded zero messages in both decode modes",
	})
	igMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_ingest_messages_total",
		Help: "Messages extracted from batches",
	})
	igMessagesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_ingest_messages_skipped_total",
		Help: "Malformed messages skipped",
	})
	igMergesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_ingest_merges_total",
		Help: "Feature window keys merged into the store",
	})
	igMergeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_ingest_merge_errors_total",
		Help: "Feature window merges that failed",
	})
)

func init() {
	_ = prometheus.Register(igBatchesTotal)
	_ = prometheus.Register(igDecodeEmpty)
	_ = prometheus.Register(igMessagesTotal)
	_ = prometheus.Register(igMessagesSkipped)
	_ = prometheus.Register(igMergesTotal)
	_ = prometheus.Register(igMergeErrors)
}
