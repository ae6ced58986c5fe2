package scoring

import "github.com/prometheus/client_golang/prometheus"

var (
	scRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_scoring_runs_total",
		Help: "Scoring passes executed",
	})
	scFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_scoring_window_fallbacks_total",
		Help: "Scoring passes that substituted a fallback window",
	})
	scScoresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_scoring_scores_total",
		Help: "Device rows scored by the oracle",
	})
	scOracleErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_scoring_oracle_errors_total",
		Help: "Oracle invocations that failed",
	})
	scAlertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryflow_scoring_alerts_total",
		Help: "Alert decisions emitted",
	})
)

func init() {
	_ = prometheus.Register(scRunsTotal)
	_ = prometheus.Register(scFallbacksTotal)
	_ = prometheus.Register(scScoresTotal)
	_ = prometheus.Register(scOracleErrors)
	_ = prometheus.Register(scAlertsTotal)
}
