// scoringd periodically resolves the feature window from two minutes back,
// scores every device row against the anomaly oracle, and dispatches alert
// decisions above the threshold.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentryflow/pkg/featurestore"
	"sentryflow/pkg/scoring"
	"sentryflow/shared/config"
	"sentryflow/shared/logging"
)

func main() {
	ctx := context.Background()

	store, err := featurestore.OpenFromEnv(ctx)
	if err != nil {
		log.Fatalf("scoringd: open feature store: %v", err)
	}

	oracle := scoring.NewOracleClient(config.Get("ORACLE_URL", "http://localhost:8501/invocations"))
	threshold := config.GetFloat("ANOMALY_THRESHOLD", 1.0)
	scanLimit := config.GetInt("SCAN_LIMIT", 10)

	bus := scoring.NewBus(64)
	defer bus.Close()
	bus.Register(scoring.NewLogSink())
	if url := config.Get("ALERT_WEBHOOK_URL", ""); url != "" {
		bus.Register(scoring.NewWebhookSink(url))
	} else {
		logging.Warnf("scoringd: ALERT_WEBHOOK_URL not set, alerts go to logs only")
	}

	runner := scoring.NewRunner(store, oracle, threshold, scanLimit, bus)

	go serveOps(config.Get("SCORING_ADDR", ":8091"))

	interval := config.GetDuration("SCORE_INTERVAL", time.Minute)
	lag := config.GetDuration("SCORE_LAG", 2*time.Minute)
	logging.Infof("scoringd started: interval=%s lag=%s threshold=%.2f", interval, lag, threshold)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		runner.RunOnce(ctx, scoring.TargetWindow(time.Now(), lag))
		<-ticker.C
	}
}

func serveOps(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "scoringd"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Infof("scoringd ops listening on %s", addr)
	log.Fatal(srv.ListenAndServe())
}
