// ingestd receives object-store delivery notifications, fetches the
// referenced log batch, and merges its windowed feature deltas into the
// feature store.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentryflow/pkg/featurestore"
	"sentryflow/pkg/ingest"
	"sentryflow/shared/config"
	"sentryflow/shared/logging"
)

func main() {
	ctx := context.Background()

	store, err := featurestore.OpenFromEnv(ctx)
	if err != nil {
		log.Fatalf("ingestd: open feature store: %v", err)
	}

	var fetcher ingest.Fetcher
	if dir := config.Get("BATCH_DIR", ""); dir != "" {
		fetcher = ingest.NewDirFetcher(dir)
	} else {
		fetcher = ingest.NewHTTPFetcher(config.Get("BATCH_BASE_URL", "http://localhost:9000"))
	}
	proc := ingest.NewProcessor(store, fetcher)

	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		n, err := ingest.DecodeNotification(body)
		if err != nil {
			logging.Errorf("ingestd: bad notification: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Batch fetch failure is the only whole-notification failure;
		// 502 lets the notifier redeliver.
		if err := proc.ProcessNotification(r.Context(), n); err != nil {
			logging.Errorf("ingestd: %v", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "processed"})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "ingestd"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := config.Get("INGEST_ADDR", ":8090")
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Infof("ingestd listening on %s", addr)
	log.Fatal(srv.ListenAndServe())
}
