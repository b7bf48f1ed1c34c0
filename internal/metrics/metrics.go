// Package metrics registers the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signals_committed_total", Help: "Signal hashes committed on-chain"},
	)
	SignalsRevealed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signals_revealed_total", Help: "Signals revealed on-chain"},
	)
	PaymentDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "payment_decisions_total", Help: "Payment gate verdicts"},
		[]string{"result"},
	)
	ProviderSyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_sync_runs_total", Help: "Background provider sync cycles"},
		[]string{"result"},
	)
	OutcomesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signal_outcomes_recorded_total", Help: "Oracle outcomes ingested"},
	)
)

func init() {
	prometheus.MustRegister(SignalsCommitted, SignalsRevealed, PaymentDecisions, ProviderSyncRuns, OutcomesRecorded)
}

// Serve exposes /metrics on its own listener and returns the server for
// shutdown.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
