package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentalpha/signal-exchange/internal/payment"
)

// SetupRoutes configures all API routes. The content endpoint sits behind
// the payment gate; everything else is free.
func SetupRoutes(handler *Handler, verifier *payment.Verifier) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Provider routes (read-only, served from the sync cache)
	api.HandleFunc("/providers", handler.ListProviders).Methods("GET")
	api.HandleFunc("/providers/{address}", handler.GetProvider).Methods("GET")
	api.HandleFunc("/providers/{address}/reputation", handler.GetProviderReputation).Methods("GET")

	// Signal lifecycle routes
	api.HandleFunc("/signals", handler.ListSignals).Methods("GET")
	api.HandleFunc("/signals", handler.CreateSignal).Methods("POST")
	api.HandleFunc("/signals/{id}", handler.GetSignal).Methods("GET")
	api.HandleFunc("/signals/{id}", handler.DeleteSignal).Methods("DELETE")
	api.HandleFunc("/signals/{id}/commit", handler.CommitSignal).Methods("POST")
	api.HandleFunc("/signals/{id}/reveal", handler.RevealSignal).Methods("POST")

	// Paid content
	gate := verifier.Middleware(handler.SignalPrice)
	api.Handle("/signals/{id}/content", gate(http.HandlerFunc(handler.GetSignalContent))).Methods("GET")

	// Oracle webhook
	api.HandleFunc("/outcomes", handler.RecordOutcome).Methods("POST")

	return r
}
