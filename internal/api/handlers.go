package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	solana "github.com/gagliardetto/solana-go"

	"github.com/agentalpha/signal-exchange/internal/chain"
	"github.com/agentalpha/signal-exchange/internal/database"
	"github.com/agentalpha/signal-exchange/internal/models"
	"github.com/agentalpha/signal-exchange/internal/payment"
	"github.com/agentalpha/signal-exchange/internal/redis"
	"github.com/agentalpha/signal-exchange/internal/reputation"
	"github.com/agentalpha/signal-exchange/internal/sighash"
	"github.com/agentalpha/signal-exchange/internal/store"
)

// Ledger is the slice of the on-chain client the handlers need.
type Ledger interface {
	CommitSignal(ctx context.Context, hash sighash.Hash) (solana.Signature, error)
	RevealSignal(ctx context.Context, s sighash.Signal) (solana.Signature, error)
}

// LifecycleProducer announces commit and reveal events downstream.
type LifecycleProducer interface {
	SignalCommitted(ctx context.Context, signalID, providerID, hash string)
	SignalRevealed(ctx context.Context, signalID, providerID string)
}

// OutcomeStore persists oracle evaluations.
type OutcomeStore interface {
	CreateSignalOutcome(ctx context.Context, o *models.Outcome) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store    *store.SignalStore
	dir      *chain.ProviderDirectory
	ledger   Ledger
	outcomes OutcomeStore
	tracker  *reputation.Tracker
	producer LifecycleProducer
	cache    *redis.Client
	db       *database.DB
	log      zerolog.Logger

	defaultPriceLamports uint64
	reputationTTL        time.Duration
}

// NewHandler creates a new Handler. producer, cache and db may be nil; the
// affected features degrade instead of failing.
func NewHandler(
	signals *store.SignalStore,
	dir *chain.ProviderDirectory,
	ledger Ledger,
	outcomes OutcomeStore,
	tracker *reputation.Tracker,
	producer LifecycleProducer,
	cache *redis.Client,
	db *database.DB,
	defaultPriceLamports uint64,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		store:                signals,
		dir:                  dir,
		ledger:               ledger,
		outcomes:             outcomes,
		tracker:              tracker,
		producer:             producer,
		cache:                cache,
		db:                   db,
		log:                  log.With().Str("component", "api").Logger(),
		defaultPriceLamports: defaultPriceLamports,
		reputationTTL:        30 * time.Second,
	}
}

// ListProviders handles GET /providers
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"providers":    h.dir.All(),
		"last_sync_at": h.dir.LastSyncAt().UTC().Format(time.RFC3339),
	})
}

// GetProvider handles GET /providers/{address}
func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookupProvider(mux.Vars(r)["address"])
	if !ok {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GetProviderReputation handles GET /providers/{address}/reputation
func (h *Handler) GetProviderReputation(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["address"]

	if h.cache != nil {
		if rep, err := h.cache.GetReputation(r.Context(), providerID); err == nil {
			respondJSON(w, http.StatusOK, rep)
			return
		}
	}

	rep, err := h.tracker.Reputation(r.Context(), providerID)
	if err != nil {
		h.log.Error().Err(err).Str("provider_id", providerID).Msg("reputation recompute failed")
		http.Error(w, "could not compute reputation", http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetReputation(r.Context(), rep, h.reputationTTL); err != nil {
			h.log.Debug().Err(err).Msg("reputation cache write failed")
		}
	}
	respondJSON(w, http.StatusOK, rep)
}

// signalView is the public shape of a stored signal. Content fields stay
// hidden until the signal is revealed and paid for.
type signalView struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
	Hash       string `json:"hash,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func publicView(e *store.Entry) signalView {
	return signalView{
		ID:         e.Signal.ID,
		ProviderID: e.Signal.ProviderID,
		Status:     e.Status,
		Hash:       e.Hash,
		CreatedAt:  e.Signal.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListSignals handles GET /signals
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List(r.URL.Query().Get("provider"))
	views := make([]signalView, 0, len(entries))
	for _, e := range entries {
		views = append(views, publicView(e))
	}
	respondJSON(w, http.StatusOK, views)
}

// GetSignal handles GET /signals/{id}
func (h *Handler) GetSignal(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "signal not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, publicView(entry))
}

type createSignalRequest struct {
	ProviderID     string  `json:"provider_id"`
	Token          string  `json:"token"`
	Direction      string  `json:"direction"`
	Confidence     uint8   `json:"confidence"`
	Entry          *string `json:"entry,omitempty"`
	TakeProfit     *string `json:"take_profit,omitempty"`
	StopLoss       *string `json:"stop_loss,omitempty"`
	TimeframeHours uint8   `json:"timeframe_hours"`
	Reason         string  `json:"reason,omitempty"`
}

// CreateSignal handles POST /signals
func (h *Handler) CreateSignal(w http.ResponseWriter, r *http.Request) {
	var req createSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProviderID == "" || req.Token == "" {
		http.Error(w, "provider_id and token are required", http.StatusBadRequest)
		return
	}
	if !models.ValidDirection(req.Direction) {
		http.Error(w, "direction must be BUY, SELL, HOLD or NEUTRAL", http.StatusBadRequest)
		return
	}
	if req.Confidence > 100 {
		http.Error(w, "confidence must be 0-100", http.StatusBadRequest)
		return
	}

	sig := models.Signal{
		ProviderID:     req.ProviderID,
		Token:          req.Token,
		Direction:      req.Direction,
		Confidence:     req.Confidence,
		TimeframeHours: req.TimeframeHours,
		Reason:         req.Reason,
	}
	var err error
	if sig.Entry, err = parsePrice(req.Entry); err != nil {
		http.Error(w, "invalid entry price", http.StatusBadRequest)
		return
	}
	if sig.TakeProfit, err = parsePrice(req.TakeProfit); err != nil {
		http.Error(w, "invalid take_profit price", http.StatusBadRequest)
		return
	}
	if sig.StopLoss, err = parsePrice(req.StopLoss); err != nil {
		http.Error(w, "invalid stop_loss price", http.StatusBadRequest)
		return
	}

	entry := h.store.Create(sig)
	respondJSON(w, http.StatusCreated, publicView(entry))
}

// DeleteSignal handles DELETE /signals/{id}
func (h *Handler) DeleteSignal(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "signal not found", http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidTransition):
		http.Error(w, "revealed signals cannot be deleted", http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// CommitSignal handles POST /signals/{id}/commit
func (h *Handler) CommitSignal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, err := h.store.Get(id)
	if err != nil {
		http.Error(w, "signal not found", http.StatusNotFound)
		return
	}

	input, err := entry.Signal.HashInput()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	hash, _ := sighash.Compute(input)

	txSig, err := h.ledger.CommitSignal(r.Context(), hash)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	if err := h.store.MarkCommitted(id, hash.String()); err != nil {
		h.log.Error().Err(err).Str("signal_id", id).Msg("commit landed on-chain but store transition failed")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if h.producer != nil {
		h.producer.SignalCommitted(r.Context(), id, entry.Signal.ProviderID, hash.String())
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"signal_id":   id,
		"hash":        hash.String(),
		"transaction": txSig.String(),
		"status":      store.StatusCommitted,
	})
}

// RevealSignal handles POST /signals/{id}/reveal
func (h *Handler) RevealSignal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, err := h.store.Get(id)
	if err != nil {
		http.Error(w, "signal not found", http.StatusNotFound)
		return
	}
	if entry.Status != store.StatusCommitted {
		http.Error(w, "signal is "+entry.Status+", only committed signals can be revealed", http.StatusConflict)
		return
	}

	input, err := entry.Signal.HashInput()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	txSig, err := h.ledger.RevealSignal(r.Context(), input)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	if err := h.store.MarkRevealed(id); err != nil {
		h.log.Error().Err(err).Str("signal_id", id).Msg("reveal landed on-chain but store transition failed")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if h.producer != nil {
		h.producer.SignalRevealed(r.Context(), id, entry.Signal.ProviderID)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"signal_id":   id,
		"transaction": txSig.String(),
		"status":      store.StatusRevealed,
	})
}

// GetSignalContent handles GET /signals/{id}/content. Routes wrap it in the
// payment middleware, so a request reaching here has paid.
func (h *Handler) GetSignalContent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if h.cache != nil {
		if entry, err := h.cache.GetSignalContent(r.Context(), id); err == nil {
			respondJSON(w, http.StatusOK, entry)
			return
		}
	}

	entry, err := h.store.Get(id)
	if err != nil {
		http.Error(w, "signal not found", http.StatusNotFound)
		return
	}
	if entry.Status != store.StatusRevealed {
		http.Error(w, "signal content is not revealed yet", http.StatusConflict)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetSignalContent(r.Context(), entry, 5*time.Minute); err != nil {
			h.log.Debug().Err(err).Msg("signal content cache write failed")
		}
	}
	if verified, ok := payment.FromContext(r.Context()); ok {
		h.log.Info().Str("signal_id", id).Str("proof", verified.Proof).Uint64("amount", verified.Amount).Msg("signal content released")
	}
	respondJSON(w, http.StatusOK, entry)
}

type outcomeWebhookRequest struct {
	SignalID      string  `json:"signal_id"`
	ProviderID    string  `json:"provider_id"`
	Direction     string  `json:"direction"`
	Confidence    uint8   `json:"confidence"`
	ReturnPercent float64 `json:"return_percent"`
	EvaluatedAt   string  `json:"evaluated_at,omitempty"`
}

// RecordOutcome handles POST /outcomes, the oracle webhook alternative to
// the Kafka feed.
func (h *Handler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SignalID == "" || req.ProviderID == "" {
		http.Error(w, "signal_id and provider_id are required", http.StatusBadRequest)
		return
	}

	correct, err := reputation.Evaluate(req.Direction, req.ReturnPercent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	evaluatedAt := time.Now()
	if req.EvaluatedAt != "" {
		if evaluatedAt, err = time.Parse(time.RFC3339, req.EvaluatedAt); err != nil {
			http.Error(w, "evaluated_at must be RFC3339", http.StatusBadRequest)
			return
		}
	}

	outcome := &models.Outcome{
		SignalID:      req.SignalID,
		ProviderID:    req.ProviderID,
		Direction:     req.Direction,
		Confidence:    req.Confidence,
		ReturnPercent: req.ReturnPercent,
		Correct:       correct,
		EvaluatedAt:   evaluatedAt,
	}
	if err := h.outcomes.CreateSignalOutcome(r.Context(), outcome); err != nil {
		if errors.Is(err, database.ErrOutcomeExists) {
			http.Error(w, "outcome already recorded for this signal", http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Str("signal_id", req.SignalID).Msg("outcome insert failed")
		http.Error(w, "could not store outcome", http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		if err := h.cache.InvalidateReputation(r.Context(), req.ProviderID); err != nil {
			h.log.Debug().Err(err).Msg("reputation cache invalidation failed")
		}
	}
	respondJSON(w, http.StatusCreated, outcome)
}

// SignalPrice resolves the lamport price for a content request from the
// provider's on-chain listing, falling back to the configured default.
func (h *Handler) SignalPrice(r *http.Request) (uint64, error) {
	entry, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		return 0, errors.New("signal not found")
	}
	if p, ok := h.lookupProvider(entry.Signal.ProviderID); ok && p.PriceLamports > 0 {
		return p.PriceLamports, nil
	}
	return h.defaultPriceLamports, nil
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.dir != nil {
		if h.dir.LastSyncAt().IsZero() {
			services["provider_sync"] = "no sync yet"
		} else {
			services["provider_sync"] = "last sync " + h.dir.LastSyncAt().UTC().Format(time.RFC3339)
		}
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

func (h *Handler) lookupProvider(address string) (*chain.Provider, bool) {
	for _, p := range h.dir.All() {
		if p.Address.String() == address || p.Authority.String() == address {
			return p, true
		}
	}
	return nil, false
}

// respondLedgerError maps chain sentinels onto HTTP statuses.
func (h *Handler) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chain.ErrDuplicateCommit):
		http.Error(w, "this signal hash is already committed", http.StatusConflict)
	case errors.Is(err, chain.ErrHashMismatch):
		http.Error(w, "revealed fields do not match the committed hash", http.StatusConflict)
	case errors.Is(err, chain.ErrAlreadyRevealed):
		http.Error(w, "signal is already revealed", http.StatusConflict)
	case errors.Is(err, chain.ErrCommitNotFound):
		http.Error(w, "no commit exists for this signal", http.StatusConflict)
	default:
		h.log.Error().Err(err).Msg("ledger operation failed")
		http.Error(w, "ledger operation failed", http.StatusBadGateway)
	}
}

func parsePrice(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
