package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/staktlabs/arb-finder-service/internal/auth"
	"github.com/staktlabs/arb-finder-service/internal/models"
)

// BetRepository persists per-user bet lists.
type BetRepository interface {
	GetBets(ctx context.Context, subject string) ([]models.Bet, time.Time, error)
	ReplaceBets(ctx context.Context, subject string, bets []models.Bet) (time.Time, error)
}

// BetsHandler handles HTTP requests for bet tracking
type BetsHandler struct {
	store  BetRepository
	logger zerolog.Logger
}

// NewBetsHandler creates a new bets HTTP handler. A nil store leaves
// the routes registered but answering 503, so deployments without
// Postgres still expose a consistent API surface.
func NewBetsHandler(store BetRepository, logger zerolog.Logger) *BetsHandler {
	return &BetsHandler{
		store:  store,
		logger: logger.With().Str("component", "bets_handler").Logger(),
	}
}

// RegisterRoutes registers bet routes with the router
func (h *BetsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/bets", h.handleGetBets)
	r.Put("/bets", h.handlePutBets)
}

// handleGetBets handles GET /api/v1/bets
func (h *BetsHandler) handleGetBets(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.requireSubject(w, r)
	if !ok {
		return
	}

	bets, updatedAt, err := h.store.GetBets(r.Context(), subject)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load bets")
		h.errorResponse(w, http.StatusInternalServerError, "failed to load bets")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"count":      len(bets),
		"bets":       bets,
		"updated_at": updatedAt,
	})
}

// handlePutBets handles PUT /api/v1/bets, replacing the caller's list
func (h *BetsHandler) handlePutBets(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.requireSubject(w, r)
	if !ok {
		return
	}

	var payload struct {
		Bets []models.Bet `json:"bets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updatedAt, err := h.store.ReplaceBets(r.Context(), subject, payload.Bets)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to store bets")
		h.errorResponse(w, http.StatusInternalServerError, "failed to store bets")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"count":      len(payload.Bets),
		"updated_at": updatedAt,
	})
}

// requireSubject resolves the authenticated subject and reports the
// failure modes: unconfigured storage and missing authentication.
func (h *BetsHandler) requireSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.store == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "bet storage not configured")
		return "", false
	}
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		h.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return subject, true
}

// jsonResponse writes a JSON response
func (h *BetsHandler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// errorResponse writes a JSON error response
func (h *BetsHandler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
