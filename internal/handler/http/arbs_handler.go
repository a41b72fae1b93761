package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/staktlabs/arb-finder-service/internal/service"
)

// ArbsHandler handles HTTP requests for market data and arbitrage
// opportunities
type ArbsHandler struct {
	service         *service.ArbService
	logger          zerolog.Logger
	bankroll        float64
	roundingUnit    float64
	requirePositive bool
}

// NewArbsHandler creates a new arbs HTTP handler. Bankroll, rounding unit
// and the positive-rounded-edge filter are the defaults applied when the
// request omits the corresponding parameters.
func NewArbsHandler(service *service.ArbService, bankroll, roundingUnit float64, requirePositive bool, logger zerolog.Logger) *ArbsHandler {
	if bankroll < 1 {
		bankroll = 100
	}
	if roundingUnit < 1 {
		roundingUnit = 1
	}
	return &ArbsHandler{
		service:         service,
		logger:          logger.With().Str("component", "arbs_handler").Logger(),
		bankroll:        bankroll,
		roundingUnit:    roundingUnit,
		requirePositive: requirePositive,
	}
}

// RegisterRoutes registers market and arbitrage routes with the router
func (h *ArbsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sports", h.handleGetSports)
	r.Get("/odds", h.handleGetOdds)
	r.Get("/arbs", h.handleGetArbs)
	r.Get("/arbs/scan", h.handleScanArbs)
}

// handleGetSports handles GET /api/v1/sports
func (h *ArbsHandler) handleGetSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.service.GetSports(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to retrieve sports catalog")
		h.errorResponse(w, http.StatusBadGateway, "failed to retrieve sports catalog")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"count":  len(sports),
		"sports": sports,
	})
}

// handleGetOdds handles GET /api/v1/odds?sport=...&regions=...&markets=...
func (h *ArbsHandler) handleGetOdds(w http.ResponseWriter, r *http.Request) {
	sportKey := r.URL.Query().Get("sport")
	if sportKey == "" {
		h.errorResponse(w, http.StatusBadRequest, "sport query parameter is required")
		return
	}

	regions := queryDefault(r, "regions", "us")
	markets := queryDefault(r, "markets", "h2h")

	events, err := h.service.GetOdds(r.Context(), sportKey, regions, markets)
	if err != nil {
		h.logger.Error().Err(err).Str("sport_key", sportKey).Msg("Failed to retrieve odds")
		h.errorResponse(w, http.StatusBadGateway, "failed to retrieve odds")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"sport_key": sportKey,
		"count":     len(events),
		"events":    events,
	})
}

// handleGetArbs handles GET /api/v1/arbs?sport=...&bankroll=...&rounding_unit=...
func (h *ArbsHandler) handleGetArbs(w http.ResponseWriter, r *http.Request) {
	sportKey := r.URL.Query().Get("sport")
	if sportKey == "" {
		h.errorResponse(w, http.StatusBadRequest, "sport query parameter is required")
		return
	}

	req := h.opportunityRequest(r)
	req.SportKey = sportKey

	result, err := h.service.GetOpportunities(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Str("sport_key", sportKey).Msg("Failed to compute opportunities")
		h.errorResponse(w, http.StatusBadGateway, "failed to compute opportunities")
		return
	}

	h.jsonResponse(w, http.StatusOK, result)
}

// handleScanArbs handles GET /api/v1/arbs/scan?sports=key1,key2,...
func (h *ArbsHandler) handleScanArbs(w http.ResponseWriter, r *http.Request) {
	sportsParam := r.URL.Query().Get("sports")
	if sportsParam == "" {
		h.errorResponse(w, http.StatusBadRequest, "sports query parameter is required")
		return
	}

	var sportKeys []string
	for _, key := range strings.Split(sportsParam, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			sportKeys = append(sportKeys, key)
		}
	}
	if len(sportKeys) == 0 {
		h.errorResponse(w, http.StatusBadRequest, "sports query parameter is required")
		return
	}

	results := h.service.ScanSports(r.Context(), sportKeys, h.opportunityRequest(r))

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}

// opportunityRequest builds the computation parameters from query
// values, coercing bankroll and rounding unit to at least 1.
func (h *ArbsHandler) opportunityRequest(r *http.Request) service.OpportunityRequest {
	bankroll := queryFloat(r, "bankroll", h.bankroll)
	if bankroll < 1 {
		bankroll = 1
	}
	roundingUnit := queryFloat(r, "rounding_unit", h.roundingUnit)
	if roundingUnit < 1 {
		roundingUnit = 1
	}

	requirePositive := h.requirePositive
	if raw := r.URL.Query().Get("require_positive"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			requirePositive = parsed
		}
	}

	return service.OpportunityRequest{
		Regions:                queryDefault(r, "regions", "us"),
		Markets:                queryDefault(r, "markets", "h2h"),
		Bankroll:               bankroll,
		RoundingUnit:           roundingUnit,
		RequirePositiveRounded: requirePositive,
	}
}

func queryDefault(r *http.Request, key, fallback string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return fallback
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

// jsonResponse writes a JSON response
func (h *ArbsHandler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// errorResponse writes a JSON error response
func (h *ArbsHandler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
