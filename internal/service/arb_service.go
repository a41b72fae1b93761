package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/staktlabs/arb-finder-service/internal/models"
	"github.com/staktlabs/arb-finder-service/pkg/arbitrage"
)

var opportunitiesFound = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "arb_finder_opportunities_found_total",
	Help: "Number of arbitrage opportunities found, by sport.",
}, []string{"sport_key"})

// OpportunityRequest describes one sport's arbitrage scan
type OpportunityRequest struct {
	SportKey               string
	Regions                string
	Markets                string
	Bankroll               float64
	RoundingUnit           float64
	RequirePositiveRounded bool
}

// ArbService orchestrates cached market retrieval and arbitrage computation
type ArbService struct {
	fetcher MarketFetcher
	engine  *arbitrage.Engine
	logger  zerolog.Logger
}

// NewArbService creates a new arbitrage service
func NewArbService(fetcher MarketFetcher, engine *arbitrage.Engine, logger zerolog.Logger) *ArbService {
	return &ArbService{
		fetcher: fetcher,
		engine:  engine,
		logger:  logger.With().Str("component", "arb_service").Logger(),
	}
}

// GetSports returns the upstream market catalog
func (s *ArbService) GetSports(ctx context.Context) ([]models.Sport, error) {
	sports, err := s.fetcher.FetchSports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sports catalog: %w", err)
	}
	return sports, nil
}

// GetOdds returns the raw event list for one sport
func (s *ArbService) GetOdds(ctx context.Context, sportKey, regions, markets string) ([]models.Event, error) {
	events, err := s.fetcher.FetchOdds(ctx, sportKey, regions, markets)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for %s: %w", sportKey, err)
	}
	return events, nil
}

// GetOpportunities fetches one sport's events and returns its arbitrage
// opportunities sorted descending by rounded edge percent, with the bankroll
// and rounding unit echoed back. An upstream failure is a hard error for the
// sport; a market without opportunities is a normal empty result.
func (s *ArbService) GetOpportunities(ctx context.Context, req OpportunityRequest) (*models.ArbitrageScanResult, error) {
	events, err := s.fetcher.FetchOdds(ctx, req.SportKey, req.Regions, req.Markets)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for %s: %w", req.SportKey, err)
	}

	opportunities := s.engine.FindOpportunities(events, req.Bankroll, req.RoundingUnit, req.RequirePositiveRounded)
	opportunitiesFound.WithLabelValues(req.SportKey).Add(float64(len(opportunities)))

	s.logger.Info().
		Str("sport_key", req.SportKey).
		Int("event_count", len(events)).
		Int("opportunity_count", len(opportunities)).
		Msg("computed arbitrage opportunities")

	return &models.ArbitrageScanResult{
		SportKey:      req.SportKey,
		Count:         len(opportunities),
		Opportunities: opportunities,
		RoundingUnit:  req.RoundingUnit,
		Bankroll:      req.Bankroll,
	}, nil
}

// ScanSports runs GetOpportunities for several sports concurrently. Sports
// fail independently: a failed fetch is logged and contributes an empty
// result instead of failing the aggregate. Results come back in the order
// the sports were requested.
func (s *ArbService) ScanSports(ctx context.Context, sportKeys []string, req OpportunityRequest) []models.ArbitrageScanResult {
	results := make([]models.ArbitrageScanResult, len(sportKeys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range sportKeys {
		sportReq := req
		sportReq.SportKey = key
		g.Go(func() error {
			result, err := s.GetOpportunities(gctx, sportReq)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("sport_key", sportReq.SportKey).
					Msg("sport scan failed, returning empty result")
				results[i] = models.ArbitrageScanResult{
					SportKey:      sportReq.SportKey,
					Opportunities: []models.ArbitrageOpportunity{},
					RoundingUnit:  sportReq.RoundingUnit,
					Bankroll:      sportReq.Bankroll,
				}
				return nil
			}
			results[i] = *result
			return nil
		})
	}

	// Workers never return errors; per-sport failures are isolated above.
	_ = g.Wait()

	return results
}
