// Package scheduler pre-warms the market cache for high-traffic sports on a
// fixed wall-clock schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/staktlabs/arb-finder-service/internal/models"
	"github.com/staktlabs/arb-finder-service/pkg/arbitrage"
)

// MarketFetcher is the cache-backed retrieval the warmer drives. Warming a
// sport is just fetching it: the read-through cache does the rest.
type MarketFetcher interface {
	FetchSports(ctx context.Context) ([]models.Sport, error)
	FetchOdds(ctx context.Context, sportKey, regions, markets string) ([]models.Event, error)
}

// OpportunityPublisher receives opportunities found during a warm-up pass
type OpportunityPublisher interface {
	PublishOpportunities(ctx context.Context, sportKey string, opportunities []models.ArbitrageOpportunity) error
}

// Config holds warm-up scheduler configuration
type Config struct {
	Schedule        string        // cron spec, e.g. "0 * * * *" for hourly
	PrioritySports  []string      // allow-list of market keys to keep warm
	Regions         string        // e.g. "us"
	Markets         string        // e.g. "h2h"
	Delay           time.Duration // pause between upstream calls, ~1s
	Bankroll        float64       // used when publishing found opportunities
	RoundingUnit    float64
	RequirePositive bool // drop opportunities whose rounded edge is not positive
}

// Warmer proactively populates the cache for priority markets, hourly and
// once at process start. Its fetches may race user-triggered fetches for
// the same key; both are safe because cache writes are idempotent
// overwrites.
type Warmer struct {
	fetcher   MarketFetcher
	engine    *arbitrage.Engine
	publisher OpportunityPublisher // optional
	config    Config
	cron      *cron.Cron
	startup   sync.WaitGroup
	logger    zerolog.Logger
}

// NewWarmer creates a new cache warmer. publisher may be nil, in which case
// warmed markets are not scanned for opportunities.
func NewWarmer(
	config Config,
	fetcher MarketFetcher,
	engine *arbitrage.Engine,
	publisher OpportunityPublisher,
	logger zerolog.Logger,
) *Warmer {
	if config.Schedule == "" {
		config.Schedule = "0 * * * *"
	}
	if config.Delay == 0 {
		config.Delay = time.Second
	}

	return &Warmer{
		fetcher:   fetcher,
		engine:    engine,
		publisher: publisher,
		config:    config,
		cron:      cron.New(),
		logger:    logger.With().Str("component", "cache_warmer").Logger(),
	}
}

// Start schedules the recurring warm-up and runs one pass immediately in
// the background
func (w *Warmer) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.config.Schedule, func() {
		w.WarmNow(ctx)
	}); err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info().
		Str("schedule", w.config.Schedule).
		Strs("priority_sports", w.config.PrioritySports).
		Msg("cache warmer started")

	w.startup.Add(1)
	go func() {
		defer w.startup.Done()
		w.WarmNow(ctx)
	}()

	return nil
}

// Stop halts the schedule and waits for running passes to finish, the
// startup pass included
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	w.startup.Wait()
	w.logger.Info().Msg("cache warmer stopped")
}

// WarmNow runs a single warm-up pass: fetch the catalog, intersect it with
// the priority allow-list, and fetch each active priority sport. A failed
// sport is logged and skipped; it never blocks warming of the rest.
func (w *Warmer) WarmNow(ctx context.Context) {
	w.logger.Info().Msg("starting cache warm-up pass")

	catalog, err := w.fetcher.FetchSports(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to fetch sports catalog, skipping pass")
		return
	}

	priority := make(map[string]bool, len(w.config.PrioritySports))
	for _, key := range w.config.PrioritySports {
		priority[key] = true
	}

	active := make([]models.Sport, 0, len(w.config.PrioritySports))
	for _, sport := range catalog {
		if priority[sport.Key] {
			active = append(active, sport)
		}
	}

	w.logger.Info().Int("active_count", len(active)).Msg("warming priority sports")

	warmed := 0
	for i, sport := range active {
		if err := w.warmSport(ctx, sport.Key); err != nil {
			w.logger.Error().Err(err).Str("sport_key", sport.Key).Msg("failed to warm sport")
		} else {
			warmed++
		}

		// Pause between upstream calls to respect the source's rate limits.
		if i < len(active)-1 {
			select {
			case <-ctx.Done():
				w.logger.Info().Msg("warm-up pass canceled")
				return
			case <-time.After(w.config.Delay):
			}
		}
	}

	w.logger.Info().
		Int("warmed_count", warmed).
		Int("failed_count", len(active)-warmed).
		Msg("cache warm-up pass complete")
}

func (w *Warmer) warmSport(ctx context.Context, sportKey string) error {
	events, err := w.fetcher.FetchOdds(ctx, sportKey, w.config.Regions, w.config.Markets)
	if err != nil {
		return err
	}

	w.logger.Info().Str("sport_key", sportKey).Int("event_count", len(events)).Msg("warmed sport")

	if w.publisher == nil {
		return nil
	}

	opportunities := w.engine.FindOpportunities(events, w.config.Bankroll, w.config.RoundingUnit, w.config.RequirePositive)
	if len(opportunities) == 0 {
		return nil
	}

	if err := w.publisher.PublishOpportunities(ctx, sportKey, opportunities); err != nil {
		// Alerting is best-effort; the cache is already warm.
		w.logger.Warn().Err(err).Str("sport_key", sportKey).Msg("failed to publish opportunities")
	}

	return nil
}
