// Package fetcher shields the rate-limited upstream source behind a
// time-bounded read-through cache.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/staktlabs/arb-finder-service/internal/cache"
	"github.com/staktlabs/arb-finder-service/internal/models"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_finder_cache_hits_total",
		Help: "Number of market fetches served from cache.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_finder_cache_misses_total",
		Help: "Number of market fetches that went to upstream.",
	})
	cacheErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_finder_cache_errors_total",
		Help: "Number of cache store failures degraded to miss/no-op.",
	})
	upstreamFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_finder_upstream_failures_total",
		Help: "Number of failed upstream requests.",
	})
)

// Source is the upstream data source the fetcher wraps
type Source interface {
	Get(ctx context.Context, path string, params map[string]string) ([]byte, error)
	RequestURL(path string, params map[string]string) string
}

// Store is the shared cache the fetcher reads through. Implementations must
// be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fetcher is a read-through cache over the upstream source. Identical
// concurrent requests may both miss and both call upstream; that is
// acceptable because upstream calls are idempotent reads and cache writes
// are idempotent overwrites.
type Fetcher struct {
	source Source
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a new Fetcher with the given cache TTL
func New(source Source, store Store, ttl time.Duration, logger zerolog.Logger) *Fetcher {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &Fetcher{
		source: source,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "market_fetcher").Logger(),
	}
}

// Fetch returns the raw payload for the upstream path, from cache when
// possible. Cache failures are logged and degraded: a read failure is a
// miss, a write failure a no-op. A successful upstream response is always
// returned to the caller regardless of the cache's health. Upstream
// failures propagate.
func (f *Fetcher) Fetch(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	// The full request URL, with sorted query parameters, is the cache key.
	// It includes the credential token; the key never leaves this process.
	key := "odds:" + f.source.RequestURL(path, params)

	cached, err := f.store.Get(ctx, key)
	if err == nil {
		cacheHits.Inc()
		f.logger.Debug().Str("path", path).Msg("cache hit")
		return cached, nil
	}
	cacheMisses.Inc()
	if errors.Is(err, cache.ErrNotFound) {
		f.logger.Debug().Str("path", path).Msg("cache miss")
	} else {
		cacheErrors.Inc()
		f.logger.Warn().Err(err).Str("path", path).Msg("cache read failed, falling through to upstream")
	}

	body, err := f.source.Get(ctx, path, params)
	if err != nil {
		upstreamFailures.Inc()
		return nil, fmt.Errorf("upstream fetch failed: %w", err)
	}

	if err := f.store.Set(ctx, key, body, f.ttl); err != nil {
		cacheErrors.Inc()
		f.logger.Warn().Err(err).Str("path", path).Msg("cache write failed, returning upstream payload anyway")
	}

	return body, nil
}

// FetchSports returns the upstream market catalog
func (f *Fetcher) FetchSports(ctx context.Context) ([]models.Sport, error) {
	body, err := f.Fetch(ctx, "/sports", nil)
	if err != nil {
		return nil, err
	}

	var sports []models.Sport
	if err := json.Unmarshal(body, &sports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sports catalog: %w", err)
	}

	return sports, nil
}

// FetchOdds returns all events with bookmaker quotes for one sport
func (f *Fetcher) FetchOdds(ctx context.Context, sportKey, regions, markets string) ([]models.Event, error) {
	path := fmt.Sprintf("/sports/%s/odds", sportKey)
	body, err := f.Fetch(ctx, path, map[string]string{
		"regions":    regions,
		"markets":    markets,
		"oddsFormat": "american",
		"dateFormat": "iso",
	})
	if err != nil {
		return nil, err
	}

	var events []models.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events for %s: %w", sportKey, err)
	}

	return events, nil
}
