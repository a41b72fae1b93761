package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staktlabs/arb-finder-service/internal/cache"
	"github.com/staktlabs/arb-finder-service/internal/oddsapi"
)

// brokenStore is a cache double whose reads and writes always fail
type brokenStore struct {
	gets int32
	sets int32
}

func (b *brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt32(&b.gets, 1)
	return nil, fmt.Errorf("store unreachable")
}

func (b *brokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	atomic.AddInt32(&b.sets, 1)
	return fmt.Errorf("store unreachable")
}

// testFetcherSetup is a helper struct to hold test dependencies
type testFetcherSetup struct {
	fetcher   *Fetcher
	server    *httptest.Server
	miniRedis *miniredis.Miniredis
	store     *cache.RedisCache
	hits      *int32
	ctx       context.Context
}

// setupTestFetcher creates a fetcher backed by an httptest upstream and a
// miniredis store
func setupTestFetcher(t *testing.T, handler http.HandlerFunc) *testFetcherSetup {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	store := cache.NewRedisCache(cache.RedisCacheConfig{Addrs: []string{mr.Addr()}}, zerolog.Nop())
	client := oddsapi.NewClient(oddsapi.ClientConfig{BaseURL: server.URL, APIKey: "test-key"}, zerolog.Nop())

	return &testFetcherSetup{
		fetcher:   New(client, store, 15*time.Minute, zerolog.Nop()),
		server:    server,
		miniRedis: mr,
		store:     store,
		hits:      &hits,
		ctx:       context.Background(),
	}
}

// cleanup cleans up test resources
func (s *testFetcherSetup) cleanup() {
	s.store.Close()
	s.miniRedis.Close()
	s.server.Close()
}

const eventsJSON = `[{"id":"evt-1","sport_key":"basketball_nba","home_team":"TeamA","away_team":"TeamB","bookmakers":[]}]`

// TestFetch_MissThenHit tests the read-through protocol: first call goes
// upstream and populates the cache, second call is served from cache
func TestFetch_MissThenHit(t *testing.T) {
	setup := setupTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(eventsJSON))
	})
	defer setup.cleanup()

	first, err := setup.fetcher.Fetch(setup.ctx, "/sports/basketball_nba/odds", map[string]string{"regions": "us"})
	require.NoError(t, err)
	assert.JSONEq(t, eventsJSON, string(first))
	assert.Equal(t, int32(1), atomic.LoadInt32(setup.hits))

	second, err := setup.fetcher.Fetch(setup.ctx, "/sports/basketball_nba/odds", map[string]string{"regions": "us"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(setup.hits), "second fetch must not call upstream")
}

// TestFetch_DistinctParamsDistinctKeys tests that differing query params do
// not share cache entries
func TestFetch_DistinctParamsDistinctKeys(t *testing.T) {
	setup := setupTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"regions":%q}`, r.URL.Query().Get("regions"))
	})
	defer setup.cleanup()

	us, err := setup.fetcher.Fetch(setup.ctx, "/sports/soccer_epl/odds", map[string]string{"regions": "us"})
	require.NoError(t, err)
	uk, err := setup.fetcher.Fetch(setup.ctx, "/sports/soccer_epl/odds", map[string]string{"regions": "uk"})
	require.NoError(t, err)

	assert.NotEqual(t, us, uk)
	assert.Equal(t, int32(2), atomic.LoadInt32(setup.hits))
}

// TestFetch_ExpiredEntryRefetches tests that the fetcher goes back upstream
// once the cache TTL has elapsed
func TestFetch_ExpiredEntryRefetches(t *testing.T) {
	setup := setupTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(eventsJSON))
	})
	defer setup.cleanup()

	_, err := setup.fetcher.Fetch(setup.ctx, "/sports/basketball_nba/odds", nil)
	require.NoError(t, err)

	setup.miniRedis.FastForward(16 * time.Minute)

	_, err = setup.fetcher.Fetch(setup.ctx, "/sports/basketball_nba/odds", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(setup.hits))
}

// TestFetch_BrokenStoreStillServes tests degraded mode: a store whose reads
// and writes both fail must never prevent a successful upstream payload from
// reaching the caller
func TestFetch_BrokenStoreStillServes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(eventsJSON))
	}))
	defer server.Close()

	broken := &brokenStore{}
	client := oddsapi.NewClient(oddsapi.ClientConfig{BaseURL: server.URL, APIKey: "test-key"}, zerolog.Nop())
	f := New(client, broken, 15*time.Minute, zerolog.Nop())

	body, err := f.Fetch(context.Background(), "/sports/basketball_nba/odds", nil)
	require.NoError(t, err)
	assert.JSONEq(t, eventsJSON, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&broken.gets))
	assert.Equal(t, int32(1), atomic.LoadInt32(&broken.sets))
}

// TestFetch_UpstreamFailurePropagates tests that upstream errors are hard
// failures with no stale-on-error fallback
func TestFetch_UpstreamFailurePropagates(t *testing.T) {
	setup := setupTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer setup.cleanup()

	_, err := setup.fetcher.Fetch(setup.ctx, "/sports/basketball_nba/odds", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream fetch failed")
}

func TestFetchSports_Decodes(t *testing.T) {
	setup := setupTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"key":"basketball_nba","title":"NBA","active":true}]`))
	})
	defer setup.cleanup()

	sports, err := setup.fetcher.FetchSports(setup.ctx)
	require.NoError(t, err)
	require.Len(t, sports, 1)
	assert.Equal(t, "basketball_nba", sports[0].Key)
	assert.True(t, sports[0].Active)
}

func TestFetchOdds_Decodes(t *testing.T) {
	setup := setupTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "american", r.URL.Query().Get("oddsFormat"))
		assert.Equal(t, "h2h", r.URL.Query().Get("markets"))
		w.Write([]byte(eventsJSON))
	})
	defer setup.cleanup()

	events, err := setup.fetcher.FetchOdds(setup.ctx, "basketball_nba", "us", "h2h")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
}
