package arbitrage

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staktlabs/arb-finder-service/internal/models"
)

// setupTestEngine creates an engine with default parameters
func setupTestEngine() *Engine {
	return NewEngine(Params{MarketKey: "h2h"}, zerolog.Nop())
}

// twoWayEvent builds an event where each bookmaker quotes both outcomes
// at the given American prices
func twoWayEvent(prices map[string][2]float64) *models.Event {
	event := &models.Event{
		ID:           "evt-1",
		SportKey:     "basketball_nba",
		SportTitle:   "NBA",
		CommenceTime: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
		HomeTeam:     "TeamA",
		AwayTeam:     "TeamB",
	}

	for _, bm := range []string{"book_one", "book_two", "book_three"} {
		ps, ok := prices[bm]
		if !ok {
			continue
		}
		event.Bookmakers = append(event.Bookmakers, models.Bookmaker{
			Key:        bm,
			LastUpdate: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
			Markets: []models.Market{{
				Key:        "h2h",
				LastUpdate: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
				Outcomes: []models.Outcome{
					{Name: "TeamA", Price: ps[0]},
					{Name: "TeamB", Price: ps[1]},
				},
			}},
		})
	}

	return event
}

// bestOf builds a best-quote map directly from decimal prices
func bestOf(prices map[string]float64) map[string]models.BestQuote {
	best := make(map[string]models.BestQuote, len(prices))
	for name, dec := range prices {
		best[name] = models.BestQuote{Name: name, PriceDecimal: dec, Bookmaker: "book_one"}
	}
	return best
}

func TestSelectBestQuotes_KeepsHighestPrice(t *testing.T) {
	engine := setupTestEngine()

	// +150 = 2.50 beats +110 = 2.10; -105 beats -120 on the other side
	event := twoWayEvent(map[string][2]float64{
		"book_one": {110, -105},
		"book_two": {150, -120},
	})

	best := engine.SelectBestQuotes(event)

	require.Len(t, best, 2)
	assert.Equal(t, "book_two", best["TeamA"].Bookmaker)
	assert.InDelta(t, 2.50, best["TeamA"].PriceDecimal, 1e-9)
	assert.Equal(t, "book_one", best["TeamB"].Bookmaker)
	assert.InDelta(t, 1.0+100.0/105.0, best["TeamB"].PriceDecimal, 1e-9)
}

// TestSelectBestQuotes_TieKeepsFirst tests that identical prices keep the
// quote from the bookmaker encountered first
func TestSelectBestQuotes_TieKeepsFirst(t *testing.T) {
	engine := setupTestEngine()

	event := twoWayEvent(map[string][2]float64{
		"book_one": {150, -110},
		"book_two": {150, -110},
	})

	best := engine.SelectBestQuotes(event)

	require.Len(t, best, 2)
	assert.Equal(t, "book_one", best["TeamA"].Bookmaker)
	assert.Equal(t, "book_one", best["TeamB"].Bookmaker)
}

// TestSelectBestQuotes_SkipsInvalidPrice tests that an unconvertible quote
// is dropped without affecting the rest of the event
func TestSelectBestQuotes_SkipsInvalidPrice(t *testing.T) {
	engine := setupTestEngine()

	event := twoWayEvent(map[string][2]float64{
		"book_one": {0, -110}, // zero price is invalid
		"book_two": {140, -115},
	})

	best := engine.SelectBestQuotes(event)

	require.Len(t, best, 2)
	assert.Equal(t, "book_two", best["TeamA"].Bookmaker)
	assert.Equal(t, "book_one", best["TeamB"].Bookmaker)
}

// TestSelectBestQuotes_Idempotent tests that repeated selection on the same
// event yields identical mappings
func TestSelectBestQuotes_Idempotent(t *testing.T) {
	engine := setupTestEngine()

	event := twoWayEvent(map[string][2]float64{
		"book_one":   {110, -105},
		"book_two":   {150, -120},
		"book_three": {150, 105},
	})

	first := engine.SelectBestQuotes(event)
	second := engine.SelectBestQuotes(event)

	assert.Equal(t, first, second)
}

func TestSelectBestQuotes_IgnoresOtherMarkets(t *testing.T) {
	engine := setupTestEngine()

	event := &models.Event{
		ID: "evt-2",
		Bookmakers: []models.Bookmaker{{
			Key: "book_one",
			Markets: []models.Market{{
				Key:      "spreads",
				Outcomes: []models.Outcome{{Name: "TeamA", Price: 150}},
			}},
		}},
	}

	best := engine.SelectBestQuotes(event)
	assert.Empty(t, best)
}

// TestComputeOpportunity_TwoWayMarket tests the 2.50 / 2.10 reference market
func TestComputeOpportunity_TwoWayMarket(t *testing.T) {
	engine := setupTestEngine()
	event := &models.Event{ID: "evt-1", SportKey: "basketball_nba"}
	best := bestOf(map[string]float64{"TeamA": 2.50, "TeamB": 2.10})

	opp := engine.ComputeOpportunity(event, best, 100, 1, true)

	require.NotNil(t, opp)
	assert.InDelta(t, 0.8762, opp.SumInverse, 0.0001)
	assert.InDelta(t, 14.13, opp.EdgePercent, 0.01)
	assert.InDelta(t, 114.13, opp.GuaranteedPayout, 0.01)

	require.Len(t, opp.Stakes, 2)
	stakeByName := map[string]float64{}
	for _, s := range opp.Stakes {
		stakeByName[s.Name] = s.Stake
	}
	assert.InDelta(t, 45.65, stakeByName["TeamA"], 0.01)
	assert.InDelta(t, 54.35, stakeByName["TeamB"], 0.01)
}

// TestComputeOpportunity_EqualizedPayout tests the defining invariant: every
// exact stake times its price yields the same guaranteed payout
func TestComputeOpportunity_EqualizedPayout(t *testing.T) {
	engine := setupTestEngine()
	event := &models.Event{ID: "evt-1"}
	best := bestOf(map[string]float64{"TeamA": 2.50, "TeamB": 2.10, "Draw": 12.0})

	opp := engine.ComputeOpportunity(event, best, 250, 1, false)

	require.NotNil(t, opp)
	for _, s := range opp.Stakes {
		price := 0.0
		for _, q := range opp.Outcomes {
			if q.Name == s.Name {
				price = q.PriceDecimal
			}
		}
		assert.InDelta(t, opp.GuaranteedPayout, s.Stake*price, 1e-9, "outcome %s", s.Name)
	}
}

// TestComputeOpportunity_RoundedExample tests the rounding_unit=1 reference
// numbers: stakes {46, 54}, worst payout 113.4, profit 13.4
func TestComputeOpportunity_RoundedExample(t *testing.T) {
	engine := setupTestEngine()
	event := &models.Event{ID: "evt-1"}
	best := bestOf(map[string]float64{"TeamA": 2.50, "TeamB": 2.10})

	opp := engine.ComputeOpportunity(event, best, 100, 1, true)

	require.NotNil(t, opp)
	roundedByName := map[string]float64{}
	for _, s := range opp.StakesRounded {
		roundedByName[s.Name] = s.Stake
	}
	assert.Equal(t, 46.0, roundedByName["TeamA"])
	assert.Equal(t, 54.0, roundedByName["TeamB"])
	assert.InDelta(t, 100.0, opp.TotalStakeRounded, 1e-9)
	assert.InDelta(t, 113.4, opp.GuaranteedPayoutRounded, 1e-9)
	assert.InDelta(t, 13.4, opp.ProfitRounded, 1e-9)
	assert.InDelta(t, 13.4, opp.EdgeRoundedPercent, 1e-9)
}

// TestComputeOpportunity_InfeasibleMarket tests that implied probabilities
// summing to >= 1 yield no opportunity
func TestComputeOpportunity_InfeasibleMarket(t *testing.T) {
	engine := setupTestEngine()
	event := &models.Event{ID: "evt-1"}

	// Two -110-style quotes: 1/1.91 + 1/1.91 = 1.047 > 1
	best := bestOf(map[string]float64{"TeamA": 1.91, "TeamB": 1.91})
	assert.Nil(t, engine.ComputeOpportunity(event, best, 100, 1, false))

	// Exactly 1 has zero edge and is also excluded
	best = bestOf(map[string]float64{"TeamA": 2.0, "TeamB": 2.0})
	assert.Nil(t, engine.ComputeOpportunity(event, best, 100, 1, false))
}

func TestComputeOpportunity_FewerThanTwoOutcomes(t *testing.T) {
	engine := setupTestEngine()
	event := &models.Event{ID: "evt-1"}

	assert.Nil(t, engine.ComputeOpportunity(event, bestOf(map[string]float64{"TeamA": 5.0}), 100, 1, false))
	assert.Nil(t, engine.ComputeOpportunity(event, bestOf(nil), 100, 1, false))
}

// TestComputeOpportunity_RoundingErasesEdge tests that a coarse rounding
// unit can turn a feasible market unprofitable and is filtered when the
// caller requires a positive rounded edge
func TestComputeOpportunity_RoundingErasesEdge(t *testing.T) {
	engine := setupTestEngine()
	event := &models.Event{ID: "evt-1"}
	best := bestOf(map[string]float64{"TeamA": 2.50, "TeamB": 2.10})

	// Bankroll 10 with unit 10 rounds the stakes to {0, 10}: the zero-stake
	// side pays nothing, so the rounded edge collapses to -100%.
	filtered := engine.ComputeOpportunity(event, best, 10, 10, true)
	assert.Nil(t, filtered)

	kept := engine.ComputeOpportunity(event, best, 10, 10, false)
	require.NotNil(t, kept)
	assert.True(t, kept.EdgePercent > 0)
	assert.True(t, kept.EdgeRoundedPercent <= 0)
}

// TestComputeOpportunity_ZeroTotalRoundedStake tests the degenerate case
// where every stake rounds to zero; the rounded edge must be the negative
// infinity sentinel rather than a division by zero
func TestComputeOpportunity_ZeroTotalRoundedStake(t *testing.T) {
	engine := setupTestEngine()
	event := &models.Event{ID: "evt-1"}
	best := bestOf(map[string]float64{"TeamA": 2.50, "TeamB": 2.10})

	opp := engine.ComputeOpportunity(event, best, 1, 100, false)

	require.NotNil(t, opp)
	assert.Equal(t, 0.0, opp.TotalStakeRounded)
	assert.True(t, math.IsInf(opp.EdgeRoundedPercent, -1))
}

func TestRoundToUnit(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		unit float64
		want float64
	}{
		{"down to unit", 45.4, 1, 45},
		{"up to unit", 45.65, 1, 46},
		{"tie rounds away from zero", 45.5, 1, 46},
		{"five unit", 12.4, 5, 10},
		{"five unit up", 12.6, 5, 15},
		{"fractional unit", 0.37, 0.25, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, roundToUnit(tt.x, tt.unit), 1e-9)
		})
	}
}

// TestFindOpportunities_SortedAndIsolated tests batch behavior: results come
// back sorted by rounded edge descending, and events that cannot produce an
// opportunity are skipped without affecting the rest
func TestFindOpportunities_SortedAndIsolated(t *testing.T) {
	engine := setupTestEngine()

	small := twoWayEvent(map[string][2]float64{"book_one": {120, 105}})
	small.ID = "evt-small"
	big := twoWayEvent(map[string][2]float64{"book_one": {150, 120}})
	big.ID = "evt-big"
	dead := twoWayEvent(map[string][2]float64{"book_one": {-110, -110}})
	dead.ID = "evt-dead"
	halfPriced := &models.Event{
		ID: "evt-half",
		Bookmakers: []models.Bookmaker{{
			Key: "book_one",
			Markets: []models.Market{{
				Key:      "h2h",
				Outcomes: []models.Outcome{{Name: "OnlySide", Price: 150}},
			}},
		}},
	}

	events := []models.Event{*small, *dead, *big, *halfPriced}
	opportunities := engine.FindOpportunities(events, 100, 1, true)

	require.Len(t, opportunities, 2)
	assert.Equal(t, "evt-big", opportunities[0].EventID)
	assert.Equal(t, "evt-small", opportunities[1].EventID)
	assert.GreaterOrEqual(t, opportunities[0].EdgeRoundedPercent, opportunities[1].EdgeRoundedPercent)
}
