// Package arbitrage detects risk-free opportunities in head-to-head betting
// markets and allocates a bankroll across their outcomes.
package arbitrage

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/staktlabs/arb-finder-service/internal/models"
	"github.com/staktlabs/arb-finder-service/pkg/oddsmath"
)

// Params holds engine parameters
type Params struct {
	MarketKey string // market type to scan, e.g. "h2h"
}

// Engine finds arbitrage opportunities across bookmaker quotes
type Engine struct {
	params Params
	logger zerolog.Logger
}

// NewEngine creates a new arbitrage engine
func NewEngine(params Params, logger zerolog.Logger) *Engine {
	if params.MarketKey == "" {
		params.MarketKey = "h2h"
	}
	return &Engine{
		params: params,
		logger: logger.With().Str("component", "arbitrage_engine").Logger(),
	}
}

// SelectBestQuotes scans every bookmaker's quotes for the event and keeps,
// per outcome name, the single highest-paying quote. Quotes whose price
// cannot be converted are skipped. Ties keep the first quote seen in
// bookmaker order.
func (e *Engine) SelectBestQuotes(event *models.Event) map[string]models.BestQuote {
	best := make(map[string]models.BestQuote)

	for _, bm := range event.Bookmakers {
		for _, market := range bm.Markets {
			if market.Key != e.params.MarketKey {
				continue
			}
			for _, out := range market.Outcomes {
				dec, err := oddsmath.AmericanToDecimal(out.Price)
				if err != nil {
					e.logger.Debug().
						Str("event_id", event.ID).
						Str("bookmaker", bm.Key).
						Str("outcome", out.Name).
						Float64("price", out.Price).
						Msg("skipping unconvertible quote")
					continue
				}

				lastUpdate := market.LastUpdate
				if lastUpdate.IsZero() {
					lastUpdate = bm.LastUpdate
				}
				if lastUpdate.IsZero() {
					lastUpdate = event.CommenceTime
				}

				prev, ok := best[out.Name]
				if !ok || dec > prev.PriceDecimal {
					best[out.Name] = models.BestQuote{
						Name:          out.Name,
						PriceAmerican: out.Price,
						PriceDecimal:  dec,
						Bookmaker:     bm.Key,
						LastUpdate:    lastUpdate,
					}
				}
			}
		}
	}

	return best
}

// ComputeOpportunity tests the best-quote set for arbitrage feasibility and,
// when feasible, produces exact and rounded stake allocations for the given
// bankroll. It returns nil when the market offers no opportunity: fewer than
// two priced outcomes, implied probabilities summing to >= 1, or (when
// requirePositiveRounded is set) an edge that rounding erased.
func (e *Engine) ComputeOpportunity(
	event *models.Event,
	best map[string]models.BestQuote,
	bankroll float64,
	roundingUnit float64,
	requirePositiveRounded bool,
) *models.ArbitrageOpportunity {
	if len(best) < 2 {
		return nil
	}

	// Stable outcome order for the allocation slices.
	names := make([]string, 0, len(best))
	for name := range best {
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := make([]models.BestQuote, 0, len(names))
	sumInverse := 0.0
	for _, name := range names {
		q := best[name]
		outcomes = append(outcomes, q)
		sumInverse += 1.0 / q.PriceDecimal
	}

	// Implied probabilities summing to >= 100% leave no risk-free edge.
	if sumInverse >= 1.0 {
		return nil
	}

	edgePercent := (1.0/sumInverse - 1.0) * 100.0
	guaranteedPayout := bankroll / sumInverse

	stakes := make([]models.StakeAllocation, 0, len(outcomes))
	stakesRounded := make([]models.StakeAllocation, 0, len(outcomes))
	totalRounded := 0.0
	payoutRounded := math.Inf(1)

	for _, q := range outcomes {
		stake := (bankroll / q.PriceDecimal) / sumInverse
		stakes = append(stakes, models.StakeAllocation{Name: q.Name, Stake: stake})

		rounded := roundToUnit(stake, roundingUnit)
		stakesRounded = append(stakesRounded, models.StakeAllocation{Name: q.Name, Stake: rounded})
		totalRounded += rounded

		// Rounding breaks payout equalization; the bettor only ever
		// collects the least-favorable outcome's payout.
		if p := rounded * q.PriceDecimal; p < payoutRounded {
			payoutRounded = p
		}
	}

	profitRounded := payoutRounded - totalRounded
	edgeRoundedPercent := math.Inf(-1)
	if totalRounded > 0 {
		edgeRoundedPercent = profitRounded / totalRounded * 100.0
	}

	if requirePositiveRounded && edgeRoundedPercent <= 0 {
		return nil
	}

	e.logger.Debug().
		Str("event_id", event.ID).
		Float64("edge_percent", edgePercent).
		Float64("edge_rounded_percent", edgeRoundedPercent).
		Msg("found arbitrage opportunity")

	return &models.ArbitrageOpportunity{
		EventID:      event.ID,
		SportKey:     event.SportKey,
		SportTitle:   event.SportTitle,
		CommenceTime: event.CommenceTime,
		HomeTeam:     event.HomeTeam,
		AwayTeam:     event.AwayTeam,

		Outcomes:    outcomes,
		SumInverse:  sumInverse,
		EdgePercent: edgePercent,

		Bankroll:         bankroll,
		Stakes:           stakes,
		GuaranteedPayout: guaranteedPayout,

		RoundingUnit:            roundingUnit,
		StakesRounded:           stakesRounded,
		TotalStakeRounded:       totalRounded,
		GuaranteedPayoutRounded: payoutRounded,
		EdgeRoundedPercent:      edgeRoundedPercent,
		ProfitRounded:           profitRounded,
	}
}

// FindOpportunities runs the full pipeline over a batch of events and returns
// all opportunities sorted descending by rounded edge percent. A malformed
// event never aborts the remaining events.
func (e *Engine) FindOpportunities(
	events []models.Event,
	bankroll float64,
	roundingUnit float64,
	requirePositiveRounded bool,
) []models.ArbitrageOpportunity {
	opportunities := make([]models.ArbitrageOpportunity, 0)

	for i := range events {
		event := &events[i]
		best := e.SelectBestQuotes(event)
		opp := e.ComputeOpportunity(event, best, bankroll, roundingUnit, requirePositiveRounded)
		if opp != nil {
			opportunities = append(opportunities, *opp)
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].EdgeRoundedPercent > opportunities[j].EdgeRoundedPercent
	})

	e.logger.Info().
		Int("event_count", len(events)).
		Int("opportunity_count", len(opportunities)).
		Msg("scanned events for arbitrage")

	return opportunities
}

// roundToUnit rounds x to the nearest multiple of unit, ties half away from
// zero. Done in decimal arithmetic so binary float representation cannot
// flip a tie.
func roundToUnit(x, unit float64) float64 {
	if unit <= 0 {
		return x
	}
	u := decimal.NewFromFloat(unit)
	v := decimal.NewFromFloat(x).Div(u).Round(0).Mul(u)
	return v.InexactFloat64()
}
