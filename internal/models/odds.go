package models

import (
	"encoding/json"
	"math"
	"time"
)

// Sport describes one entry of the upstream market catalog
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// Outcome is a single bookmaker quote for one side of a market.
// Price is in American odds convention.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Market groups a bookmaker's outcomes under a market type (e.g. "h2h")
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Bookmaker holds one bookmaker's quoted markets for an event
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Event represents a single upcoming sporting event with all bookmaker quotes.
// Events are produced by the upstream data source and are read-only here.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// BestQuote is the highest-paying quote found for one outcome of an event
type BestQuote struct {
	Name          string    `json:"name"`
	PriceAmerican float64   `json:"price_american"`
	PriceDecimal  float64   `json:"price_decimal"`
	Bookmaker     string    `json:"bookmaker"`
	LastUpdate    time.Time `json:"last_update"`
}

// StakeAllocation assigns a stake amount to one outcome
type StakeAllocation struct {
	Name  string  `json:"name"`
	Stake float64 `json:"stake"`
}

// ArbitrageOpportunity is the full result of the feasibility test and stake
// allocation for one event. Immutable after construction; never cached.
type ArbitrageOpportunity struct {
	EventID      string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	SportTitle   string    `json:"sport_title"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`

	Outcomes    []BestQuote `json:"outcomes"`
	SumInverse  float64     `json:"sum_inverse"`
	EdgePercent float64     `json:"edge_percent"`

	Bankroll         float64           `json:"bankroll"`
	Stakes           []StakeAllocation `json:"stakes"`
	GuaranteedPayout float64           `json:"guaranteed_payout"`

	RoundingUnit            float64           `json:"rounding_unit"`
	StakesRounded           []StakeAllocation `json:"stakes_rounded"`
	TotalStakeRounded       float64           `json:"total_stake_rounded"`
	GuaranteedPayoutRounded float64           `json:"guaranteed_payout_rounded"`
	EdgeRoundedPercent      float64           `json:"edge_rounded_percent"`
	ProfitRounded           float64           `json:"profit_rounded"`
}

// MarshalJSON emits null for a non-finite rounded edge. A rounded total
// stake of zero leaves the edge at -Inf, which encoding/json cannot
// represent and would otherwise abort the whole response.
func (o ArbitrageOpportunity) MarshalJSON() ([]byte, error) {
	type plain ArbitrageOpportunity
	wire := struct {
		plain
		EdgeRoundedPercent *float64 `json:"edge_rounded_percent"`
	}{plain: plain(o)}

	if !math.IsInf(o.EdgeRoundedPercent, 0) && !math.IsNaN(o.EdgeRoundedPercent) {
		wire.EdgeRoundedPercent = &o.EdgeRoundedPercent
	}
	return json.Marshal(wire)
}

// ArbitrageScanResult is the response for one sport's opportunity scan,
// sorted descending by rounded edge percent
type ArbitrageScanResult struct {
	SportKey      string                 `json:"sport_key"`
	Count         int                    `json:"count"`
	Opportunities []ArbitrageOpportunity `json:"arbs"`
	RoundingUnit  float64                `json:"rounding_unit"`
	Bankroll      float64                `json:"bankroll"`
}

// Bet is a user-recorded bet, persisted as an opaque list per subject.
// The core never interprets these beyond round-tripping them.
type Bet struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	SportKey    string    `json:"sport_key"`
	OutcomeName string    `json:"outcome_name"`
	Bookmaker   string    `json:"bookmaker"`
	Price       float64   `json:"price"`
	Stake       float64   `json:"stake"`
	PlacedAt    time.Time `json:"placed_at"`
	Notes       string    `json:"notes,omitempty"`
}

// KafkaOpportunityMessage is published to the alerts topic after a warm-up
// pass finds opportunities for a sport
type KafkaOpportunityMessage struct {
	SportKey      string                 `json:"sport_key"`
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
	Timestamp     time.Time              `json:"timestamp"`
	BatchID       string                 `json:"batch_id"`
}
