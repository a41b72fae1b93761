// Package oddsmath converts between sports-betting price conventions.
package oddsmath

import (
	"fmt"
	"math"
)

// ErrInvalidPrice is returned when a native price cannot be converted.
// Callers drop the offending quote; the error is never fatal to a batch.
var ErrInvalidPrice = fmt.Errorf("invalid price")

// AmericanToDecimal converts American odds to a decimal payout multiplier.
// +150 -> 2.50, -150 -> 1.6667. Zero or non-finite input is invalid.
// Valid output is always > 1.
func AmericanToDecimal(american float64) (float64, error) {
	if american == 0 || math.IsNaN(american) || math.IsInf(american, 0) {
		return 0, fmt.Errorf("%w: american odds %v", ErrInvalidPrice, american)
	}

	if american > 0 {
		return 1.0 + american/100.0, nil
	}

	return 1.0 + 100.0/math.Abs(american), nil
}

// DecimalToAmerican converts a decimal payout multiplier back to American
// odds. Used for presentation only.
func DecimalToAmerican(decimal float64) (float64, error) {
	if decimal <= 1.0 || math.IsNaN(decimal) || math.IsInf(decimal, 0) {
		return 0, fmt.Errorf("%w: decimal odds %v", ErrInvalidPrice, decimal)
	}

	if decimal >= 2.0 {
		return math.Round((decimal - 1.0) * 100.0), nil
	}

	return math.Round(-100.0 / (decimal - 1.0)), nil
}

// ImpliedProbability converts decimal odds to the bookmaker-implied
// win probability. 2.00 -> 0.50.
func ImpliedProbability(decimal float64) (float64, error) {
	if decimal <= 0 || math.IsNaN(decimal) || math.IsInf(decimal, 0) {
		return 0, fmt.Errorf("%w: decimal odds %v", ErrInvalidPrice, decimal)
	}

	return 1.0 / decimal, nil
}
