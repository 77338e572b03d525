// Package metrics implements the derived-metric computations: frequency
// normalization, cash-flow projection, income diversification, debt payoff
// simulation and subscription value ranking.
//
// Every function here is a pure transform over in-memory snapshots. Nothing
// in this package touches storage, the network or the clock.
package metrics

import (
	"math"

	"finsight/internal/core"
)

// monthlyMultipliers converts a per-period amount into its average
// per-calendar-month value. Weekly uses 52/12, daily 365/12.
var monthlyMultipliers = map[core.Frequency]float64{
	core.Daily:      30.42,
	core.Weekly:     4.33,
	core.BiWeekly:   2.17,
	core.Monthly:    1,
	core.Quarterly:  1.0 / 3.0,
	core.SemiAnnual: 1.0 / 6.0,
	core.Annual:     1.0 / 12.0,
	core.Once:       0,
}

// Multiplier resolves the monthly-equivalent multiplier for a frequency tag.
// Unknown tags fall back to monthly; the second return value lets callers
// log that degradation without this package doing I/O.
func Multiplier(f core.Frequency) (float64, bool) {
	if m, ok := monthlyMultipliers[f]; ok {
		return m, true
	}
	return 1, false
}

// MonthlyEquivalent converts a per-period amount to its monthly-equivalent
// value. One-time amounts normalize to zero so they never leak into
// recurring aggregates. Unknown frequencies are treated as already monthly.
func MonthlyEquivalent(amount core.Money, f core.Frequency) (core.Money, error) {
	if amount.Cents < 0 {
		return core.Money{}, core.ErrInvalidAmount
	}
	mult, _ := Multiplier(f)
	cents := int64(math.Round(float64(amount.Cents) * mult))
	return core.Money{Cents: cents}, nil
}
