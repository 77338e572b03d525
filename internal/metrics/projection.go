package metrics

import (
	"math"
	"time"

	"finsight/internal/core"
)

// Projection is the forecast for the month following the last point of a
// series, together with the change between the two most recent actuals.
type Projection struct {
	ProjectedIncome   core.Money
	ProjectedExpenses core.Money
	NetCashflow       core.Money
	SavingsRate       float64 // net / projected income, 0 when income is 0
	IncomeChangePct   float64 // month-over-month, latest vs previous actual
	ExpenseChangePct  float64

	// InsufficientData marks the all-zero result produced for an empty
	// series. An empty history is a normal first-use state, not an error.
	InsufficientData bool
}

// ProjectNext fits an ordinary least-squares line through each of the income
// and expense series (indexed 0..n-1) and evaluates it at index n. Negative
// projections are floored at zero; a single-point series projects itself.
func ProjectNext(series []core.TimeSeriesPoint) Projection {
	if len(series) == 0 {
		return Projection{InsufficientData: true}
	}

	incomes := make([]float64, len(series))
	expenses := make([]float64, len(series))
	for i, p := range series {
		incomes[i] = float64(p.Income.Cents)
		expenses[i] = float64(p.Expenses.Cents)
	}

	projIncome := clampCents(extrapolate(incomes))
	projExpenses := clampCents(extrapolate(expenses))
	net := projIncome - projExpenses

	savingsRate := 0.0
	if projIncome > 0 {
		savingsRate = float64(net) / float64(projIncome)
	}

	p := Projection{
		ProjectedIncome:   core.Money{Cents: projIncome},
		ProjectedExpenses: core.Money{Cents: projExpenses},
		NetCashflow:       core.Money{Cents: net},
		SavingsRate:       savingsRate,
	}
	if n := len(series); n >= 2 {
		p.IncomeChangePct = percentChange(incomes[n-2], incomes[n-1])
		p.ExpenseChangePct = percentChange(expenses[n-2], expenses[n-1])
	}
	return p
}

// FillSeriesGaps inserts zero-amount points for calendar months missing
// between the first and last period of an ascending series. The regression
// treats indexes as month offsets, so a month with no transactions has to
// appear as a zero, not vanish. A period that fails to parse returns the
// series unchanged.
func FillSeriesGaps(series []core.TimeSeriesPoint) []core.TimeSeriesPoint {
	if len(series) < 2 {
		return series
	}

	parsed := make([]time.Time, len(series))
	for i, p := range series {
		t, err := time.Parse(core.PeriodLayout, p.Period)
		if err != nil {
			return series
		}
		parsed[i] = t
	}

	out := make([]core.TimeSeriesPoint, 0, len(series))
	out = append(out, series[0])
	for i := 1; i < len(series); i++ {
		for cursor := parsed[i-1].AddDate(0, 1, 0); cursor.Before(parsed[i]); cursor = cursor.AddDate(0, 1, 0) {
			out = append(out, core.TimeSeriesPoint{Period: cursor.Format(core.PeriodLayout)})
		}
		out = append(out, series[i])
	}
	return out
}

// extrapolate predicts the value at index len(ys) from an OLS fit. With a
// single point the slope is undefined, so the point itself is returned.
func extrapolate(ys []float64) float64 {
	n := len(ys)
	if n == 1 {
		return ys[0]
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return ys[n-1]
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn
	return slope*fn + intercept
}

// percentChange guards division by zero: a zero prior period reports 0
// rather than infinity.
func percentChange(prev, curr float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / prev * 100
}

func clampCents(v float64) int64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int64(math.Round(v))
}
