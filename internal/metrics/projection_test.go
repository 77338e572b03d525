package metrics

import (
	"math"
	"testing"

	"finsight/internal/core"
)

func point(period string, income, expenses int64) core.TimeSeriesPoint {
	return core.TimeSeriesPoint{
		Period:   period,
		Income:   core.Money{Cents: income},
		Expenses: core.Money{Cents: expenses},
	}
}

func TestProjectNextEmptySeries(t *testing.T) {
	p := ProjectNext(nil)
	if !p.InsufficientData {
		t.Fatalf("expected insufficient data flag")
	}
	if p.ProjectedIncome.Cents != 0 || p.ProjectedExpenses.Cents != 0 || p.NetCashflow.Cents != 0 {
		t.Fatalf("expected all-zero projection, got %+v", p)
	}
	if p.SavingsRate != 0 {
		t.Fatalf("expected zero savings rate, got %v", p.SavingsRate)
	}
}

func TestProjectNextSinglePoint(t *testing.T) {
	p := ProjectNext([]core.TimeSeriesPoint{point("2025-01", 300000, 200000)})
	if p.InsufficientData {
		t.Fatalf("single point is not insufficient data")
	}
	if p.ProjectedIncome.Cents != 300000 {
		t.Fatalf("expected income carried forward, got %d", p.ProjectedIncome.Cents)
	}
	if p.ProjectedExpenses.Cents != 200000 {
		t.Fatalf("expected expenses carried forward, got %d", p.ProjectedExpenses.Cents)
	}
	if p.NetCashflow.Cents != 100000 {
		t.Fatalf("expected net 100000, got %d", p.NetCashflow.Cents)
	}
}

// A perfectly linear series must be predicted exactly: slope*n + intercept
// with no residual.
func TestProjectNextExactOnLinearSeries(t *testing.T) {
	series := []core.TimeSeriesPoint{
		point("2025-01", 100000, 50000),
		point("2025-02", 110000, 52000),
		point("2025-03", 120000, 54000),
		point("2025-04", 130000, 56000),
		point("2025-05", 140000, 58000),
		point("2025-06", 150000, 60000),
	}
	p := ProjectNext(series)
	if p.ProjectedIncome.Cents != 160000 {
		t.Fatalf("expected income 160000, got %d", p.ProjectedIncome.Cents)
	}
	if p.ProjectedExpenses.Cents != 62000 {
		t.Fatalf("expected expenses 62000, got %d", p.ProjectedExpenses.Cents)
	}
	if p.NetCashflow.Cents != 98000 {
		t.Fatalf("expected net 98000, got %d", p.NetCashflow.Cents)
	}
	wantRate := 98000.0 / 160000.0
	if math.Abs(p.SavingsRate-wantRate) > 1e-9 {
		t.Fatalf("expected savings rate %v, got %v", wantRate, p.SavingsRate)
	}
}

// A steeply declining series would project negative income; the projection
// is floored at zero and the savings rate stays zero.
func TestProjectNextClampsNegative(t *testing.T) {
	series := []core.TimeSeriesPoint{
		point("2025-01", 100000, 0),
		point("2025-02", 40000, 0),
		point("2025-03", 1000, 0),
	}
	p := ProjectNext(series)
	if p.ProjectedIncome.Cents != 0 {
		t.Fatalf("expected clamped income 0, got %d", p.ProjectedIncome.Cents)
	}
	if p.SavingsRate != 0 {
		t.Fatalf("expected zero savings rate, got %v", p.SavingsRate)
	}
}

func TestProjectNextMonthOverMonthChange(t *testing.T) {
	series := []core.TimeSeriesPoint{
		point("2025-01", 100000, 40000),
		point("2025-02", 125000, 30000),
	}
	p := ProjectNext(series)
	if math.Abs(p.IncomeChangePct-25) > 1e-9 {
		t.Fatalf("expected +25%% income change, got %v", p.IncomeChangePct)
	}
	if math.Abs(p.ExpenseChangePct-(-25)) > 1e-9 {
		t.Fatalf("expected -25%% expense change, got %v", p.ExpenseChangePct)
	}
}

func TestFillSeriesGaps(t *testing.T) {
	tests := []struct {
		name    string
		series  []core.TimeSeriesPoint
		periods []string
	}{
		{
			name: "single gap month filled with zeros",
			series: []core.TimeSeriesPoint{
				point("2025-01", 30000, 10000),
				point("2025-03", 30000, 10000),
			},
			periods: []string{"2025-01", "2025-02", "2025-03"},
		},
		{
			name: "multi-month gap across a year boundary",
			series: []core.TimeSeriesPoint{
				point("2024-11", 50000, 20000),
				point("2025-02", 60000, 20000),
			},
			periods: []string{"2024-11", "2024-12", "2025-01", "2025-02"},
		},
		{
			name: "contiguous series unchanged",
			series: []core.TimeSeriesPoint{
				point("2025-01", 10000, 5000),
				point("2025-02", 11000, 5000),
			},
			periods: []string{"2025-01", "2025-02"},
		},
		{
			name:    "single point unchanged",
			series:  []core.TimeSeriesPoint{point("2025-01", 10000, 5000)},
			periods: []string{"2025-01"},
		},
		{
			name: "unparsable period left alone",
			series: []core.TimeSeriesPoint{
				point("2025-01", 10000, 5000),
				point("garbage", 11000, 5000),
			},
			periods: []string{"2025-01", "garbage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FillSeriesGaps(tt.series)
			if len(got) != len(tt.periods) {
				t.Fatalf("got %d points, want %d (%v)", len(got), len(tt.periods), got)
			}
			for i, want := range tt.periods {
				if got[i].Period != want {
					t.Errorf("point %d period = %s, want %s", i, got[i].Period, want)
				}
			}
		})
	}
}

// Inserted gap months must carry zero amounts so a gap pulls the trend down
// instead of making distant months look adjacent.
func TestFillSeriesGapsZeroAmounts(t *testing.T) {
	got := FillSeriesGaps([]core.TimeSeriesPoint{
		point("2025-01", 30000, 10000),
		point("2025-03", 30000, 10000),
	})
	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}
	if got[1].Income.Cents != 0 || got[1].Expenses.Cents != 0 {
		t.Fatalf("gap month should be zero, got %+v", got[1])
	}
	if got[0].Income.Cents != 30000 || got[2].Income.Cents != 30000 {
		t.Fatalf("original points must be preserved, got %+v", got)
	}
}

// A zero prior period reports 0% change rather than infinity.
func TestProjectNextChangeFromZeroPrior(t *testing.T) {
	series := []core.TimeSeriesPoint{
		point("2025-01", 0, 0),
		point("2025-02", 50000, 10000),
	}
	p := ProjectNext(series)
	if p.IncomeChangePct != 0 || p.ExpenseChangePct != 0 {
		t.Fatalf("expected 0%% change from zero prior, got %v / %v", p.IncomeChangePct, p.ExpenseChangePct)
	}
}
