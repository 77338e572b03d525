package metrics

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"finsight/internal/core"
)

func debt(id int64, name string, balance int64, rate float64, minPay int64) core.Debt {
	return core.Debt{
		ID:         id,
		Name:       name,
		Balance:    core.Money{Cents: balance},
		AnnualRate: rate,
		MinPayment: core.Money{Cents: minPay},
	}
}

func threeDebts() []core.Debt {
	return []core.Debt{
		debt(1, "A", 100000, 0.20, 5000),
		debt(2, "B", 200000, 0.10, 6000),
		debt(3, "C", 50000, 0.05, 2000),
	}
}

func TestSimulatePayoffUnknownStrategy(t *testing.T) {
	_, err := SimulatePayoff(threeDebts(), core.Money{Cents: 10000}, Strategy("tsunami"))
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestSimulatePayoffEmptyDebts(t *testing.T) {
	plan, err := SimulatePayoff(nil, core.Money{Cents: 10000}, StrategyAvalanche)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Months != 0 || plan.TotalInterest.Cents != 0 || plan.TotalPaid.Cents != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestSimulatePayoffDoesNotMutateInput(t *testing.T) {
	debts := threeDebts()
	before := append([]core.Debt(nil), debts...)
	if _, err := SimulatePayoff(debts, core.Money{Cents: 10000}, StrategySnowball); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(debts, before) {
		t.Fatalf("input debts were mutated: %+v vs %+v", debts, before)
	}
}

// With minimum payments below the monthly interest the balance only grows;
// the simulator must refuse rather than loop.
func TestSimulatePayoffDoesNotConverge(t *testing.T) {
	debts := []core.Debt{debt(1, "trap", 1000000, 0.30, 100)}
	_, err := SimulatePayoff(debts, core.Money{}, StrategyAvalanche)
	if !errors.Is(err, core.ErrDoesNotConverge) {
		t.Fatalf("expected ErrDoesNotConverge, got %v", err)
	}
}

// Under avalanche the highest-rate debt (A at 20%) must retire first, and
// repeated runs over identical input produce an identical plan.
func TestSimulatePayoffAvalancheOrderAndDeterminism(t *testing.T) {
	plan, err := SimulatePayoff(threeDebts(), core.Money{Cents: 10000}, StrategyAvalanche)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retired := map[string]int{}
	for _, month := range plan.Schedule {
		for _, p := range month.Payments {
			if p.Balance.Cents == 0 {
				if _, seen := retired[p.Name]; !seen {
					retired[p.Name] = month.Month
				}
			}
		}
	}
	if retired["A"] == 0 || retired["B"] == 0 || retired["C"] == 0 {
		t.Fatalf("not all debts retired: %v", retired)
	}
	if retired["A"] > retired["B"] || retired["A"] > retired["C"] {
		t.Fatalf("avalanche should retire A first: %v", retired)
	}

	again, err := SimulatePayoff(threeDebts(), core.Money{Cents: 10000}, StrategyAvalanche)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(plan, again) {
		t.Fatalf("plan not reproducible across identical runs")
	}
}

// After a debt retires, its minimum payment must flow to the next target:
// the month after A retires, the total directed at other debts grows by at
// least A's minimum.
func TestSimulatePayoffReallocatesFreedMinimums(t *testing.T) {
	debts := []core.Debt{
		debt(1, "small", 20000, 0.15, 10000), // retires within a couple of months
		debt(2, "large", 500000, 0.10, 5000),
	}
	plan, err := SimulatePayoff(debts, core.Money{}, StrategySnowball)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retiredMonth := 0
	for _, month := range plan.Schedule {
		for _, p := range month.Payments {
			if p.Name == "small" && p.Balance.Cents == 0 {
				retiredMonth = month.Month
			}
		}
		if retiredMonth != 0 {
			break
		}
	}
	if retiredMonth == 0 || retiredMonth >= plan.Months {
		t.Fatalf("expected small debt to retire mid-plan, got month %d of %d", retiredMonth, plan.Months)
	}

	var largePayAfter int64
	for _, month := range plan.Schedule {
		if month.Month != retiredMonth+1 {
			continue
		}
		for _, p := range month.Payments {
			if p.Name == "large" {
				largePayAfter = p.Payment.Cents
			}
		}
	}
	// 5000 own minimum + 10000 freed from the retired debt.
	if largePayAfter < 15000 {
		t.Fatalf("expected freed minimum folded in (>=15000), got %d", largePayAfter)
	}
}

// Conservation: everything paid equals starting balances plus interest.
func TestSimulatePayoffConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		debts := randomDebts(rng)
		for _, strategy := range []Strategy{StrategyAvalanche, StrategySnowball} {
			plan, err := SimulatePayoff(debts, core.Money{Cents: int64(rng.Intn(50000))}, strategy)
			if err != nil {
				t.Fatalf("case %d %s: %v", i, strategy, err)
			}
			var initial int64
			for _, d := range debts {
				initial += d.Balance.Cents
			}
			want := initial + plan.TotalInterest.Cents
			diff := plan.TotalPaid.Cents - want
			if diff < -2 || diff > 2 {
				t.Fatalf("case %d %s: paid %d, want %d (initial %d + interest %d)",
					i, strategy, plan.TotalPaid.Cents, want, initial, plan.TotalInterest.Cents)
			}
		}
	}
}

// Avalanche is interest-optimal, so it never takes longer than snowball.
func TestSimulatePayoffAvalancheNoSlowerThanSnowball(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 25; i++ {
		debts := randomDebts(rng)
		extra := core.Money{Cents: int64(10000 + rng.Intn(40000))}

		avalanche, err := SimulatePayoff(debts, extra, StrategyAvalanche)
		if err != nil {
			t.Fatalf("case %d avalanche: %v", i, err)
		}
		snowball, err := SimulatePayoff(debts, extra, StrategySnowball)
		if err != nil {
			t.Fatalf("case %d snowball: %v", i, err)
		}
		if avalanche.Months > snowball.Months {
			t.Fatalf("case %d: avalanche %d months > snowball %d months", i, avalanche.Months, snowball.Months)
		}
		if avalanche.TotalInterest.Cents > snowball.TotalInterest.Cents+2 {
			t.Fatalf("case %d: avalanche interest %d > snowball %d", i, avalanche.TotalInterest.Cents, snowball.TotalInterest.Cents)
		}
	}
}

// randomDebts builds 2-5 debts whose minimum payments always cover accrued
// interest, so every simulation converges.
func randomDebts(rng *rand.Rand) []core.Debt {
	n := 2 + rng.Intn(4)
	debts := make([]core.Debt, n)
	for i := range debts {
		balance := int64(50000 + rng.Intn(1000000))
		rate := float64(rng.Intn(30)) / 100
		// interest share plus a slice of principal
		minPay := int64(float64(balance)*rate/12) + 2000 + int64(rng.Intn(10000))
		debts[i] = debt(int64(i+1), string(rune('A'+i)), balance, rate, minPay)
	}
	return debts
}
