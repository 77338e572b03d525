package metrics

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

// Strategy selects which debt receives the extra budget each month.
type Strategy string

const (
	// StrategyAvalanche targets the highest interest rate first; it
	// minimizes total interest paid.
	StrategyAvalanche Strategy = "avalanche"
	// StrategySnowball targets the smallest balance first.
	StrategySnowball Strategy = "snowball"
)

// maxPayoffMonths caps the simulation at 100 years. Inputs whose minimum
// payments do not cover accruing interest would otherwise loop forever.
const maxPayoffMonths = 1200

var ErrUnknownStrategy = errors.New("unknown payoff strategy")

// DebtPayment is one debt's slice of a simulated month.
type DebtPayment struct {
	DebtID   int64
	Name     string
	Interest core.Money
	Payment  core.Money
	Balance  core.Money // remaining after this month's payment
}

// PayoffMonth is one simulated month of the repayment schedule.
type PayoffMonth struct {
	Month    int // 1-based
	Payments []DebtPayment
}

// PayoffPlan summarizes a full payoff simulation.
type PayoffPlan struct {
	Strategy      Strategy
	Months        int
	TotalInterest core.Money
	TotalPaid     core.Money
	Schedule      []PayoffMonth
}

// workingDebt keeps decimal precision during accrual; fractional cents are
// only rounded away at the presentation edge.
type workingDebt struct {
	id      int64
	name    string
	balance decimal.Decimal
	rate    decimal.Decimal // monthly rate
	minPay  decimal.Decimal
	retired bool
}

// SimulatePayoff runs a month-by-month repayment of the given debts under
// an extra monthly budget. Each month accrues interest (balance * rate/12),
// pays every debt its minimum, then directs the extra budget plus the
// minimums freed up by retired debts at the strategy-selected target. The
// input slice is never mutated.
//
// It fails with core.ErrDoesNotConverge when balances still remain after
// 1200 simulated months.
func SimulatePayoff(debts []core.Debt, extraMonthly core.Money, strategy Strategy) (PayoffPlan, error) {
	if strategy != StrategyAvalanche && strategy != StrategySnowball {
		return PayoffPlan{}, ErrUnknownStrategy
	}
	if extraMonthly.Cents < 0 {
		return PayoffPlan{}, core.ErrInvalidAmount
	}
	for _, d := range debts {
		if err := d.Validate(); err != nil {
			return PayoffPlan{}, err
		}
	}

	twelve := decimal.NewFromInt(12)
	working := make([]*workingDebt, 0, len(debts))
	for _, d := range debts {
		w := &workingDebt{
			id:      d.ID,
			name:    d.Name,
			balance: decimal.New(d.Balance.Cents, -2),
			rate:    decimal.NewFromFloat(d.AnnualRate).Div(twelve),
			minPay:  decimal.New(d.MinPayment.Cents, -2),
		}
		w.retired = !w.balance.IsPositive()
		working = append(working, w)
	}

	plan := PayoffPlan{Strategy: strategy}
	extra := decimal.New(extraMonthly.Cents, -2)
	totalInterest := decimal.Zero
	totalPaid := decimal.Zero

	for month := 1; anyActive(working); month++ {
		if month > maxPayoffMonths {
			return PayoffPlan{}, core.ErrDoesNotConverge
		}

		payments := make(map[int64]*DebtPayment, len(working))

		// Interest accrual and minimum payments. Minimums of debts
		// already retired in earlier months feed the extra pool.
		pool := extra
		for _, w := range working {
			if w.retired {
				pool = pool.Add(w.minPay)
				continue
			}
			interest := w.balance.Mul(w.rate)
			w.balance = w.balance.Add(interest)
			totalInterest = totalInterest.Add(interest)

			pay := w.minPay
			if pay.GreaterThan(w.balance) {
				// The tail end of a minimum payment that exceeds the
				// remaining balance rolls into the pool.
				pool = pool.Add(pay.Sub(w.balance))
				pay = w.balance
			}
			w.balance = w.balance.Sub(pay)
			totalPaid = totalPaid.Add(pay)
			if !w.balance.IsPositive() {
				w.retired = true
			}
			payments[w.id] = &DebtPayment{
				DebtID:   w.id,
				Name:     w.name,
				Interest: toCents(interest),
				Payment:  toCents(pay),
			}
		}

		// Direct the pool at the priority debt; anything left after
		// retiring it cascades to the next priority within the month.
		for pool.IsPositive() {
			target := selectTarget(working, strategy)
			if target == nil {
				break
			}
			pay := pool
			if pay.GreaterThan(target.balance) {
				pay = target.balance
			}
			target.balance = target.balance.Sub(pay)
			pool = pool.Sub(pay)
			totalPaid = totalPaid.Add(pay)
			if !target.balance.IsPositive() {
				target.retired = true
			}
			if p, ok := payments[target.id]; ok {
				p.Payment = core.Money{Cents: p.Payment.Cents + toCents(pay).Cents}
			}
		}

		pm := PayoffMonth{Month: month}
		for _, w := range working {
			p, ok := payments[w.id]
			if !ok {
				continue
			}
			p.Balance = toCents(w.balance)
			pm.Payments = append(pm.Payments, *p)
		}
		plan.Schedule = append(plan.Schedule, pm)
		plan.Months = month
	}

	plan.TotalInterest = toCents(totalInterest)
	plan.TotalPaid = toCents(totalPaid)
	return plan, nil
}

func anyActive(working []*workingDebt) bool {
	for _, w := range working {
		if !w.retired {
			return true
		}
	}
	return false
}

// selectTarget picks the next debt for the extra budget. Ties break toward
// the opposite criterion so repeated runs over identical input are
// deterministic.
func selectTarget(working []*workingDebt, strategy Strategy) *workingDebt {
	active := make([]*workingDebt, 0, len(working))
	for _, w := range working {
		if !w.retired {
			active = append(active, w)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if strategy == StrategyAvalanche {
			if !a.rate.Equal(b.rate) {
				return a.rate.GreaterThan(b.rate)
			}
			return a.balance.LessThan(b.balance)
		}
		if !a.balance.Equal(b.balance) {
			return a.balance.LessThan(b.balance)
		}
		return a.rate.GreaterThan(b.rate)
	})
	return active[0]
}

func toCents(d decimal.Decimal) core.Money {
	return core.Money{Cents: d.Round(2).Shift(2).IntPart()}
}
