package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	Daily      Frequency = "daily"
	Weekly     Frequency = "weekly"
	BiWeekly   Frequency = "biweekly"
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	SemiAnnual Frequency = "semiannual"
	Annual     Frequency = "annual"
	Once       Frequency = "once"
)

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

type (
	// Frequency is the recurrence tag stored on incomes and subscriptions.
	Frequency string

	TransactionKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single dated income or expense entry.
	Transaction struct {
		ID          int64
		Date        Date
		Kind        TransactionKind
		Description string
		Amount      Money
		Category    string
	}

	// RecurringIncome is an income source with a recurrence tag, e.g. a
	// salary paid monthly or freelance invoices billed quarterly.
	RecurringIncome struct {
		ID        int64
		Source    string
		Amount    Money
		Frequency Frequency
	}

	// Debt is a read-only snapshot of an outstanding liability. Payoff
	// simulation works on its own copy and never writes back.
	Debt struct {
		ID         int64
		Name       string
		Balance    Money
		AnnualRate float64 // 0.20 means 20% APR
		MinPayment Money
	}

	// Subscription carries the cost of a recurring service plus two
	// user-supplied 0-100 signals. Nil signals mean "not rated yet".
	Subscription struct {
		ID         int64
		Name       string
		Cost       Money
		Frequency  Frequency
		UsageScore *int
		ValueScore *int
	}

	// TimeSeriesPoint is one calendar month of aggregated cash flow.
	// Period uses the "2006-01" layout; series are ordered ascending.
	TimeSeriesPoint struct {
		Period   string
		Income   Money
		Expenses Money
	}

	// CategoryAmount is an amount aggregated under a category label.
	CategoryAmount struct {
		Name   string
		Amount Money
	}
)

var (
	// ErrValidation tags input validation failures so transport layers
	// can tell them apart from infrastructure errors.
	ErrValidation = errors.New("validation failed")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidRate      = errors.New("invalid interest rate")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrUnknownKind      = errors.New("unknown transaction kind")
	ErrDoesNotConverge  = errors.New("payment plan does not converge")

	// ErrNotFound marks lookups for records that do not exist, so
	// transport layers can answer 404 instead of 500.
	ErrNotFound = errors.New("not found")
)

// PeriodLayout is the canonical month-key layout used across series.
const PeriodLayout = "2006-01"

var periodRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidPeriod reports whether s is a well-formed "YYYY-MM" month key.
func ValidPeriod(s string) bool {
	return periodRe.MatchString(s)
}

// Known reports whether f is a recognized recurrence tag. Stored rows may
// carry tags that predate the current schema; callers degrade those to
// monthly instead of rejecting the record.
func (f Frequency) Known() bool {
	switch f {
	case Daily, Weekly, BiWeekly, Monthly, Quarterly, SemiAnnual, Annual, Once:
		return true
	}
	return false
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Period returns the month key this date falls in.
func (d Date) Period() string {
	return d.Format(PeriodLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsZero reports whether the amount is exactly zero cents.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Kind != KindIncome && t.Kind != KindExpense {
		return ErrUnknownKind
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (ri RecurringIncome) Validate() error {
	if len(strings.TrimSpace(ri.Source)) == 0 {
		return errors.New("empty income source")
	}
	if ri.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Debt) Validate() error {
	if len(strings.TrimSpace(d.Name)) == 0 {
		return errors.New("empty debt name")
	}
	if d.Balance.Cents < 0 {
		return ErrInvalidAmount
	}
	if d.AnnualRate < 0 {
		return ErrInvalidRate
	}
	if d.MinPayment.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Subscription) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return errors.New("empty subscription name")
	}
	if s.Cost.Cents <= 0 {
		return ErrInvalidAmount
	}
	if s.UsageScore != nil && (*s.UsageScore < 0 || *s.UsageScore > 100) {
		return errors.New("usage score out of range")
	}
	if s.ValueScore != nil && (*s.ValueScore < 0 || *s.ValueScore > 100) {
		return errors.New("value score out of range")
	}
	return nil
}

func (p TimeSeriesPoint) Validate() error {
	if !ValidPeriod(p.Period) {
		return ErrInvalidPeriod
	}
	if p.Income.Cents < 0 || p.Expenses.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
