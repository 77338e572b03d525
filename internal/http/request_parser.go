// Package http provides the JSON API server and handler implementations.
//
// This file implements utilities for parsing and validating JSON request
// bodies and query parameters into domain types.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finsight/internal/core"
	"finsight/internal/metrics"
)

// maxBodyBytes caps request bodies, all payloads here are small.
const maxBodyBytes = 1 << 20

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parsePeriod extracts a YYYY-MM period from the query, defaulting to the
// current month.
func parsePeriod(r *http.Request) (string, error) {
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if period == "" {
		return time.Now().Format(core.PeriodLayout), nil
	}
	if !core.ValidPeriod(period) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
	return period, nil
}

// pathID parses the {id} path segment as an int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type transactionRequest struct {
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

func (req transactionRequest) toDomain() (core.Transaction, error) {
	parsed, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid date %q: %w", req.Date, err)
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	return core.Transaction{
		Date:        core.Date{Time: parsed},
		Kind:        core.TransactionKind(sanitizeInput(req.Kind)),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
	}, nil
}

type incomeRequest struct {
	Source    string `json:"source"`
	Amount    string `json:"amount"`
	Frequency string `json:"frequency"`
}

func (req incomeRequest) toDomain() (core.RecurringIncome, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RecurringIncome{}, err
	}

	return core.RecurringIncome{
		Source:    sanitizeInput(req.Source),
		Amount:    core.Money{Cents: cents},
		Frequency: core.Frequency(sanitizeInput(req.Frequency)),
	}, nil
}

type debtRequest struct {
	Name       string  `json:"name"`
	Balance    string  `json:"balance"`
	AnnualRate float64 `json:"annual_rate"`
	MinPayment string  `json:"min_payment"`
}

func (req debtRequest) toDomain() (core.Debt, error) {
	balance, err := core.ParseDecimalToCents(req.Balance)
	if err != nil {
		return core.Debt{}, fmt.Errorf("balance: %w", err)
	}
	minPayment, err := core.ParseDecimalToCents(req.MinPayment)
	if err != nil {
		return core.Debt{}, fmt.Errorf("min_payment: %w", err)
	}

	return core.Debt{
		Name:       sanitizeInput(req.Name),
		Balance:    core.Money{Cents: balance},
		AnnualRate: req.AnnualRate,
		MinPayment: core.Money{Cents: minPayment},
	}, nil
}

type subscriptionRequest struct {
	Name       string `json:"name"`
	Cost       string `json:"cost"`
	Frequency  string `json:"frequency"`
	UsageScore *int   `json:"usage_score"`
	ValueScore *int   `json:"value_score"`
}

func (req subscriptionRequest) toDomain() (core.Subscription, error) {
	cents, err := core.ParseDecimalToCents(req.Cost)
	if err != nil {
		return core.Subscription{}, err
	}

	return core.Subscription{
		Name:       sanitizeInput(req.Name),
		Cost:       core.Money{Cents: cents},
		Frequency:  core.Frequency(sanitizeInput(req.Frequency)),
		UsageScore: req.UsageScore,
		ValueScore: req.ValueScore,
	}, nil
}

type payoffRequest struct {
	Strategy     string `json:"strategy"`
	ExtraMonthly string `json:"extra_monthly"`
}

func (req payoffRequest) toDomain() (core.Money, metrics.Strategy, error) {
	strategy := metrics.Strategy(sanitizeInput(req.Strategy))
	switch strategy {
	case metrics.StrategyAvalanche, metrics.StrategySnowball:
	default:
		return core.Money{}, "", fmt.Errorf("%w: %q", metrics.ErrUnknownStrategy, req.Strategy)
	}

	extra := core.Money{}
	if strings.TrimSpace(req.ExtraMonthly) != "" {
		cents, err := core.ParseDecimalToCents(req.ExtraMonthly)
		if err != nil {
			return core.Money{}, "", fmt.Errorf("extra_monthly: %w", err)
		}
		extra.Cents = cents
	}

	return extra, strategy, nil
}
