package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finsight/internal/core"
	"finsight/internal/metrics"
	"finsight/internal/storage"
)

// Snapshot kinds persisted by the insight service.
const (
	SnapshotForecast          = "forecast"
	SnapshotDiversification   = "diversification"
	SnapshotPayoffPlan        = "payoff_plan"
	SnapshotSubscriptionValue = "subscription_value"
)

// defaultSeriesWindow is how many months of history feed the projection.
const defaultSeriesWindow = 12

// MetricsRepository is the storage surface the insight service reads from.
type MetricsRepository interface {
	MonthlySeries(ctx context.Context, months int) ([]core.TimeSeriesPoint, error)
	IncomeBySource(ctx context.Context, period string) ([]core.CategoryAmount, error)
	ListRecurringIncomes(ctx context.Context) ([]core.RecurringIncome, error)
	ListDebts(ctx context.Context) ([]core.Debt, error)
	ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
	SaveSnapshot(ctx context.Context, s storage.MetricSnapshot) error
	LatestSnapshot(ctx context.Context, kind string) (storage.MetricSnapshot, error)
}

// EventPublisher announces persisted snapshots. Publishing is best effort,
// a failed publish never fails the computation.
type EventPublisher interface {
	PublishSnapshotCreated(ctx context.Context, snapshotID, kind, period string) error
}

// InsightService orchestrates repository reads into derived metric results
type InsightService struct {
	repo      MetricsRepository
	publisher EventPublisher
}

func NewInsightService(repo MetricsRepository, publisher EventPublisher) *InsightService {
	return &InsightService{
		repo:      repo,
		publisher: publisher,
	}
}

// Forecast projects next month's cash flow from the stored monthly series
func (s *InsightService) Forecast(ctx context.Context) (metrics.Projection, error) {
	series, err := s.repo.MonthlySeries(ctx, defaultSeriesWindow)
	if err != nil {
		return metrics.Projection{}, fmt.Errorf("load monthly series: %w", err)
	}

	// Months without transactions are absent from the stored series; the
	// regression needs them present as zeros to keep month offsets honest.
	series = metrics.FillSeriesGaps(series)
	projection := metrics.ProjectNext(series)

	period := time.Now().Format(core.PeriodLayout)
	if n := len(series); n > 0 {
		period = series[n-1].Period
	}
	s.saveSnapshot(ctx, SnapshotForecast, period, projection)

	return projection, nil
}

// Diversification scores how spread out income is across sources for a
// month. Recurring incomes contribute their monthly equivalent, one-off
// income transactions contribute their recorded totals.
func (s *InsightService) Diversification(ctx context.Context, period string) (metrics.DiversificationResult, error) {
	if !core.ValidPeriod(period) {
		return metrics.DiversificationResult{}, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}

	bySource, err := s.repo.IncomeBySource(ctx, period)
	if err != nil {
		return metrics.DiversificationResult{}, fmt.Errorf("load income by source: %w", err)
	}

	recurring, err := s.repo.ListRecurringIncomes(ctx)
	if err != nil {
		return metrics.DiversificationResult{}, fmt.Errorf("load recurring incomes: %w", err)
	}

	totals := make(map[string]int64, len(bySource)+len(recurring))
	order := make([]string, 0, len(bySource)+len(recurring))
	add := func(name string, cents int64) {
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += cents
	}

	for _, c := range bySource {
		add(c.Name, c.Amount.Cents)
	}
	for _, ri := range recurring {
		if _, known := metrics.Multiplier(ri.Frequency); !known {
			slog.WarnContext(ctx, "Unknown income frequency, treating as monthly",
				"source", ri.Source,
				"frequency", ri.Frequency)
		}
		monthly, err := metrics.MonthlyEquivalent(ri.Amount, ri.Frequency)
		if err != nil {
			return metrics.DiversificationResult{}, fmt.Errorf("normalize income %q: %w", ri.Source, err)
		}
		add(ri.Source, monthly.Cents)
	}

	amounts := make([]core.CategoryAmount, 0, len(order))
	for _, name := range order {
		amounts = append(amounts, core.CategoryAmount{
			Name:   name,
			Amount: core.Money{Cents: totals[name]},
		})
	}

	result := metrics.DiversificationScore(amounts)
	s.saveSnapshot(ctx, SnapshotDiversification, period, result)

	return result, nil
}

// PayoffPlan simulates paying down all stored debts with the given strategy
func (s *InsightService) PayoffPlan(ctx context.Context, extraMonthly core.Money, strategy metrics.Strategy) (metrics.PayoffPlan, error) {
	debts, err := s.repo.ListDebts(ctx)
	if err != nil {
		return metrics.PayoffPlan{}, fmt.Errorf("load debts: %w", err)
	}

	plan, err := metrics.SimulatePayoff(debts, extraMonthly, strategy)
	if err != nil {
		return metrics.PayoffPlan{}, err
	}

	// The full schedule can run to hundreds of months, the snapshot keeps
	// only the headline numbers.
	summary := struct {
		Strategy      metrics.Strategy `json:"strategy"`
		ExtraMonthly  string           `json:"extra_monthly"`
		Months        int              `json:"months"`
		TotalInterest string           `json:"total_interest"`
		TotalPaid     string           `json:"total_paid"`
	}{
		Strategy:      strategy,
		ExtraMonthly:  extraMonthly.String(),
		Months:        plan.Months,
		TotalInterest: plan.TotalInterest.String(),
		TotalPaid:     plan.TotalPaid.String(),
	}
	s.saveSnapshot(ctx, SnapshotPayoffPlan, time.Now().Format(core.PeriodLayout), summary)

	return plan, nil
}

// SubscriptionValue ranks stored subscriptions by cost against their
// usage and perceived value signals
func (s *InsightService) SubscriptionValue(ctx context.Context) ([]metrics.SubscriptionValue, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	for _, sub := range subs {
		if _, known := metrics.Multiplier(sub.Frequency); !known {
			slog.WarnContext(ctx, "Unknown subscription frequency, treating as monthly",
				"subscription", sub.Name,
				"frequency", sub.Frequency)
		}
	}

	report := metrics.ClassifyValue(subs)
	s.saveSnapshot(ctx, SnapshotSubscriptionValue, time.Now().Format(core.PeriodLayout), report)

	return report, nil
}

// LatestSnapshot returns the most recent stored result of a metric kind
// without recomputing it. Unknown kinds fail validation rather than hit
// the repository.
func (s *InsightService) LatestSnapshot(ctx context.Context, kind string) (storage.MetricSnapshot, error) {
	switch kind {
	case SnapshotForecast, SnapshotDiversification, SnapshotPayoffPlan, SnapshotSubscriptionValue:
	default:
		return storage.MetricSnapshot{}, fmt.Errorf("%w: unknown snapshot kind %q", core.ErrValidation, kind)
	}

	snap, err := s.repo.LatestSnapshot(ctx, kind)
	if err != nil {
		return storage.MetricSnapshot{}, fmt.Errorf("load latest %s snapshot: %w", kind, err)
	}
	return snap, nil
}

// RecomputeAll refreshes every metric snapshot for a period. Used by the
// worker on schedule and on recompute events.
func (s *InsightService) RecomputeAll(ctx context.Context, period string) error {
	if _, err := s.Forecast(ctx); err != nil {
		return fmt.Errorf("recompute forecast: %w", err)
	}
	if _, err := s.Diversification(ctx, period); err != nil {
		return fmt.Errorf("recompute diversification: %w", err)
	}
	if _, err := s.SubscriptionValue(ctx); err != nil {
		return fmt.Errorf("recompute subscription value: %w", err)
	}

	slog.InfoContext(ctx, "Recomputed metric snapshots", "period", period)
	return nil
}

// saveSnapshot persists a computed result and announces it. Snapshot
// persistence failures are logged, not returned: the computation already
// succeeded and the caller gets its result.
func (s *InsightService) saveSnapshot(ctx context.Context, kind, period string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal snapshot payload",
			"kind", kind, "error", err)
		return
	}

	snap := storage.MetricSnapshot{
		ID:      uuid.NewString(),
		Kind:    kind,
		Period:  period,
		Payload: string(body),
	}

	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		slog.ErrorContext(ctx, "Failed to save snapshot",
			"kind", kind, "period", period, "error", err)
		return
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSnapshotCreated(ctx, snap.ID, kind, period); err != nil {
		slog.ErrorContext(ctx, "Failed to publish snapshot event",
			"snapshot_id", snap.ID, "kind", kind, "error", err)
	}
}
