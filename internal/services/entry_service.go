package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finsight/internal/core"
)

func currentPeriod() string {
	return time.Now().Format(core.PeriodLayout)
}

// EntryRepository is the storage surface for the four entity tables.
type EntryRepository interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	ListTransactions(ctx context.Context, period string) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error

	CreateRecurringIncome(ctx context.Context, ri core.RecurringIncome) (int64, error)
	ListRecurringIncomes(ctx context.Context) ([]core.RecurringIncome, error)
	DeleteRecurringIncome(ctx context.Context, id int64) error

	CreateDebt(ctx context.Context, d core.Debt) (int64, error)
	ListDebts(ctx context.Context) ([]core.Debt, error)
	DeleteDebt(ctx context.Context, id int64) error

	CreateSubscription(ctx context.Context, s core.Subscription) (int64, error)
	ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
	DeleteSubscription(ctx context.Context, id int64) error
}

// RecomputePublisher asks the worker to refresh metric snapshots.
type RecomputePublisher interface {
	PublishRecompute(ctx context.Context, period, reason string) error
}

// EntryService handles entity writes and reads. Every successful write
// publishes a recompute request so derived metrics catch up; a failed
// publish never fails the write, the data is already saved locally.
type EntryService struct {
	repo      EntryRepository
	publisher RecomputePublisher
}

func NewEntryService(repo EntryRepository, publisher RecomputePublisher) *EntryService {
	return &EntryService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *EntryService) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}

	id, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	s.publishRecompute(ctx, t.Date.Period(), "transaction_created")
	return id, nil
}

func (s *EntryService) ListTransactions(ctx context.Context, period string) ([]core.Transaction, error) {
	if !core.ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
	return s.repo.ListTransactions(ctx, period)
}

func (s *EntryService) DeleteTransaction(ctx context.Context, id int64, period string) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publishRecompute(ctx, period, "transaction_deleted")
	return nil
}

func (s *EntryService) CreateRecurringIncome(ctx context.Context, ri core.RecurringIncome) (int64, error) {
	if err := ri.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}

	id, err := s.repo.CreateRecurringIncome(ctx, ri)
	if err != nil {
		return 0, fmt.Errorf("create recurring income: %w", err)
	}

	s.publishRecompute(ctx, currentPeriod(), "income_created")
	return id, nil
}

func (s *EntryService) ListRecurringIncomes(ctx context.Context) ([]core.RecurringIncome, error) {
	return s.repo.ListRecurringIncomes(ctx)
}

func (s *EntryService) DeleteRecurringIncome(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRecurringIncome(ctx, id); err != nil {
		return fmt.Errorf("delete recurring income: %w", err)
	}
	s.publishRecompute(ctx, currentPeriod(), "income_deleted")
	return nil
}

func (s *EntryService) CreateDebt(ctx context.Context, d core.Debt) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}

	id, err := s.repo.CreateDebt(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("create debt: %w", err)
	}

	slog.InfoContext(ctx, "Debt saved", "id", id, "name", d.Name)
	return id, nil
}

func (s *EntryService) ListDebts(ctx context.Context) ([]core.Debt, error) {
	return s.repo.ListDebts(ctx)
}

func (s *EntryService) DeleteDebt(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDebt(ctx, id); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return nil
}

func (s *EntryService) CreateSubscription(ctx context.Context, sub core.Subscription) (int64, error) {
	if err := sub.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}

	s.publishRecompute(ctx, currentPeriod(), "subscription_created")
	return id, nil
}

func (s *EntryService) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	return s.repo.ListSubscriptions(ctx)
}

func (s *EntryService) DeleteSubscription(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	s.publishRecompute(ctx, currentPeriod(), "subscription_deleted")
	return nil
}

func (s *EntryService) publishRecompute(ctx context.Context, period, reason string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Recompute publisher not available, skipping", "reason", reason)
		return
	}
	if err := s.publisher.PublishRecompute(ctx, period, reason); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recompute message",
			"period", period, "reason", reason, "error", err)
	}
}
