package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the periodic recompute and export passes.
type Scheduler struct {
	cron   *cron.Cron
	worker *RecomputeWorker
	ctx    context.Context
}

func NewScheduler(ctx context.Context, w *RecomputeWorker) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		worker: w,
		ctx:    ctx,
	}
}

// Register wires the recompute and export schedules. Specs use the standard
// five-field cron format.
func (s *Scheduler) Register(recomputeSpec, exportSpec string) error {
	if _, err := s.cron.AddFunc(recomputeSpec, s.recomputeTask); err != nil {
		return fmt.Errorf("register recompute schedule %q: %w", recomputeSpec, err)
	}
	if _, err := s.cron.AddFunc(exportSpec, s.exportTask); err != nil {
		return fmt.Errorf("register export schedule %q: %w", exportSpec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.InfoContext(s.ctx, "Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) recomputeTask() {
	slog.InfoContext(s.ctx, "Running scheduled recompute")
	if err := s.worker.RecomputeCurrentPeriod(s.ctx); err != nil {
		slog.ErrorContext(s.ctx, "Scheduled recompute failed", "error", err)
	}
}

func (s *Scheduler) exportTask() {
	if err := s.worker.ExportPendingSnapshots(s.ctx); err != nil {
		slog.ErrorContext(s.ctx, "Scheduled export failed", "error", err)
	}
}
