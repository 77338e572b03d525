package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/core"
	"finsight/internal/export"
	"finsight/internal/storage"
)

// SnapshotStore is the slice of the repository the worker needs for export.
type SnapshotStore interface {
	ListUnexportedSnapshots(ctx context.Context, limit int) ([]storage.MetricSnapshot, error)
	MarkSnapshotExported(ctx context.Context, id string) error
}

// Recomputer refreshes the derived metrics for a period.
type Recomputer interface {
	RecomputeAll(ctx context.Context, period string) error
}

// RecomputeWorker consumes recompute requests, refreshes metric snapshots
// and ships finished snapshots to the configured export sink.
type RecomputeWorker struct {
	store     SnapshotStore
	insights  Recomputer
	writer    export.SnapshotWriter
	batchSize int
}

func NewRecomputeWorker(store SnapshotStore, insights Recomputer, writer export.SnapshotWriter, batchSize int) *RecomputeWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &RecomputeWorker{
		store:     store,
		insights:  insights,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleRecomputeMessage processes a single recompute request from AMQP.
func (w *RecomputeWorker) HandleRecomputeMessage(ctx context.Context, msg *amqp.RecomputeMessage) error {
	period := msg.Period
	if period == "" {
		period = time.Now().Format(core.PeriodLayout)
	}

	slog.InfoContext(ctx, "Processing recompute message",
		"period", period,
		"reason", msg.Reason)

	if err := w.insights.RecomputeAll(ctx, period); err != nil {
		return fmt.Errorf("recompute metrics for %s: %w", period, err)
	}

	// Freshly written snapshots ride along in the same pass
	if err := w.ExportPendingSnapshots(ctx); err != nil {
		slog.ErrorContext(ctx, "Export after recompute failed", "error", err)
	}

	return nil
}

// HandleSnapshotEvent reacts to a snapshot created event by shipping the
// export backlog. The event is a nudge, not a payload: the snapshot it
// announces is picked up from storage with everything else still pending.
func (w *RecomputeWorker) HandleSnapshotEvent(ctx context.Context, msg *amqp.SnapshotCreatedMessage) error {
	slog.InfoContext(ctx, "Processing snapshot event",
		"snapshot_id", msg.SnapshotID,
		"kind", msg.Kind,
		"period", msg.Period)

	return w.ExportPendingSnapshots(ctx)
}

// RecomputeCurrentPeriod refreshes metrics for the current month.
// Used by the cron schedule so metrics stay fresh without any writes.
func (w *RecomputeWorker) RecomputeCurrentPeriod(ctx context.Context) error {
	period := time.Now().Format(core.PeriodLayout)
	if err := w.insights.RecomputeAll(ctx, period); err != nil {
		return fmt.Errorf("scheduled recompute for %s: %w", period, err)
	}
	return w.ExportPendingSnapshots(ctx)
}

// ExportPendingSnapshots ships one batch of unexported snapshots to the sink.
// A snapshot that fails to export stays pending and is retried next pass.
func (w *RecomputeWorker) ExportPendingSnapshots(ctx context.Context) error {
	if w.writer == nil {
		return nil
	}

	pending, err := w.store.ListUnexportedSnapshots(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported snapshots: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Exporting pending snapshots", "count", len(pending))

	for _, snap := range pending {
		ref, err := w.writer.Append(ctx, snap)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export snapshot",
				"snapshot_id", snap.ID,
				"kind", snap.Kind,
				"error", err)
			continue
		}

		if err := w.store.MarkSnapshotExported(ctx, snap.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark snapshot exported",
				"snapshot_id", snap.ID,
				"error", err)
			continue
		}

		slog.InfoContext(ctx, "Snapshot exported",
			"snapshot_id", snap.ID,
			"kind", snap.Kind,
			"period", snap.Period,
			"export_ref", ref)
	}

	return nil
}

// StartupExportCheck drains the export backlog at worker startup.
// This recovers snapshots left behind by missed messages or worker downtime.
func (w *RecomputeWorker) StartupExportCheck(ctx context.Context) error {
	if w.writer == nil {
		slog.InfoContext(ctx, "No export sink configured, skipping startup export check")
		return nil
	}

	pending, err := w.store.ListUnexportedSnapshots(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list snapshots for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending snapshots found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending snapshots on startup, exporting...",
		"count", len(pending))

	exported := 0
	failed := 0

	for _, snap := range pending {
		ref, err := w.writer.Append(ctx, snap)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export snapshot during startup",
				"snapshot_id", snap.ID, "error", err)
			failed++
			continue
		}

		if err := w.store.MarkSnapshotExported(ctx, snap.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark snapshot exported",
				"snapshot_id", snap.ID, "error", err)
			failed++
			continue
		}

		slog.DebugContext(ctx, "Snapshot exported", "snapshot_id", snap.ID, "export_ref", ref)
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}
