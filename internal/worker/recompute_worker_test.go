package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/core"
	"finsight/internal/export/memory"
	"finsight/internal/storage"
)

type fakeStore struct {
	pending   []storage.MetricSnapshot
	exported  map[string]bool
	listCalls int
	listErr   error
}

func newFakeStore(pending ...storage.MetricSnapshot) *fakeStore {
	return &fakeStore{pending: pending, exported: make(map[string]bool)}
}

func (f *fakeStore) ListUnexportedSnapshots(_ context.Context, limit int) ([]storage.MetricSnapshot, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []storage.MetricSnapshot
	for _, s := range f.pending {
		if f.exported[s.ID] {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkSnapshotExported(_ context.Context, id string) error {
	f.exported[id] = true
	return nil
}

type fakeRecomputer struct {
	periods []string
	err     error
}

func (f *fakeRecomputer) RecomputeAll(_ context.Context, period string) error {
	f.periods = append(f.periods, period)
	return f.err
}

type failingWriter struct{}

func (failingWriter) Append(context.Context, storage.MetricSnapshot) (string, error) {
	return "", errors.New("sink unavailable")
}

func snap(id, kind string) storage.MetricSnapshot {
	return storage.MetricSnapshot{ID: id, Kind: kind, Period: "2026-08", Payload: "{}"}
}

func TestHandleRecomputeMessageRecomputesAndExports(t *testing.T) {
	store := newFakeStore(snap("s1", "forecast"), snap("s2", "diversification"))
	rec := &fakeRecomputer{}
	sink := memory.New()
	w := NewRecomputeWorker(store, rec, sink, 10)

	msg := amqp.NewRecomputeMessage("2026-07", "transaction_created")
	if err := w.HandleRecomputeMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleRecomputeMessage: %v", err)
	}

	if len(rec.periods) != 1 || rec.periods[0] != "2026-07" {
		t.Errorf("recomputed periods = %v, want [2026-07]", rec.periods)
	}
	if got := len(sink.Items()); got != 2 {
		t.Errorf("exported %d snapshots, want 2", got)
	}
	if !store.exported["s1"] || !store.exported["s2"] {
		t.Errorf("snapshots not marked exported: %v", store.exported)
	}
}

func TestHandleRecomputeMessageDefaultsToCurrentPeriod(t *testing.T) {
	rec := &fakeRecomputer{}
	w := NewRecomputeWorker(newFakeStore(), rec, nil, 10)

	if err := w.HandleRecomputeMessage(context.Background(), &amqp.RecomputeMessage{}); err != nil {
		t.Fatalf("HandleRecomputeMessage: %v", err)
	}

	want := time.Now().Format(core.PeriodLayout)
	if len(rec.periods) != 1 || rec.periods[0] != want {
		t.Errorf("recomputed periods = %v, want [%s]", rec.periods, want)
	}
}

func TestHandleRecomputeMessagePropagatesRecomputeError(t *testing.T) {
	rec := &fakeRecomputer{err: errors.New("db locked")}
	w := NewRecomputeWorker(newFakeStore(), rec, memory.New(), 10)

	err := w.HandleRecomputeMessage(context.Background(), amqp.NewRecomputeMessage("2026-08", "manual"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestHandleSnapshotEventExportsBacklog(t *testing.T) {
	store := newFakeStore(snap("s1", "forecast"), snap("s2", "payoff_plan"))
	sink := memory.New()
	w := NewRecomputeWorker(store, &fakeRecomputer{}, sink, 10)

	msg := amqp.NewSnapshotCreatedMessage("s1", "forecast", "2026-08")
	if err := w.HandleSnapshotEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleSnapshotEvent: %v", err)
	}

	// The event only triggers the pass; everything pending ships with it.
	if got := len(sink.Items()); got != 2 {
		t.Errorf("exported %d snapshots, want 2", got)
	}
}

func TestHandleSnapshotEventRoundTripsWire(t *testing.T) {
	store := newFakeStore(snap("s1", "forecast"))
	sink := memory.New()
	w := NewRecomputeWorker(store, &fakeRecomputer{}, sink, 10)

	body, err := amqp.NewSnapshotCreatedMessage("s1", "forecast", "2026-08").ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	msg, err := amqp.SnapshotCreatedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("SnapshotCreatedMessageFromJSON: %v", err)
	}

	if err := w.HandleSnapshotEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleSnapshotEvent: %v", err)
	}
	if got := len(sink.Items()); got != 1 {
		t.Errorf("exported %d snapshots, want 1", got)
	}
}

func TestExportPendingSnapshotsWithoutSink(t *testing.T) {
	store := newFakeStore(snap("s1", "forecast"))
	w := NewRecomputeWorker(store, &fakeRecomputer{}, nil, 10)

	if err := w.ExportPendingSnapshots(context.Background()); err != nil {
		t.Fatalf("ExportPendingSnapshots: %v", err)
	}
	if store.listCalls != 0 {
		t.Errorf("store queried %d times without a sink, want 0", store.listCalls)
	}
}

func TestExportFailureKeepsSnapshotPending(t *testing.T) {
	store := newFakeStore(snap("s1", "forecast"))
	w := NewRecomputeWorker(store, &fakeRecomputer{}, failingWriter{}, 10)

	if err := w.ExportPendingSnapshots(context.Background()); err != nil {
		t.Fatalf("ExportPendingSnapshots: %v", err)
	}
	if store.exported["s1"] {
		t.Error("failed export must not be marked exported")
	}
}

func TestExportHonorsBatchSize(t *testing.T) {
	store := newFakeStore(snap("s1", "forecast"), snap("s2", "forecast"), snap("s3", "forecast"))
	sink := memory.New()
	w := NewRecomputeWorker(store, &fakeRecomputer{}, sink, 2)

	if err := w.ExportPendingSnapshots(context.Background()); err != nil {
		t.Fatalf("ExportPendingSnapshots: %v", err)
	}
	if got := len(sink.Items()); got != 2 {
		t.Errorf("exported %d snapshots, want batch of 2", got)
	}
}

func TestStartupExportCheckDrainsBacklog(t *testing.T) {
	store := newFakeStore(snap("s1", "forecast"), snap("s2", "payoff_plan"), snap("s3", "subscription_value"))
	sink := memory.New()
	w := NewRecomputeWorker(store, &fakeRecomputer{}, sink, 2)

	if err := w.StartupExportCheck(context.Background()); err != nil {
		t.Fatalf("StartupExportCheck: %v", err)
	}
	if got := len(sink.Items()); got != 3 {
		t.Errorf("exported %d snapshots, want 3", got)
	}
}
