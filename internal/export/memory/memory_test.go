package memory

import (
	"context"
	"testing"

	"finsight/internal/storage"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()

	ref, err := s.Append(context.Background(), storage.MetricSnapshot{
		ID:      "snap-1",
		Kind:    "forecast",
		Period:  "2026-08",
		Payload: `{"projected_income":"1600.00"}`,
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, _ = s.Append(context.Background(), storage.MetricSnapshot{ID: "snap-2", Kind: "diversification", Period: "2026-08"})
	if ref != "mem:2" {
		t.Fatalf("second ref = %q, want mem:2", ref)
	}

	items := s.Items()
	if len(items) != 2 || items[0].ID != "snap-1" || items[1].ID != "snap-2" {
		t.Fatalf("unexpected items: %+v", items)
	}

	// Items returns a copy, mutating it must not affect the store
	items[0].ID = "mutated"
	if s.Items()[0].ID != "snap-1" {
		t.Fatalf("Items should return a copy")
	}
}
