package memory

import (
	"context"
	"fmt"
	"sync"

	"finsight/internal/storage"
)

// Store is an in-memory snapshot destination used in tests and local runs
// without Google credentials.
type Store struct {
	mu    sync.Mutex
	items []storage.MetricSnapshot
}

func New() *Store {
	return &Store{}
}

// Append stores the snapshot and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, snap storage.MetricSnapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, snap)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []storage.MetricSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.MetricSnapshot(nil), s.items...)
}
