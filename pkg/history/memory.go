package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps run history in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

func (m *MemoryStore) Save(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *run
	cp.Report = append([]byte(nil), run.Report...)
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *run
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		cp.Report = nil
		runs = append(runs, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.runs {
		if r.StartedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }
