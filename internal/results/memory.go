package results

import (
	"context"
	"sync"
)

// DefaultMemoryLimit bounds how many rounds the memory store keeps
const DefaultMemoryLimit = 500

// MemoryStore keeps the most recent rounds in a ring
type MemoryStore struct {
	mu     sync.RWMutex
	rounds []Round
	limit  int
	nextID int64
}

// NewMemoryStore creates a store holding at most limit rounds
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) SaveRounds(_ context.Context, rounds []Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rounds {
		m.nextID++
		r.ID = m.nextID
		m.rounds = append(m.rounds, r)
	}
	if over := len(m.rounds) - m.limit; over > 0 {
		m.rounds = append([]Round(nil), m.rounds[over:]...)
	}
	return nil
}

func (m *MemoryStore) RecentRounds(_ context.Context, limit int) ([]Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.rounds) {
		limit = len(m.rounds)
	}
	out := make([]Round, 0, limit)
	for i := len(m.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rounds[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
