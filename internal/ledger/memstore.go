package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"treasure-chess/internal/domain"
)

// MemStore is an in-memory Store used in tests and single-process runs.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]*domain.LedgerEntry
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*domain.LedgerEntry)}
}

func (s *MemStore) EnsureParticipant(_ context.Context, name string, startingBalance int) (domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		return *e, nil
	}
	e := &domain.LedgerEntry{Name: name, Balance: startingBalance, UpdatedAt: time.Now()}
	s.entries[name] = e
	return *e, nil
}

func (s *MemStore) Adjust(_ context.Context, name string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return 0, ErrUnknownParticipant
	}
	e.Balance += delta
	if e.Balance < 0 {
		e.Balance = 0
	}
	e.UpdatedAt = time.Now()
	return e.Balance, nil
}

func (s *MemStore) List(_ context.Context) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemStore) Balance(_ context.Context, name string) (domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return domain.LedgerEntry{}, ErrUnknownParticipant
	}
	return *e, nil
}
