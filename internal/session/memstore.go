package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"treasure-chess/internal/domain"
)

// MemStore is an in-memory Store used in tests.
type MemStore struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*Record
	byPair map[string]uuid.UUID
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:   make(map[uuid.UUID]*Record),
		byPair: make(map[string]uuid.UUID),
	}
}

func (s *MemStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPair[rec.PairKey]; ok {
		return ErrSessionExists
	}
	cp := cloneRecord(rec)
	s.byID[cp.ID] = cp
	s.byPair[cp.PairKey] = cp.ID
	return nil
}

func (s *MemStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemStore) FindByPair(_ context.Context, a, b string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPair[domain.PairKey(a, b)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(s.byID[id]), nil
}

func (s *MemStore) ListOpen(_ context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Record
	for _, rec := range s.byID {
		if !rec.Status.Terminal() {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (s *MemStore) Update(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[rec.ID]
	if !ok {
		return ErrNotFound
	}
	rec.UpdatedAt = time.Now()
	cp := cloneRecord(rec)
	cp.SettledAt = stored.SettledAt
	s.byID[rec.ID] = cp
	return nil
}

func (s *MemStore) MarkSettled(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.SettledAt != nil {
		return false, nil
	}
	now := time.Now()
	rec.SettledAt = &now
	rec.UpdatedAt = now
	return true, nil
}

func (s *MemStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byPair, rec.PairKey)
	delete(s.byID, id)
	return nil
}

func cloneRecord(rec *Record) *Record {
	cp := *rec
	cp.Moves = append([]string(nil), rec.Moves...)
	if rec.SettledAt != nil {
		t := *rec.SettledAt
		cp.SettledAt = &t
	}
	return &cp
}
