package store

import (
	"context"
	"sync"

	"kitmatch/internal/operators/models"
	"kitmatch/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*models.Operator
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byUsername: make(map[string]*models.Operator)}
}

func (s *InMemoryStore) Insert(_ context.Context, op *models.Operator) error {
	key := models.CanonicalUsername(op.Username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[key]; ok {
		return sentinel.ErrConflict
	}
	cp := *op
	s.byUsername[key] = &cp
	return nil
}

func (s *InMemoryStore) GetByUsername(_ context.Context, username string) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.byUsername[models.CanonicalUsername(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUsername), nil
}
