package store

import (
	"context"
	"sync"

	"kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	posts map[id.PostID]*models.Post
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{posts: make(map[id.PostID]*models.Post)}
}

func (s *InMemoryStore) Insert(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *post
	s.posts[post.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, postID id.PostID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[postID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) ListListed(_ context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if !p.Listed() {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sortByCityThenName(out)
	return out, nil
}
