// Package posting persists job postings.
package posting

import (
	"context"
	"sort"
	"sync"

	"hirelane/internal/posting/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
)

// InMemory keeps postings in a map. Test use only.
type InMemory struct {
	mu   sync.RWMutex
	byID map[id.PostingID]*models.Posting
}

// NewInMemory constructs an empty in-memory posting store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.PostingID]*models.Posting)}
}

func (s *InMemory) Create(_ context.Context, p *models.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, postingID id.PostingID) (*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[postingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, p *models.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *InMemory) List(_ context.Context, status *models.Status) ([]*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Posting, 0, len(s.byID))
	for _, p := range s.byID {
		if status != nil && p.Status != *status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	// Newest first, matching the SQL store's ordering.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) ExistsOpen(_ context.Context, postingID id.PostingID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[postingID]
	return ok && p.Status == models.StatusOpen, nil
}
