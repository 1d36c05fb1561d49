// Package profile persists directory profiles.
package profile

import (
	"context"
	"sync"

	"hirelane/internal/directory/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
)

// InMemory keeps profiles in maps keyed by account reference. Test use only.
type InMemory struct {
	mu    sync.RWMutex
	byRef map[id.AccountRef]*models.Profile
	byID  map[id.ProfileID]id.AccountRef
}

// NewInMemory constructs an empty in-memory profile store.
func NewInMemory() *InMemory {
	return &InMemory{
		byRef: make(map[id.AccountRef]*models.Profile),
		byID:  make(map[id.ProfileID]id.AccountRef),
	}
}

func (s *InMemory) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRef[p.AccountRef]; exists {
		return sentinel.ErrConflict
	}

	cp := *p
	s.byRef[p.AccountRef] = &cp
	s.byID[p.ID] = p.AccountRef
	return nil
}

func (s *InMemory) FindByAccountRef(_ context.Context, ref id.AccountRef) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byRef[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) FindByID(_ context.Context, profileID id.ProfileID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.byID[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byRef[ref]
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byRef[p.AccountRef]
	if !ok || existing.ID != p.ID {
		return sentinel.ErrNotFound
	}

	cp := *p
	s.byRef[p.AccountRef] = &cp
	return nil
}

func (s *InMemory) ExistsActive(_ context.Context, ref id.AccountRef, kind models.Kind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byRef[ref]
	return ok && p.Kind == kind && p.Active, nil
}
