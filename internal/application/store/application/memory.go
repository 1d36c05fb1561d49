// Package application persists job applications.
package application

import (
	"context"
	"sort"
	"sync"

	"hirelane/internal/application/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
)

// InMemory keeps applications in a map. It mirrors the PostgresStore
// semantics, including the live-pair uniqueness check. Test use only.
type InMemory struct {
	mu   sync.RWMutex
	byID map[id.ApplicationID]*models.Application
}

// NewInMemory constructs an empty in-memory application store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.ApplicationID]*models.Application)}
}

func (s *InMemory) Create(_ context.Context, a *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[a.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.byID {
		if !existing.Deleted && existing.ApplicantRef == a.ApplicantRef && existing.PostingRef == a.PostingRef {
			return sentinel.ErrConflict
		}
	}

	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

// FindByID returns the application unless it is absent or soft-deleted.
func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[appID]
	if !ok || a.Deleted {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Execute atomically validates and mutates one application while holding the
// store lock, mirroring the SQL store's SELECT ... FOR UPDATE.
func (s *InMemory) Execute(_ context.Context, appID id.ApplicationID, validate func(*models.Application) error, apply func(*models.Application)) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[appID]
	if !ok || existing.Deleted {
		return nil, sentinel.ErrNotFound
	}

	cp := *existing
	if err := validate(&cp); err != nil {
		return nil, err
	}
	apply(&cp)
	s.byID[appID] = &cp

	out := cp
	return &out, nil
}

func (s *InMemory) ExistsLive(_ context.Context, applicantRef id.AccountRef, postingRef id.PostingID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.byID {
		if !a.Deleted && a.ApplicantRef == applicantRef && a.PostingRef == postingRef {
			return true, nil
		}
	}
	return false, nil
}

// ExistsLiveByID reports whether a non-deleted application holds the id.
// The referential-existence registry reads through this.
func (s *InMemory) ExistsLiveByID(_ context.Context, appID id.ApplicationID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[appID]
	return ok && !a.Deleted, nil
}

func (s *InMemory) ListByApplicant(_ context.Context, applicantRef id.AccountRef) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, a := range s.byID {
		if !a.Deleted && a.ApplicantRef == applicantRef {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ListByPosting(_ context.Context, postingRef id.PostingID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, a := range s.byID {
		if !a.Deleted && a.PostingRef == postingRef {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst matches the SQL store's ORDER BY submitted_at DESC, id.
func sortNewestFirst(apps []*models.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].SubmittedAt.Equal(apps[j].SubmittedAt) {
			return apps[i].SubmittedAt.After(apps[j].SubmittedAt)
		}
		return apps[i].ID.String() < apps[j].ID.String()
	})
}
