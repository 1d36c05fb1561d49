// Package interview persists scheduled interviews.
package interview

import (
	"context"
	"sort"
	"sync"

	"hirelane/internal/interview/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
)

// InMemory keeps interviews in a map, mirroring the PostgresStore semantics.
// Test use only.
type InMemory struct {
	mu   sync.RWMutex
	byID map[id.InterviewID]*models.Interview
}

// NewInMemory constructs an empty in-memory interview store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.InterviewID]*models.Interview)}
}

func (s *InMemory) Create(_ context.Context, iv *models.Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[iv.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *iv
	s.byID[iv.ID] = &cp
	return nil
}

// FindByID returns the interview unless it is absent or soft-deleted.
// Cancelled interviews are tombstoned, so they fall out of reads too.
func (s *InMemory) FindByID(_ context.Context, interviewID id.InterviewID) (*models.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iv, ok := s.byID[interviewID]
	if !ok || iv.Deleted {
		return nil, sentinel.ErrNotFound
	}
	cp := *iv
	return &cp, nil
}

// Execute atomically validates and mutates one interview while holding the
// store lock, mirroring the SQL store's SELECT ... FOR UPDATE.
func (s *InMemory) Execute(_ context.Context, interviewID id.InterviewID, validate func(*models.Interview) error, apply func(*models.Interview)) (*models.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[interviewID]
	if !ok || existing.Deleted {
		return nil, sentinel.ErrNotFound
	}

	cp := *existing
	if err := validate(&cp); err != nil {
		return nil, err
	}
	apply(&cp)
	s.byID[interviewID] = &cp

	out := cp
	return &out, nil
}

func (s *InMemory) ListByApplication(_ context.Context, applicationRef id.ApplicationID) ([]*models.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Interview
	for _, iv := range s.byID {
		if !iv.Deleted && iv.ApplicationRef == applicationRef {
			cp := *iv
			out = append(out, &cp)
		}
	}
	sortSoonestFirst(out)
	return out, nil
}

// sortSoonestFirst matches the SQL store's ORDER BY scheduled_at, id.
func sortSoonestFirst(interviews []*models.Interview) {
	sort.Slice(interviews, func(i, j int) bool {
		if !interviews[i].ScheduledAt.Equal(interviews[j].ScheduledAt) {
			return interviews[i].ScheduledAt.Before(interviews[j].ScheduledAt)
		}
		return interviews[i].ID.String() < interviews[j].ID.String()
	})
}
