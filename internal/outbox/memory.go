package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hirelane/pkg/platform/sentinel"
)

// InMemory is a map-backed outbox store for tests and local runs.
type InMemory struct {
	mu     sync.Mutex
	events map[uuid.UUID]*Event
	seq    map[uuid.UUID]int
	next   int
}

// NewInMemory creates an empty in-memory outbox store.
func NewInMemory() *InMemory {
	return &InMemory{
		events: make(map[uuid.UUID]*Event),
		seq:    make(map[uuid.UUID]int),
	}
}

func (s *InMemory) Append(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *e
	s.events[e.ID] = &cp
	s.seq[e.ID] = s.next
	s.next++
	return nil
}

func (s *InMemory) ListPending(_ context.Context, limit int) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*Event
	for _, e := range s.events {
		if e.Status == StatusPending {
			cp := *e
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return s.seq[pending[i].ID] < s.seq[pending[j].ID]
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *InMemory) MarkPublished(_ context.Context, eventID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Status = StatusPublished
	e.PublishedAt = &at
	return nil
}

func (s *InMemory) MarkAttemptFailed(_ context.Context, eventID uuid.UUID, lastError string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Attempts++
	e.LastError = lastError
	if final {
		e.Status = StatusFailed
	}
	return nil
}

// Get returns a copy of one row. Test helper.
func (s *InMemory) Get(eventID uuid.UUID) (*Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}
