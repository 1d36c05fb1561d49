package ledger

import (
	"context"
	"sync"

	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
	"hirelane/pkg/requestcontext"
)

// InMemory keeps ledger records in a map. It mirrors the PostgresStore
// semantics closely enough for service and consumer tests.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.EventID]Record
}

// NewInMemory constructs an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.EventID]Record)}
}

func (s *InMemory) HasProcessed(_ context.Context, eventID id.EventID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[eventID]
	return ok && rec.Status == StatusProcessed, nil
}

func (s *InMemory) RecordProcessed(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.EventID]
	if ok && existing.Status == StatusProcessed {
		return sentinel.ErrConflict
	}

	rec.Status = StatusProcessed
	rec.ProcessedAt = requestcontext.Now(ctx)
	rec.LastError = ""
	if ok {
		rec.Attempts += existing.Attempts
	}
	s.records[rec.EventID] = rec
	return nil
}

func (s *InMemory) RecordFailed(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.EventID]
	if ok && existing.Status == StatusProcessed {
		return nil
	}

	rec.Status = StatusFailed
	rec.ProcessedAt = requestcontext.Now(ctx)
	if ok {
		rec.Attempts += existing.Attempts
	}
	s.records[rec.EventID] = rec
	return nil
}

func (s *InMemory) Get(_ context.Context, eventID id.EventID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[eventID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}
