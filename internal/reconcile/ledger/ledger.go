// Package ledger persists the set of identity events that have already been
// applied. It exists purely for idempotency: redelivered and concurrently
// delivered events are detected here, never by the entity stores.
package ledger

import (
	"context"
	"time"

	"hirelane/internal/reconcile/events"
	id "hirelane/pkg/domain"
)

// Status is the recorded outcome for one event.
type Status string

const (
	// StatusProcessed means the event's side effects were committed and must
	// never be applied again.
	StatusProcessed Status = "PROCESSED"

	// StatusFailed means delivery attempts were exhausted and the event was
	// parked for manual inspection. Its side effects were not applied.
	StatusFailed Status = "FAILED"
)

// Record is one ledger row. At most one record exists per EventID; that
// uniqueness is the sole serialization point for duplicate delivery.
type Record struct {
	EventID         id.EventID
	Kind            events.Kind
	RelatedEntityID string
	Status          Status
	Attempts        int
	LastError       string
	ProcessedAt     time.Time
}

// Store is the ledger persistence contract. Implementations stamp Status and
// ProcessedAt; callers fill the rest.
//
// RecordProcessed returns sentinel.ErrConflict when a PROCESSED record
// already exists for the event. Callers treat that as "already applied" and
// roll back their transaction, which discards the losing side effects. A
// FAILED record is promoted to PROCESSED instead, so a parked event replayed
// later can still complete.
//
// RecordFailed is a no-op when a PROCESSED record exists; otherwise it
// inserts or updates the FAILED row, accumulating attempts.
type Store interface {
	HasProcessed(ctx context.Context, eventID id.EventID) (bool, error)
	RecordProcessed(ctx context.Context, rec Record) error
	RecordFailed(ctx context.Context, rec Record) error
	Get(ctx context.Context, eventID id.EventID) (Record, error)
}
