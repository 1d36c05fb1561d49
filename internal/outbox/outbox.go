// Package outbox implements the transactional outbox: domain events are
// appended in the same transaction as the state change that caused them, and
// a publisher loop drains pending rows to Kafka. Publication is at least
// once; consumers deduplicate on the envelope eventId.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dErrors "hirelane/pkg/domain-errors"
)

// TopicDomainEvents is the outbound topic every domain event lands on.
// Records are keyed by aggregate ID, so ordering holds per aggregate.
const TopicDomainEvents = "hirelane.domain-events"

// Outbound event types carried on the domain-events topic.
const (
	TypeApplicationSubmitted     = "application.submitted"
	TypeApplicationStatusChanged = "application.status_changed"
	TypeInterviewScheduled       = "interview.scheduled"
	TypeInterviewStatusChanged   = "interview.status_changed"
)

// Status is the publication state of an outbox row.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
	StatusFailed    Status = "FAILED"
)

// Event is one outbox row. Payload holds the complete wire envelope,
// built once at append time so the eventId survives publish retries.
type Event struct {
	ID          uuid.UUID
	Topic       string
	Key         string
	EventType   string
	Payload     []byte
	Status      Status
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type envelopeWire struct {
	EventID    string          `json:"eventId"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent wraps payload in the standard envelope and returns a PENDING row
// ready for Append. The key is the aggregate ID the event belongs to.
func NewEvent(key, eventType string, payload any, now time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal outbox payload")
	}

	eventID := uuid.New()
	wire, err := json.Marshal(envelopeWire{
		EventID:    eventID.String(),
		Kind:       eventType,
		OccurredAt: now,
		Payload:    raw,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal outbox envelope")
	}

	return &Event{
		ID:        eventID,
		Topic:     TopicDomainEvents,
		Key:       key,
		EventType: eventType,
		Payload:   wire,
		Status:    StatusPending,
		CreatedAt: now,
	}, nil
}

// Store persists outbox rows. Append participates in the caller's
// transaction; the remaining methods are the publisher's bookkeeping.
type Store interface {
	Append(ctx context.Context, e *Event) error
	ListPending(ctx context.Context, limit int) ([]*Event, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error
	MarkAttemptFailed(ctx context.Context, eventID uuid.UUID, lastError string, final bool) error
}
