package outbox

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hirelane/internal/platform/kafka/producer"
	"hirelane/pkg/requestcontext"
)

// Producer is the slice of the Kafka producer the publisher uses.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte, headers ...producer.Header) error
}

// Publisher drains pending outbox rows to Kafka on a fixed interval.
type Publisher struct {
	store       Store
	producer    Producer
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
	tracer      trace.Tracer
}

type PublisherOption func(*Publisher)

func WithInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBatchSize(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithMaxAttempts(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a publisher with sane defaults.
func NewPublisher(store Store, prod Producer, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:       store,
		producer:    prod,
		interval:    time.Second,
		batchSize:   100,
		maxAttempts: 5,
		logger:      slog.Default(),
		tracer:      otel.Tracer("hirelane/outbox/publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drains batches until ctx is cancelled. A failing store or broker is
// logged and retried on the next tick; Run itself only stops with ctx.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Drain(ctx); err != nil {
				p.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch of pending rows, oldest first. It returns the
// number of rows successfully published. Per-row publish failures are
// recorded on the row and do not abort the batch.
func (p *Publisher) Drain(ctx context.Context) (int, error) {
	pending, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if p.publishOne(ctx, e) {
			published++
		}
	}
	return published, nil
}

// publishOne attempts a single row and updates its bookkeeping.
func (p *Publisher) publishOne(ctx context.Context, e *Event) bool {
	spanCtx, span := p.tracer.Start(ctx, "publish "+e.Topic, trace.WithAttributes(
		attribute.String("messaging.destination.name", e.Topic),
		attribute.String("messaging.message.id", e.ID.String()),
		attribute.String("event.type", e.EventType),
	))
	defer span.End()

	err := p.producer.Produce(spanCtx, e.Topic, []byte(e.Key), e.Payload,
		producer.Header{Key: "event-type", Value: []byte(e.EventType)},
	)
	if err == nil {
		if markErr := p.store.MarkPublished(spanCtx, e.ID, requestcontext.Now(spanCtx)); markErr != nil {
			// The record is on the broker; the row stays PENDING and will be
			// produced again. Consumers dedupe on eventId.
			p.logger.ErrorContext(spanCtx, "outbox row published but not marked",
				"event_id", e.ID,
				"error", markErr,
			)
		}
		return true
	}

	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)

	final := e.Attempts+1 >= p.maxAttempts
	if markErr := p.store.MarkAttemptFailed(spanCtx, e.ID, err.Error(), final); markErr != nil {
		p.logger.ErrorContext(spanCtx, "outbox attempt bookkeeping failed",
			"event_id", e.ID,
			"error", markErr,
		)
	}
	if final {
		p.logger.ErrorContext(spanCtx, "outbox row exhausted its attempts, marked FAILED",
			"event_id", e.ID,
			"event_type", e.EventType,
			"attempts", e.Attempts+1,
			"error", err,
		)
	} else {
		p.logger.WarnContext(spanCtx, "outbox publish failed, will retry",
			"event_id", e.ID,
			"event_type", e.EventType,
			"attempts", e.Attempts+1,
			"error", err,
		)
	}
	return false
}
