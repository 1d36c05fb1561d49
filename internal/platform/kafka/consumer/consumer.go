// Package consumer wraps the franz-go consumer group used by the worker.
//
// Delivery contract: a handler returning nil acknowledges the message (its
// offset becomes committable). A handler returning an error triggers bounded
// in-process retries; when the attempt budget is exhausted the record is
// parked on the dead-letter topic and then acknowledged, so one poison
// message cannot stall its partition. If parking itself fails the offset is
// NOT committed and the record will be redelivered.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hirelane/internal/platform/kafka/producer"
	"hirelane/pkg/requestcontext"
)

const (
	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// Message is one consumed record, decoupled from the client library so
// handlers stay testable.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	// Attempts is the 1-based in-process delivery attempt for this record.
	Attempts int
}

// Handler processes one message. Returning nil acknowledges it.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Config wires a consumer group.
type Config struct {
	Brokers       []string
	Group         string
	Topics        []string
	MaxAttempts   int
	HandleTimeout time.Duration
	// DLQTopic receives records whose attempt budget ran out. Parking is
	// disabled when empty or when Producer is nil.
	DLQTopic string
	Producer *producer.Producer
	// OnPark runs after a record lands on the dead-letter topic, before its
	// offset is committed. Best effort: its errors are not observed.
	OnPark func(ctx context.Context, msg *Message, cause error)
}

// Group consumes the configured topics and dispatches records in order per
// partition.
type Group struct {
	client        *kgo.Client
	handler       Handler
	logger        *slog.Logger
	tracer        trace.Tracer
	maxAttempts   int
	handleTimeout time.Duration
	dlqTopic      string
	dlq           *producer.Producer
	onPark        func(ctx context.Context, msg *Message, cause error)
}

// New builds a consumer group client. The caller owns Run and Close.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Group, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: no brokers configured")
	}
	if cfg.Group == "" {
		return nil, fmt.Errorf("kafka consumer: group must not be empty")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("kafka consumer: no topics configured")
	}
	if handler == nil {
		return nil, fmt.Errorf("kafka consumer: handler must not be nil")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: new client: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	handleTimeout := cfg.HandleTimeout
	if handleTimeout <= 0 {
		handleTimeout = 10 * time.Second
	}

	return &Group{
		client:        client,
		handler:       handler,
		logger:        logger,
		tracer:        otel.Tracer("hirelane/kafka/consumer"),
		maxAttempts:   maxAttempts,
		handleTimeout: handleTimeout,
		dlqTopic:      cfg.DLQTopic,
		dlq:           cfg.Producer,
		onPark:        cfg.OnPark,
	}, nil
}

// Run polls until ctx is cancelled or the client closes. Records are handled
// sequentially within a partition; a failure that cannot be parked stops that
// partition's progress so the broker redelivers from the failed offset.
func (g *Group) Run(ctx context.Context) error {
	for {
		fetches := g.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			g.logger.ErrorContext(ctx, "fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var acked []*kgo.Record
		fetches.EachPartition(func(ftp kgo.FetchTopicPartition) {
			for _, rec := range ftp.Records {
				if err := g.consume(ctx, rec); err != nil {
					g.logger.ErrorContext(ctx, "record failed and could not be parked, leaving for redelivery",
						"topic", rec.Topic,
						"partition", rec.Partition,
						"offset", rec.Offset,
						"error", err,
					)
					return
				}
				acked = append(acked, rec)
			}
		})

		if len(acked) > 0 {
			if err := g.client.CommitRecords(ctx, acked...); err != nil {
				g.logger.ErrorContext(ctx, "commit failed", "error", err)
			}
		}
	}
}

// consume runs the handler with the attempt budget, parking on exhaustion.
func (g *Group) consume(ctx context.Context, rec *kgo.Record) error {
	msg := &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Timestamp: rec.Timestamp,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		msg.Attempts = attempt

		spanCtx, span := g.tracer.Start(ctx, "consume "+rec.Topic, trace.WithAttributes(
			attribute.String("messaging.destination.name", rec.Topic),
			attribute.Int64("messaging.kafka.offset", rec.Offset),
			attribute.Int("messaging.delivery_attempt", attempt),
		))

		// One timestamp per attempt so every mutation it makes stamps the
		// same instant.
		hctx, cancel := context.WithTimeout(requestcontext.WithTime(spanCtx, time.Now()), g.handleTimeout)
		err := g.handler.Handle(hctx, msg)
		cancel()

		if err == nil {
			span.End()
			return nil
		}
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.End()
		lastErr = err

		if attempt < g.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}

	return g.park(ctx, msg, lastErr)
}

// park forwards an exhausted record to the dead-letter topic.
func (g *Group) park(ctx context.Context, msg *Message, cause error) error {
	if g.dlq == nil || g.dlqTopic == "" {
		return cause
	}

	headers := []producer.Header{
		{Key: "origin-topic", Value: []byte(msg.Topic)},
		{Key: "error", Value: []byte(cause.Error())},
		{Key: "attempts", Value: []byte(fmt.Sprintf("%d", g.maxAttempts))},
	}
	if err := g.dlq.Produce(ctx, g.dlqTopic, msg.Key, msg.Value, headers...); err != nil {
		return fmt.Errorf("park to %s: %w (handling error: %v)", g.dlqTopic, err, cause)
	}

	g.logger.ErrorContext(ctx, "record parked on dead-letter topic",
		"origin_topic", msg.Topic,
		"dlq_topic", g.dlqTopic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", cause,
	)
	if g.onPark != nil {
		g.onPark(ctx, msg, cause)
	}
	return nil
}

// Close leaves the group and releases the client.
func (g *Group) Close() {
	g.client.Close()
}

func backoff(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}
