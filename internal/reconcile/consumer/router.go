package consumer

import (
	"context"
	"log/slog"

	"hirelane/internal/platform/kafka/consumer"
)

// TopicHandler handles messages from a specific topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// TopicHandlerFunc adapts a function to the TopicHandler interface.
type TopicHandlerFunc func(ctx context.Context, msg *consumer.Message) error

func (f TopicHandlerFunc) Handle(ctx context.Context, msg *consumer.Message) error {
	return f(ctx, msg)
}

// Router dispatches messages to topic-specific handlers. A topic without a
// handler is logged and committed; the group only subscribes to topics it
// routes, so that branch firing means a subscription bug, not data loss.
type Router struct {
	handlers map[string]TopicHandler
	logger   *slog.Logger
}

// NewRouter creates an empty topic router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		logger:   logger,
	}
}

// Register adds a handler for a specific topic.
func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

// Handle routes the message to the appropriate topic handler.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		r.logger.WarnContext(ctx, "no handler for topic, skipping message",
			"topic", msg.Topic,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}
