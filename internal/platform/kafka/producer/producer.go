// Package producer wraps the franz-go producer shared by the outbox
// publisher and the consumer's dead-letter parking.
package producer

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Header is one record header.
type Header struct {
	Key   string
	Value []byte
}

// Producer is a synchronous Kafka producer.
type Producer struct {
	client *kgo.Client
}

// New connects a producer to the brokers.
func New(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka producer: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: new client: %w", err)
	}
	return &Producer{client: client}, nil
}

// Produce sends one record and waits for the broker acknowledgment.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte, headers ...Header) error {
	rec := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	for _, h := range headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: h.Key, Value: h.Value})
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
