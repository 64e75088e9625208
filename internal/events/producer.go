// Package events publishes domain mutations to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Envelope is the JSON value written to every topic.
type Envelope struct {
	Entity     string    `json:"entity"`
	Kind       string    `json:"kind"`
	ID         string    `json:"id"`
	Data       any       `json:"data"`
	OccurredAt time.Time `json:"occurredAt"`
}

func Topic(entity string) string {
	return entity + "_events"
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Producer writes asynchronously; delivery failures are reported to the log
// from the writer's completion callback.
type Producer struct {
	w   *kafka.Writer
	log *slog.Logger
}

func NewProducer(brokers []string, log *slog.Logger) *Producer {
	p := &Producer{log: log}
	p.w = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Completion: func(msgs []kafka.Message, err error) {
			if err == nil || len(msgs) == 0 {
				return
			}
			p.log.Warn("kafka_publish_error", "messages", len(msgs), "topic", msgs[0].Topic, "error", err)
		},
	}
	return p
}

func (p *Producer) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s event: %w", env.Entity, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: Topic(env.Entity),
		Key:   []byte(env.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(env.Entity + ":" + env.Kind)},
		},
	}); err != nil {
		return fmt.Errorf("kafka: write %s event: %w", env.Entity, err)
	}
	return nil
}

// Close flushes pending batches.
func (p *Producer) Close() error {
	return p.w.Close()
}

// Discard drops every event. Used when no brokers are configured.
type Discard struct{}

func (Discard) Publish(context.Context, Envelope) error { return nil }
