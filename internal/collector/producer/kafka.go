// Package producer publishes accepted tracker traffic to Kafka: events to the
// raw events topic, session-end signals to the sessions topic, both keyed by
// session id so one session stays on one partition.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/modernmarket/telemetry/internal/config"
)

type KafkaProducer struct {
	events   *kafka.Writer
	sessions *kafka.Writer
}

func New(cfg config.KafkaConfig) *KafkaProducer {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: time.Millisecond * 100,
			Async:        true,
		}
	}
	return &KafkaProducer{
		events:   newWriter(cfg.Topic("events")),
		sessions: newWriter(cfg.Topic("sessions")),
	}
}

func (p *KafkaProducer) PublishEvent(ctx context.Context, sessionID string, event map[string]any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.events.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: data,
	})
}

func (p *KafkaProducer) PublishSessionEnd(ctx context.Context, sessionID string) error {
	data, err := json.Marshal(map[string]any{
		"session_id": sessionID,
		"ended_at":   time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return p.sessions.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: data,
	})
}

func (p *KafkaProducer) Close() error {
	p.events.Close()
	return p.sessions.Close()
}
