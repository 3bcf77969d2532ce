// Package consumer runs the Kafka fetch/decode/process/commit loop.
package consumer

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/modernmarket/telemetry/internal/config"
)

// MessageProcessor handles decoded messages.
type MessageProcessor interface {
	Process(ctx context.Context, event map[string]any) error
	Flush()
}

// KafkaConsumer consumes one topic and feeds a processor.
type KafkaConsumer struct {
	reader    *kafka.Reader
	processor MessageProcessor
}

// New creates a consumer for the configured topic under topicKey.
func New(cfg config.KafkaConfig, topicKey string, processor MessageProcessor) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic(topicKey),
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1e3,  // 1KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 1000,
		StartOffset:    kafka.LastOffset,
	})

	return &KafkaConsumer{
		reader:    reader,
		processor: processor,
	}
}

// Start begins consuming messages until ctx is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context) {
	log.Info().
		Str("topic", c.reader.Config().Topic).
		Str("group", c.reader.Config().GroupID).
		Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Kafka consumer stopped")
			return
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("Failed to fetch message")
				continue
			}

			var event map[string]any
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Error().
					Err(err).
					Str("value", string(msg.Value)).
					Msg("Failed to parse message")
				// Still commit to avoid getting stuck
				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					log.Error().Err(err).Msg("Failed to commit message")
				}
				continue
			}

			if err := c.processor.Process(ctx, event); err != nil {
				log.Error().
					Err(err).
					Interface("event", event).
					Msg("Failed to process event")
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				log.Error().Err(err).Msg("Failed to commit message")
			}
		}
	}
}

// Close flushes the processor and closes the reader.
func (c *KafkaConsumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	c.processor.Flush()
	return c.reader.Close()
}
