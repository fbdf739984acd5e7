package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport writes envelopes keyed by device id, so one device's
// readings stay ordered within a partition.
type KafkaTransport struct {
	w     messageWriter
	topic string
}

func NewKafkaTransport(brokers []string, topic string) *KafkaTransport {
	return &KafkaTransport{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

func (t *KafkaTransport) Send(ctx context.Context, env Envelope, payload []byte) error {
	msg := kafka.Message{
		Key:     []byte(env.DeviceID),
		Value:   payload,
		Time:    env.Timestamp,
		Headers: []kafka.Header{{Key: "kind", Value: []byte(env.Kind)}},
	}
	if err := t.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s/%s: %w", t.topic, env.DeviceID, err)
	}
	return nil
}

func (t *KafkaTransport) Close() error { return t.w.Close() }

type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads envelopes from a topic as part of a consumer group.
type KafkaConsumer struct {
	r   messageFetcher
	log zerolog.Logger
}

func NewKafkaConsumer(brokers []string, topic, group string, log zerolog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  group,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		}),
		log: log,
	}
}

// Run hands every message to handle until ctx is cancelled. A message that
// handle rejects is logged and committed so it cannot block the partition.
func (c *KafkaConsumer) Run(ctx context.Context, handle func(ctx context.Context, key, payload []byte) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}
		if err := handle(ctx, msg.Key, msg.Value); err != nil {
			c.log.Error().Err(err).Str("key", string(msg.Key)).Int64("offset", msg.Offset).Msg("message rejected")
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (c *KafkaConsumer) Close() error { return c.r.Close() }
