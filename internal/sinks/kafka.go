package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/KafClaw/commander/internal/bus"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes notifications as JSON, keyed by channel so reminders
// and alarms each keep their order within a partition.
type KafkaSink struct {
	topic  string
	writer messageWriter
}

// NewKafkaSink creates a sink producing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

// Send writes one message, retrying leader elections a few times.
func (k *KafkaSink) Send(ctx context.Context, n *bus.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(n.Channel),
		Value: value,
		Headers: []kafka.Header{
			{Key: "channel", Value: []byte(n.Channel)},
			{Key: "task_id", Value: []byte(n.TaskID)},
		},
		Time: n.FiredAt,
	}

	var writeErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		writeErr = k.writer.WriteMessages(ctx, msg)
		if writeErr == nil {
			return nil
		}
		if !errors.Is(writeErr, kafka.NotLeaderForPartition) && !errors.Is(writeErr, kafka.LeaderNotAvailable) {
			break
		}
	}
	return fmt.Errorf("produce to %s: %w", k.topic, writeErr)
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
