package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a kafka-go writer tuned for single-event appends: every
// report, ack and sync outcome is written as its own message, so batching is
// kept minimal.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 100 * time.Millisecond,
		BatchSize:    1,
	}
}

// NewGroupReader constructs a reader bound to a consumer group, starting at
// the latest offset. Used by the fan-out dispatcher and the analytics loader.
func NewGroupReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		Topic:           topic,
		GroupID:         group,
		MinBytes:        1,
		MaxBytes:        10e6,
		StartOffset:     kafka.LastOffset,
		CommitInterval:  time.Second,
		ReadLagInterval: 5 * time.Second,
		MaxWait:         500 * time.Millisecond,
	})
}

// NewReplayReader constructs a group-less reader positioned at the first
// offset, for full replay of a log by analysis tooling.
func NewReplayReader(brokers []string, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
}
