package store

import (
	"context"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

// AppendLog is the narrow capability the pipeline needs from the durable
// log substrate: atomic, ordered appends of opaque JSON values. The broadcast
// channel uses the same shape, publish is just an append the fan-out
// dispatcher consumes.
type AppendLog interface {
	Append(ctx context.Context, value []byte) error
}

// KafkaLog appends each value as one message on a dedicated topic.
type KafkaLog struct {
	writer *kafkago.Writer
}

// NewKafkaLog wraps a configured kafka writer.
func NewKafkaLog(writer *kafkago.Writer) *KafkaLog {
	return &KafkaLog{writer: writer}
}

// Append writes value as a single message and waits for the broker ack.
func (l *KafkaLog) Append(ctx context.Context, value []byte) error {
	return l.writer.WriteMessages(ctx, kafkago.Message{Value: value})
}

// Close releases the underlying writer.
func (l *KafkaLog) Close() error {
	return l.writer.Close()
}

// MemoryLog is an in-process AppendLog used by tests.
type MemoryLog struct {
	mu      sync.Mutex
	records [][]byte
}

// NewMemoryLog returns an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append stores a copy of value.
func (l *MemoryLog) Append(_ context.Context, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, append([]byte(nil), value...))
	return nil
}

// Records returns a snapshot of everything appended so far.
func (l *MemoryLog) Records() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of appended records.
func (l *MemoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
