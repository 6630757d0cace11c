// Package batcher groups items into flushes bounded by size and age. The
// analytics loader and stream exporter use it to amortize writes.
package batcher

import (
	"errors"
	"sync"
	"time"
)

// Batcher collects items and flushes them when the size threshold is hit or
// the interval elapses, whichever comes first.
type Batcher[T any] struct {
	maxSize  int
	interval time.Duration
	flushFn  func([]T) error
	onError  func(error)

	mu     sync.Mutex
	buffer []T

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a batcher and starts its background ticker. onError, if
// non-nil, observes flush failures from the ticker path.
func New[T any](maxSize int, interval time.Duration, flushFn func([]T) error, onError func(error)) *Batcher[T] {
	b := &Batcher[T]{
		maxSize:  maxSize,
		interval: interval,
		flushFn:  flushFn,
		onError:  onError,
		stop:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.loop()
	return b
}

// Add queues an item. When the size threshold is reached the batch is
// flushed on the caller's goroutine and its error returned.
func (b *Batcher[T]) Add(item T) error {
	b.mu.Lock()
	b.buffer = append(b.buffer, item)
	var batch []T
	if len(b.buffer) >= b.maxSize {
		batch = b.detach()
	}
	b.mu.Unlock()
	if batch != nil {
		return b.runFlush(batch)
	}
	return nil
}

// Flush forces a flush of everything buffered.
func (b *Batcher[T]) Flush() error {
	b.mu.Lock()
	batch := b.detach()
	b.mu.Unlock()
	return b.runFlush(batch)
}

// Close stops the ticker and flushes the remainder.
func (b *Batcher[T]) Close() error {
	close(b.stop)
	b.wg.Wait()
	return b.Flush()
}

func (b *Batcher[T]) loop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := b.Flush(); err != nil && b.onError != nil {
				b.onError(err)
			}
		case <-b.stop:
			return
		}
	}
}

func (b *Batcher[T]) detach() []T {
	if len(b.buffer) == 0 {
		return nil
	}
	batch := make([]T, len(b.buffer))
	copy(batch, b.buffer)
	b.buffer = b.buffer[:0]
	return batch
}

func (b *Batcher[T]) runFlush(batch []T) error {
	if len(batch) == 0 {
		return nil
	}
	if b.flushFn == nil {
		return errors.New("batcher: no flush function configured")
	}
	return b.flushFn(batch)
}
