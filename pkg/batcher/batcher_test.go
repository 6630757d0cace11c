package batcher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlushBySize(t *testing.T) {
	var (
		mu      sync.Mutex
		flushed [][]int
	)
	b := New[int](3, time.Minute, func(items []int) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, append([]int(nil), items...))
		return nil
	}, nil)
	defer b.Close()

	require.NoError(t, b.Add(1))
	require.NoError(t, b.Add(2))
	require.NoError(t, b.Add(3))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, flushed, 1)
	require.Equal(t, []int{1, 2, 3}, flushed[0])
}

func TestFlushByInterval(t *testing.T) {
	var (
		mu      sync.Mutex
		flushed [][]int
	)
	b := New[int](100, 30*time.Millisecond, func(items []int) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, append([]int(nil), items...))
		return nil
	}, nil)
	defer b.Close()

	require.NoError(t, b.Add(7))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushed) == 1 && len(flushed[0]) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCloseFlushesRemainder(t *testing.T) {
	var (
		mu      sync.Mutex
		flushed []int
	)
	b := New[int](100, time.Minute, func(items []int) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, items...)
		return nil
	}, nil)

	require.NoError(t, b.Add(1))
	require.NoError(t, b.Add(2))
	require.NoError(t, b.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2}, flushed)
}

func TestTickerErrorsReachCallback(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []error
	)
	flushErr := errors.New("sink unavailable")
	b := New[int](100, 20*time.Millisecond, func(items []int) error {
		return flushErr
	}, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, err)
	})

	require.NoError(t, b.Add(1))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(observed) > 0
	}, time.Second, 10*time.Millisecond)

	// Close's final flush surfaces the error to the caller directly.
	require.NoError(t, b.Add(2))
	require.ErrorIs(t, b.Close(), flushErr)
}
