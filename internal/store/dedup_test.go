package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryDedupLockExclusion(t *testing.T) {
	ctx := context.Background()
	dedup := NewMemoryDedup()

	acquired, err := dedup.TryLock(ctx, "token", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = dedup.TryLock(ctx, "token", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	require.NoError(t, dedup.Unlock(ctx, "token"))
	acquired, err = dedup.TryLock(ctx, "token", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryDedupLockTTLExpiry(t *testing.T) {
	ctx := context.Background()
	dedup := NewMemoryDedup()

	acquired, err := dedup.TryLock(ctx, "token", 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(60 * time.Millisecond)

	// TTL expiry is the crash-recovery path for a holder that never
	// unlocked.
	acquired, err = dedup.TryLock(ctx, "token", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryDedupRecordTTLExpiry(t *testing.T) {
	ctx := context.Background()
	dedup := NewMemoryDedup()

	require.NoError(t, dedup.PutRecord(ctx, "token", []byte("cached"), 30*time.Millisecond))
	value, ok, err := dedup.GetRecord(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("cached"), value)

	time.Sleep(60 * time.Millisecond)
	_, ok, err = dedup.GetRecord(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBadgerDedupRoundtrip(t *testing.T) {
	ctx := context.Background()
	db, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	dedup := NewBadgerDedup(db)

	_, ok, err := dedup.GetRecord(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, dedup.PutRecord(ctx, "token", []byte("cached"), time.Hour))
	value, ok, err := dedup.GetRecord(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("cached"), value)
}

func TestBadgerDedupLockExclusion(t *testing.T) {
	ctx := context.Background()
	db, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	dedup := NewBadgerDedup(db)

	acquired, err := dedup.TryLock(ctx, "token", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = dedup.TryLock(ctx, "token", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	// Locks and records live under separate keys.
	_, ok, err := dedup.GetRecord(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, dedup.Unlock(ctx, "token"))
	acquired, err = dedup.TryLock(ctx, "token", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryLogSnapshots(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	require.NoError(t, log.Append(ctx, []byte("a")))
	require.NoError(t, log.Append(ctx, []byte("b")))

	records := log.Records()
	require.Len(t, records, 2)
	require.Equal(t, []byte("a"), records[0])
	require.Equal(t, []byte("b"), records[1])
}
