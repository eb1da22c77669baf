package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupCache_RecordAndSeen(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDedupCache(client)
	ctx := context.Background()

	key := "event-2026-orientation:student-42"

	// Unknown key before record
	seen, err := cache.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	err = cache.Record(ctx, key, 72*time.Hour)
	require.NoError(t, err)

	seen, err = cache.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDedupCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDedupCache(client)
	ctx := context.Background()

	key := "event-2026-hackathon:student-7"

	err := cache.Record(ctx, key, 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	seen, err := cache.Seen(ctx, key)
	assert.NoError(t, err)
	assert.False(t, seen, "expired key should read as unseen")
}

func TestDedupCache_KeysAreIndependent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDedupCache(client)
	ctx := context.Background()

	err := cache.Record(ctx, "event-a:student-1", 1*time.Hour)
	require.NoError(t, err)

	seen, err := cache.Seen(ctx, "event-a:student-2")
	require.NoError(t, err)
	assert.False(t, seen)
}
