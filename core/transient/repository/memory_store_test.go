package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(WithClock(clock.Now))

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	v, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)

	clock.Advance(time.Minute)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore(WithClock(clock.Now))

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	clock.Advance(365 * 24 * time.Hour)

	_, found, _ := store.Get(ctx, "k")
	assert.True(t, found)
}

func TestMemoryStore_IncrRestartsTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore(WithClock(clock.Now))

	n, err := store.Incr(ctx, "c", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	clock.Advance(50 * time.Minute)
	n, _ = store.Incr(ctx, "c", time.Hour)
	assert.Equal(t, int64(2), n)

	clock.Advance(50 * time.Minute)
	v, found, _ := store.Get(ctx, "c")
	assert.True(t, found)
	assert.Equal(t, "2", v)

	clock.Advance(time.Hour)
	n, _ = store.Incr(ctx, "c", time.Hour)
	assert.Equal(t, int64(1), n, "expired counters start over")
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, store.Delete(ctx, "k"))

	_, found, _ := store.Get(ctx, "k")
	assert.False(t, found)
}
