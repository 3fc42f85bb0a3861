package safety

import (
	"context"
	"testing"
	"time"

	"github.com/AzielCF/az-speed/core/transient/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestThrottle() (*Throttle, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore(repository.WithClock(clock.Now))
	return NewThrottle(store, DefaultThrottleConfig()), clock
}

func TestThrottle_TripsAfterThreshold(t *testing.T) {
	ctx := context.Background()
	th, clock := newTestThrottle()

	for i := 0; i < 10; i++ {
		require.NoError(t, th.RecordError(ctx, "rewrite failed"))
		clock.Advance(time.Minute)
	}
	assert.False(t, th.IsEmergencyDisabled(ctx), "ten errors are tolerated")

	require.NoError(t, th.RecordError(ctx, "rewrite failed"))
	assert.True(t, th.IsEmergencyDisabled(ctx))

	st, err := th.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), st.ErrorCount)
	assert.True(t, st.EmergencyDisabled)
}

func TestThrottle_FlagLastsExactlyTheWindow(t *testing.T) {
	ctx := context.Background()
	th, clock := newTestThrottle()

	for i := 0; i < 11; i++ {
		require.NoError(t, th.RecordError(ctx, "rewrite failed"))
	}
	require.True(t, th.IsEmergencyDisabled(ctx))

	// more errors while tripped do not extend the window
	clock.Advance(30 * time.Minute)
	require.NoError(t, th.RecordError(ctx, "rewrite failed"))

	clock.Advance(30*time.Minute - time.Nanosecond)
	assert.True(t, th.IsEmergencyDisabled(ctx))

	clock.Advance(time.Nanosecond)
	assert.False(t, th.IsEmergencyDisabled(ctx))
}

func TestThrottle_CounterExpires(t *testing.T) {
	ctx := context.Background()
	th, clock := newTestThrottle()

	for i := 0; i < 10; i++ {
		require.NoError(t, th.RecordError(ctx, "rewrite failed"))
	}
	clock.Advance(24 * time.Hour)

	require.NoError(t, th.RecordError(ctx, "rewrite failed"))
	assert.False(t, th.IsEmergencyDisabled(ctx))

	st, err := th.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ErrorCount)
}

func TestThrottle_Reset(t *testing.T) {
	ctx := context.Background()
	th, _ := newTestThrottle()

	for i := 0; i < 12; i++ {
		require.NoError(t, th.RecordError(ctx, "rewrite failed"))
	}
	require.NoError(t, th.Reset(ctx))

	st, err := th.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThrottleStatus{Threshold: 10}, st)
}

func TestThrottle_OnTripRunsOncePerTrip(t *testing.T) {
	ctx := context.Background()
	th, _ := newTestThrottle()

	var trips []int64
	th.OnTrip(func(errors int64, until time.Time) {
		trips = append(trips, errors)
		assert.True(t, until.After(time.Now()))
	})

	for i := 0; i < 13; i++ {
		require.NoError(t, th.RecordError(ctx, "rewrite failed"))
	}
	assert.Equal(t, []int64{11}, trips, "only the error that raises the flag fires")
}
