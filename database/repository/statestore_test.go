package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookflow/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStateStore, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStateStore(client), client
}

func TestMemoryStateStoreContextRoundTrip(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	_, err := store.GetContext(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	bc := &models.BookingContext{
		BookingID: "bk-1",
		State:     models.StateEventScheduled,
		StateData: models.BookingStateData{BookingID: "bk-1", SessionTypeID: "s1"},
	}
	require.NoError(t, store.SaveContext(ctx, bc))

	got, err := store.GetContext(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateEventScheduled, got.State)
	assert.Equal(t, "s1", got.StateData.SessionTypeID)

	// The stored copy is isolated from later mutation of the original.
	bc.StateData.SessionTypeID = "changed"
	got, err = store.GetContext(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.StateData.SessionTypeID)
}

func TestMemoryStateStoreHistoryPreservesOrder(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	events := []models.BookingEvent{
		models.EventBookingCreated,
		models.EventInitiateScheduling,
		models.EventSchedulingWebhookReceived,
	}
	for _, e := range events {
		require.NoError(t, store.AppendHistory(ctx, "bk-1", models.TransitionResult{Event: e, Timestamp: time.Now()}))
	}

	history, err := store.GetHistory(ctx, "bk-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, e := range events {
		assert.Equal(t, e, history[i].Event)
	}

	other, err := store.GetHistory(ctx, "bk-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStateStoreWithLockSerializesPerBooking(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithLock(ctx, "bk-1", func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestRedisStateStoreContextRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	_, err := store.GetContext(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	bc := &models.BookingContext{
		BookingID: "bk-1",
		State:     models.StateConfirmed,
		StateData: models.BookingStateData{BookingID: "bk-1", SessionTypeID: "s1"},
	}
	require.NoError(t, store.SaveContext(ctx, bc))

	got, err := store.GetContext(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, got.State)
	assert.Equal(t, "s1", got.StateData.SessionTypeID)
}

func TestRedisStateStoreHistoryPreservesOrder(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	events := []models.BookingEvent{
		models.EventBookingCreated,
		models.EventInitiateScheduling,
		models.EventSchedulingWebhookReceived,
	}
	for _, e := range events {
		require.NoError(t, store.AppendHistory(ctx, "bk-1", models.TransitionResult{Event: e, Timestamp: time.Now()}))
	}

	history, err := store.GetHistory(ctx, "bk-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, e := range events {
		assert.Equal(t, e, history[i].Event)
	}
}

func TestRedisStateStoreLockReleasedAfterFn(t *testing.T) {
	store, client := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.WithLock(ctx, "bk-1", func() error { return nil }))

	// The lease is gone, so a second acquisition succeeds immediately.
	acquireCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	require.NoError(t, store.WithLock(acquireCtx, "bk-1", func() error { return nil }))

	exists, err := client.Exists(ctx, lockKeyPrefix+"bk-1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRedisStateStoreLockReleaseKeepsTakenOverLease(t *testing.T) {
	store, client := newRedisStore(t)
	ctx := context.Background()
	key := lockKeyPrefix + "bk-1"

	err := store.WithLock(ctx, "bk-1", func() error {
		// Simulate the lease expiring mid-critical-section and another
		// worker acquiring it with its own token.
		require.NoError(t, client.Del(ctx, key).Err())
		require.NoError(t, client.Set(ctx, key, "other-worker-token", lockTTL).Err())
		return nil
	})
	require.NoError(t, err)

	// The deferred release must not have dropped the other worker's lease.
	val, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-worker-token", val)
}
