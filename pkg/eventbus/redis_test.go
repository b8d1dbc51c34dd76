package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, opts ...RedisOption) (*RedisBus, *redis.Client) {
	t.Helper()
	bus, client, _ := newTestBusWithServer(t, opts...)
	return bus, client
}

func newTestBusWithServer(t *testing.T, opts ...RedisOption) (*RedisBus, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	opts = append([]RedisOption{WithConsumerName("test-consumer")}, opts...)
	return NewRedisBus(client, "identity", "identity-admin", opts...), client, mr
}

func TestRedisBus_PublishAndConsume(t *testing.T) {
	ctx := context.Background()
	bus, client := newTestBus(t)

	var received []AccountCreatedPayload
	bus.Subscribe(AccountCreated, func(ctx context.Context, event Event) error {
		var payload AccountCreatedPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		received = append(received, payload)
		return nil
	})
	streams := bus.streams()
	require.NoError(t, bus.ensureGroups(ctx, streams))

	event, err := NewEvent(AccountCreated, AccountCreatedPayload{UserName: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, event))

	length, err := client.XLen(ctx, "identity:AccountCreated").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	handled, err := bus.poll(ctx, streams, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].UserName)

	pending, err := client.XPending(ctx, "identity:AccountCreated", "identity-admin").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count, "handled events are acknowledged")
}

func TestRedisBus_FailedEventsAreClaimedThenDeadLettered(t *testing.T) {
	ctx := context.Background()
	bus, client, mr := newTestBusWithServer(t, WithMaxDeliveries(3), WithClaimIdle(time.Minute))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(now)

	var calls atomic.Int32
	failing := func(ctx context.Context, event Event) error {
		calls.Add(1)
		return errors.New("downstream unavailable")
	}
	bus.Subscribe(AccountUpdated, failing)
	streams := bus.streams()
	require.NoError(t, bus.ensureGroups(ctx, streams))

	event, err := NewEvent(AccountUpdated, AccountUpdatedPayload{Email: "bob@example.com"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, event))

	handled, err := bus.poll(ctx, streams, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
	assert.Equal(t, int32(1), calls.Load())

	pending, err := client.XPending(ctx, "identity:AccountUpdated", "identity-admin").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	// not idle long enough yet
	mr.SetTime(now.Add(30 * time.Second))
	_, err = bus.reclaim(ctx, streams)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// a second consumer of the group takes over the idle event
	other := NewRedisBus(client, "identity", "identity-admin",
		WithConsumerName("other-consumer"), WithMaxDeliveries(3), WithClaimIdle(time.Minute))
	other.Subscribe(AccountUpdated, failing)
	mr.SetTime(now.Add(2 * time.Minute))
	_, err = other.reclaim(ctx, streams)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	dead, err := client.XLen(ctx, "identity:AccountUpdated:dlq").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), dead, "two deliveries are below the limit")

	mr.SetTime(now.Add(4 * time.Minute))
	_, err = bus.reclaim(ctx, streams)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	pending, err = client.XPending(ctx, "identity:AccountUpdated", "identity-admin").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	entries, err := client.XRange(ctx, "identity:AccountUpdated:dlq", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "downstream unavailable", entries[0].Values["error"])
	assert.Equal(t, event.ID, entries[0].Values["id"])
}

func TestRedisBus_RunRetriesAndDeadLetters(t *testing.T) {
	bus, client := newTestBus(t, WithMaxDeliveries(2), WithClaimIdle(50*time.Millisecond))

	var calls atomic.Int32
	bus.Subscribe(AccountUpdated, func(ctx context.Context, event Event) error {
		calls.Add(1)
		return errors.New("downstream unavailable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- bus.Run(ctx) }()

	event, err := NewEvent(AccountUpdated, AccountUpdatedPayload{Email: "dave@example.com"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Eventually(t, func() bool {
		n, err := client.XLen(context.Background(), "identity:AccountUpdated:dlq").Result()
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())

	pending, err := client.XPending(context.Background(), "identity:AccountUpdated", "identity-admin").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	cancel()
	assert.NoError(t, <-errc)
}

func TestRedisBus_RunStopsOnCancel(t *testing.T) {
	bus, _ := newTestBus(t, WithClaimIdle(50*time.Millisecond))

	done := make(chan struct{})
	bus.Subscribe(AccountCreated, func(ctx context.Context, event Event) error {
		close(done)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- bus.Run(ctx) }()

	event, err := NewEvent(AccountCreated, AccountCreatedPayload{UserName: "carol"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return bus.Publish(context.Background(), event) == nil
	}, time.Second, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
	cancel()
	assert.NoError(t, <-errc)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Name: AccountCreated}))
}
