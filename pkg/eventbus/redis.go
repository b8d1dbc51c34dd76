package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBlock         = 5 * time.Second
	defaultClaimIdle     = 30 * time.Second
	defaultMaxDeliveries = 5
	batchSize            = 10
)

// RedisBus carries events over Redis Streams, one stream per event name
// (<prefix>:<name>). Every service instance joins the same consumer group,
// so each event is handled by one instance.
type RedisBus struct {
	client   redis.UniversalClient
	prefix   string
	group    string
	consumer string
	block    time.Duration

	claimIdle     time.Duration
	maxDeliveries int

	mu       sync.RWMutex
	handlers map[string]Handler
}

type RedisOption func(*RedisBus)

func WithConsumerName(name string) RedisOption {
	return func(b *RedisBus) { b.consumer = name }
}

// WithMaxDeliveries sets how many deliveries a failing event gets before it
// is moved to the <stream>:dlq stream
func WithMaxDeliveries(n int) RedisOption {
	return func(b *RedisBus) { b.maxDeliveries = n }
}

// WithClaimIdle sets how long an event stays unacknowledged before it is
// claimed and delivered again, by this or any other consumer of the group
func WithClaimIdle(d time.Duration) RedisOption {
	return func(b *RedisBus) { b.claimIdle = d }
}

func NewRedisBus(client redis.UniversalClient, prefix, group string, opts ...RedisOption) *RedisBus {
	b := &RedisBus{
		client:        client,
		prefix:        prefix,
		group:         group,
		consumer:      defaultConsumerName(),
		block:         defaultBlock,
		claimIdle:     defaultClaimIdle,
		maxDeliveries: defaultMaxDeliveries,
		handlers:      make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxDeliveries < 1 {
		b.maxDeliveries = 1
	}
	if b.claimIdle <= 0 {
		b.claimIdle = defaultClaimIdle
	}
	if b.block > b.claimIdle {
		b.block = b.claimIdle
	}
	return b
}

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "identity-admin"
	}
	return host + "-" + uuid.NewString()[:8]
}

func (b *RedisBus) stream(name string) string {
	return b.prefix + ":" + name
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream(event.Name),
		Values: map[string]interface{}{
			"id":          event.ID,
			"name":        event.Name,
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
			"payload":     string(event.Payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Name, err)
	}
	slog.Debug("Event published", "event", event.Name, "event_id", event.ID, "stream_id", id)
	return nil
}

// Subscribe registers the handler for an event name. Call before Run.
func (b *RedisBus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = handler
	slog.Info("Subscribing to event", "event", name, "group", b.group)
}

func (b *RedisBus) streams() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	streams := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		streams = append(streams, b.stream(name))
	}
	return streams
}

// Run consumes until ctx is done. Between reads of new events it claims
// events left unacknowledged for longer than the claim idle time, whether a
// handler here failed on them or another consumer died holding them.
func (b *RedisBus) Run(ctx context.Context) error {
	streams := b.streams()
	if len(streams) == 0 {
		return nil
	}
	if err := b.ensureGroups(ctx, streams); err != nil {
		return err
	}

	lastClaim := time.Time{}
	for {
		if time.Since(lastClaim) >= b.claimIdle {
			if _, err := b.reclaim(ctx, streams); err != nil && ctx.Err() == nil {
				slog.Error("Failed to claim pending events", "err", err)
			}
			lastClaim = time.Now()
		}

		_, err := b.poll(ctx, streams, b.block)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.Error("Failed to read events", "err", err)
			time.Sleep(time.Second)
		}
	}
}

func (b *RedisBus) ensureGroups(ctx context.Context, streams []string) error {
	for _, stream := range streams {
		err := b.client.XGroupCreateMkStream(ctx, stream, b.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("failed to create consumer group %s on %s: %w", b.group, stream, err)
		}
	}
	return nil
}

// poll reads one batch of new events and returns how many were handled
func (b *RedisBus) poll(ctx context.Context, streams []string, block time.Duration) (int, error) {
	args := make([]string, 0, 2*len(streams))
	args = append(args, streams...)
	for range streams {
		args = append(args, ">")
	}

	result, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.group,
		Consumer: b.consumer,
		Streams:  args,
		Count:    batchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, stream := range result {
		for _, msg := range stream.Messages {
			if b.process(ctx, stream.Stream, msg, 1) {
				handled++
			}
		}
	}
	return handled, nil
}

// reclaim takes over events pending for longer than the claim idle time
// and handles them again. It returns how many were handled.
func (b *RedisBus) reclaim(ctx context.Context, streams []string) (int, error) {
	handled := 0
	for _, stream := range streams {
		start := "0-0"
		for {
			msgs, next, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   stream,
				Group:    b.group,
				Consumer: b.consumer,
				MinIdle:  b.claimIdle,
				Start:    start,
				Count:    batchSize,
			}).Result()
			if err != nil {
				return handled, fmt.Errorf("failed to claim events on %s: %w", stream, err)
			}
			for _, msg := range msgs {
				deliveries, err := b.deliveries(ctx, stream, msg.ID)
				if err != nil {
					return handled, err
				}
				if b.process(ctx, stream, msg, deliveries) {
					handled++
				}
			}
			if next == "0-0" || next == "" {
				break
			}
			start = next
		}
	}
	return handled, nil
}

// deliveries reads the delivery count redis keeps for a pending event
func (b *RedisBus) deliveries(ctx context.Context, stream, id string) (int64, error) {
	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  b.group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delivery count of %s on %s: %w", id, stream, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

func (b *RedisBus) process(ctx context.Context, stream string, msg redis.XMessage, deliveries int64) bool {
	event, err := decodeMessage(msg)
	if err != nil {
		slog.Error("Dropping malformed event", "stream", stream, "stream_id", msg.ID, "err", err)
		b.ack(ctx, stream, msg.ID)
		return false
	}

	b.mu.RLock()
	handler, ok := b.handlers[event.Name]
	b.mu.RUnlock()
	if !ok {
		b.ack(ctx, stream, msg.ID)
		return false
	}

	if err := handler(ctx, event); err != nil {
		slog.Warn("Event handler failed", "event", event.Name, "event_id", event.ID, "delivery", deliveries, "err", err)
		if deliveries >= int64(b.maxDeliveries) {
			b.deadLetter(ctx, stream, msg, err)
		}
		return false
	}

	b.ack(ctx, stream, msg.ID)
	return true
}

func (b *RedisBus) ack(ctx context.Context, stream, id string) {
	if err := b.client.XAck(ctx, stream, b.group, id).Err(); err != nil {
		slog.Error("Failed to acknowledge event", "stream", stream, "stream_id", id, "err", err)
	}
}

func (b *RedisBus) deadLetter(ctx context.Context, stream string, msg redis.XMessage, cause error) {
	values := make(map[string]interface{}, len(msg.Values)+2)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["error"] = cause.Error()
	values["original_id"] = msg.ID

	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: stream + ":dlq", Values: values}).Err(); err != nil {
		slog.Error("Failed to dead-letter event, leaving it pending", "stream", stream, "stream_id", msg.ID, "err", err)
		return
	}
	b.ack(ctx, stream, msg.ID)
	slog.Error("Event moved to dead letter stream", "stream", stream, "stream_id", msg.ID)
}

func decodeMessage(msg redis.XMessage) (Event, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}
	event := Event{ID: str("id"), Name: str("name"), Payload: []byte(str("payload"))}
	if event.Name == "" {
		return Event{}, errors.New("event name is missing")
	}
	if ts := str("occurred_at"); ts != "" {
		occurred, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Event{}, fmt.Errorf("invalid occurred_at %q: %w", ts, err)
		}
		event.OccurredAt = occurred
	}
	return event, nil
}
