// Package redis wraps go-redis for the engine's two external-facing
// concerns: the L2 cache tier (C3) and the CDC durable stream plus
// real-time pub/sub channel (C7). Every method is a no-op (or returns an
// error) when the client was constructed disabled, so callers above this layer
// never need to branch on whether L2/CDC is configured.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps the go-redis client with a soft-disabled mode.
type Client struct {
	client  *redis.Client
	enabled bool
}

// NewClient dials addr and pings it with a 5s timeout. Passing enabled=false
// returns a Client that no-ops every call; this is the "L2 unreachable
// degrades to L1-only" contract's construction-time counterpart.
func NewClient(addr string, enabled bool) (*Client, error) {
	if !enabled {
		return &Client{enabled: false}, nil
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		// Fall back to treating addr as a bare host:port.
		opts = &redis.Options{Addr: addr}
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: connecting to %s: %w", addr, err)
	}

	return &Client{client: rdb, enabled: true}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsEnabled reports whether this client is backed by a live connection.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// GetClient returns the underlying go-redis client, or nil if disabled.
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// --- L2 cache tier (C3) ---

// Set stores value under key with the given TTL. Fire-and-forget from the
// cache layer's point of view: callers treat an error here as a
// cache-degraded event, never as a hard failure.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Get fetches the raw bytes stored under key. redis.Nil is returned
// unwrapped so callers can distinguish a miss from a degraded backend.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if !c.enabled {
		return nil, fmt.Errorf("redis: disabled")
	}
	return c.client.Get(ctx, key).Bytes()
}

// Del removes keys. Used by invalidate_file / invalidate_prefix.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Keys lists keys matching a glob pattern, used by invalidate_prefix to
// discover the full key set under e.g. `file:*:<path>:*`.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !c.enabled {
		return nil, nil
	}
	return c.client.Keys(ctx, pattern).Result()
}

// Exists reports how many of the given keys are present.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	if !c.enabled {
		return 0, fmt.Errorf("redis: disabled")
	}
	return c.client.Exists(ctx, keys...).Result()
}

// Expire resets a key's TTL.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	return c.client.Expire(ctx, key, ttl).Err()
}

// --- Real-time pub/sub channel (C7) ---

// Publish broadcasts message on channel. Best-effort: the real-time channel
// is at-most-once by contract, so a publish failure is never retried here;
// the CDC manager discards it.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	if !c.enabled {
		return nil
	}
	return c.client.Publish(ctx, channel, message).Err()
}

// Subscribe opens a subscription to one or more channels.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	if !c.enabled {
		return nil
	}
	return c.client.Subscribe(ctx, channels...)
}

// --- Durable append-only stream (C7) ---

// StreamEntry is one record read back from a durable stream.
type StreamEntry struct {
	ID     string
	Fields map[string]interface{}
}

// XAdd appends fields to stream, auto-generating the entry id. This is the
// durable, at-least-once half of C7's fan-out; callers retry a bounded
// number of times on error before dropping the event, never blocking the
// graph's writer lock on this call.
func (c *Client) XAdd(ctx context.Context, stream string, fields map[string]interface{}) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("redis: disabled")
	}
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: fields,
	}).Result()
}

// XRange reads entries from stream in the half-open range (since, "+"],
// implementing C7's `replay(since_id, filter)` primitive. since="-" reads
// from the beginning.
func (c *Client) XRange(ctx context.Context, stream, since string, count int64) ([]StreamEntry, error) {
	if !c.enabled {
		return nil, fmt.Errorf("redis: disabled")
	}
	start := since
	if start == "" {
		start = "-"
	} else if start != "-" {
		start = "(" + start
	}
	msgs, err := c.client.XRangeN(ctx, stream, start, "+", count).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]StreamEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, StreamEntry{ID: m.ID, Fields: m.Values})
	}
	return entries, nil
}

// XRead blocks (up to block, or forever if block==0; a negative block does
// not wait) waiting for entries
// appended to stream after lastID, used by a live-tailing subscriber that
// additionally wants durable-stream delivery.
func (c *Client) XRead(ctx context.Context, stream, lastID string, block time.Duration) ([]StreamEntry, error) {
	if !c.enabled {
		return nil, fmt.Errorf("redis: disabled")
	}
	res, err := c.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Block:   block,
	}).Result()
	if err != nil {
		return nil, err
	}
	var entries []StreamEntry
	for _, s := range res {
		for _, m := range s.Messages {
			entries = append(entries, StreamEntry{ID: m.ID, Fields: m.Values})
		}
	}
	return entries, nil
}
