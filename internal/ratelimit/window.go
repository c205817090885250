// Package ratelimit shares an admin request budget between consoles through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultKey prefixes the per-window counters
const DefaultKey = "admin_api:rate_limit"

// counter is the subset of redis.Cmdable the window needs
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Window is a fixed-window counter in Redis. Every console pointing at the
// same Redis and key draws from one budget per window.
type Window struct {
	client  counter
	closer  func() error
	limit   int
	window  time.Duration
	baseKey string

	now      func() time.Time
	retryErr time.Duration
}

// NewWindow connects to Redis and allows limit requests per minute
func NewWindow(redisURL string, limit int, baseKey string) (*Window, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", limit)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	w := newWindow(client, limit, time.Minute, baseKey)
	w.closer = client.Close
	return w, nil
}

func newWindow(c counter, limit int, window time.Duration, baseKey string) *Window {
	if baseKey == "" {
		baseKey = DefaultKey
	}
	return &Window{
		client:   c,
		limit:    limit,
		window:   window,
		baseKey:  baseKey,
		now:      time.Now,
		retryErr: time.Second,
	}
}

func (w *Window) key(at time.Time) string {
	return fmt.Sprintf("%s:%d", w.baseKey, at.UnixNano()/int64(w.window))
}

// Wait blocks until the current window has budget left or ctx is done
func (w *Window) Wait(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := w.now()
		windowKey := w.key(now)

		count, err := w.client.Incr(ctx, windowKey).Result()
		if err != nil {
			log.Error().Err(err).Msg("RateLimiter: Redis error")
			// Retry instead of flooding the admin API while Redis is down
			if err := sleep(ctx, w.retryErr); err != nil {
				return err
			}
			continue
		}

		// Set expiry on first increment
		if count == 1 {
			w.client.Expire(ctx, windowKey, 2*w.window)
		}

		if count <= int64(w.limit) {
			return nil
		}

		log.Warn().
			Int64("count", count).
			Int("limit", w.limit).
			Msg("Admin request budget exhausted, waiting for next window")

		next := now.Truncate(w.window).Add(w.window).Add(100 * time.Millisecond)
		wait := next.Sub(now)
		if wait <= 0 {
			wait = w.retryErr
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Close closes the Redis client
func (w *Window) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
