// Package events fans key changes out to every open admin console so they
// can reload. Events never carry key material, only a fingerprint.
package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the Redis pub/sub channel for key events
const DefaultChannel = "admin:key_events"

// KeyEventType tells what happened to a key
type KeyEventType string

const (
	KeyCreated KeyEventType = "created"
	KeyDeleted KeyEventType = "deleted"
)

// KeyEvent announces a key change made by one console
type KeyEvent struct {
	Type        KeyEventType `json:"type"`
	OwnerName   string       `json:"owner_name,omitempty"`
	Fingerprint string       `json:"fingerprint"`
	Origin      string       `json:"origin"`
	At          time.Time    `json:"at"`
}

// Fingerprint derives a short, non-reversible identifier for a key
func Fingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])[:12]
}

// Publisher sends key events
type Publisher interface {
	Publish(ctx context.Context, ev KeyEvent) error
}

// Subscriber receives key events until ctx is done
type Subscriber interface {
	Subscribe(ctx context.Context) <-chan KeyEvent
}

// Encode serializes an event for the wire
func Encode(ev KeyEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses an event from the wire
func Decode(data []byte) (KeyEvent, error) {
	var ev KeyEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return KeyEvent{}, fmt.Errorf("failed to parse key event: %w", err)
	}
	if ev.Type != KeyCreated && ev.Type != KeyDeleted {
		return KeyEvent{}, fmt.Errorf("unknown key event type: %q", ev.Type)
	}
	return ev, nil
}

// Bus publishes and subscribes to key events over Redis pub/sub
type Bus struct {
	client  *redis.Client
	channel string
}

// NewBus connects to Redis
func NewBus(redisURL, channel string) (*Bus, error) {
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

	if channel == "" {
		channel = DefaultChannel
	}

	return &Bus{client: client, channel: channel}, nil
}

// Publish sends ev to every subscriber
func (b *Bus) Publish(ctx context.Context, ev KeyEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("failed to encode key event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish key event: %w", err)
	}
	return nil
}

// Subscribe streams events until ctx is done. Undecodable messages are dropped.
func (b *Bus) Subscribe(ctx context.Context) <-chan KeyEvent {
	out := make(chan KeyEvent)
	sub := b.client.Subscribe(ctx, b.channel)

	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := Decode([]byte(msg.Payload))
				if err != nil {
					log.Warn().Err(err).Msg("Dropping malformed key event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Close closes the Redis client
func (b *Bus) Close() error {
	return b.client.Close()
}
