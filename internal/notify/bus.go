// Package notify delivers key-change events between every client sharing a
// store, the way browsers deliver storage events to other tabs.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Change announces that Key was written or removed.
type Change struct {
	Key    string    `json:"key"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Bus is the abstraction over different backends. Every subscriber receives
// every change published after it subscribed; ordering across publishers is
// not guaranteed.
type Bus interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// InMemory fans changes out to in-process subscribers.
type InMemory struct {
	size int

	mu   sync.Mutex
	subs map[chan Change]struct{}
}

// NewInMemory creates a bus whose subscriber channels buffer size changes.
// A subscriber that falls behind by more than size changes misses the excess.
func NewInMemory(size int) *InMemory {
	if size <= 0 {
		size = 64
	}
	return &InMemory{size: size, subs: make(map[chan Change]struct{})}
}

// Publish hands c to every current subscriber.
func (b *InMemory) Publish(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel closed when ctx ends.
func (b *InMemory) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, b.size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// RedisBus implements the bus over Redis PUBLISH/SUBSCRIBE.
type RedisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus builds a bus on channel.
func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = "portal:changes"
	}
	return &RedisBus{client: client, channel: channel}
}

// Publish sends c to all subscribers of the channel.
func (b *RedisBus) Publish(ctx context.Context, c Change) error {
	payload, err := sonic.ConfigStd.MarshalToString(c)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe streams changes until ctx ends.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Change, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan Change)
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
				var c Change
				if err := sonic.ConfigStd.UnmarshalFromString(msg.Payload, &c); err != nil {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
