package notify

import (
	"context"
	"time"

	"schoolportal/internal/kv"
)

type notifyingStore struct {
	kv.Store
	bus    Bus
	origin string
}

type originKey struct{}

// WithOrigin tags writes made with ctx through a wrapped store with origin
// instead of the store's own.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// Wrap returns a store that publishes a Change on bus after every successful
// Set or Delete. A failed publish does not fail the write.
func Wrap(s kv.Store, bus Bus, origin string) kv.Store {
	return &notifyingStore{Store: s, bus: bus, origin: origin}
}

func (n *notifyingStore) Set(ctx context.Context, key, value string) error {
	if err := n.Store.Set(ctx, key, value); err != nil {
		return err
	}
	n.publish(ctx, key)
	return nil
}

func (n *notifyingStore) Delete(ctx context.Context, key string) error {
	if err := n.Store.Delete(ctx, key); err != nil {
		return err
	}
	n.publish(ctx, key)
	return nil
}

func (n *notifyingStore) publish(ctx context.Context, key string) {
	origin := n.origin
	if o, ok := ctx.Value(originKey{}).(string); ok && o != "" {
		origin = o
	}
	_ = n.bus.Publish(ctx, Change{Key: key, Origin: origin, At: time.Now().UTC()})
}
