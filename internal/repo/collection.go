package repo

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/kv"
	"schoolportal/internal/validate"
)

// Entity is a pointer to a record with a string identifier.
type Entity[T any] interface {
	*T
	GetID() string
	SetID(id string)
}

// stamper is implemented by records that carry a creation time.
type stamper interface {
	Stamp(now time.Time)
}

// Collection is an ordered list of records stored as one JSON array under a
// single key. Every mutation reads the whole list and writes it back; two
// writers racing on the same collection lose one of the writes.
type Collection[T any, PT Entity[T]] struct {
	store kv.Store
	key   string
	ids   func() string
	now   func() time.Time
}

// Key is the storage key backing the collection.
func (c Collection[T, PT]) Key() string { return c.key }

// All returns the stored records in insertion order. A missing or corrupt
// value reads as an empty collection.
func (c Collection[T, PT]) All(ctx context.Context) ([]T, error) {
	var items []T
	ok, err := kv.GetJSON(ctx, c.store, c.key, &items)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", c.key)
	}
	if !ok || items == nil {
		return []T{}, nil
	}
	return items, nil
}

// Save replaces the whole collection.
func (c Collection[T, PT]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	if err := kv.SetJSON(ctx, c.store, c.key, items); err != nil {
		return errors.Wrapf(err, "save %s", c.key)
	}
	return nil
}

// Add validates item, assigns it a fresh identifier and a creation time when
// it has none, and appends it.
func (c Collection[T, PT]) Add(ctx context.Context, item T) (T, error) {
	p := PT(&item)
	p.SetID(c.ids())
	if s, ok := any(p).(stamper); ok {
		s.Stamp(c.now())
	}
	if err := validate.Struct(p); err != nil {
		var zero T
		return zero, err
	}
	items, err := c.All(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := c.Save(ctx, append(items, item)); err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

// AddAll adds every item in one write. Nothing is written unless every item
// is valid.
func (c Collection[T, PT]) AddAll(ctx context.Context, batch []T) ([]T, error) {
	added := make([]T, len(batch))
	copy(added, batch)
	for i := range added {
		p := PT(&added[i])
		p.SetID(c.ids())
		if s, ok := any(p).(stamper); ok {
			s.Stamp(c.now())
		}
		if err := validate.Struct(p); err != nil {
			return nil, errors.Wrapf(err, "record %d", i+1)
		}
	}
	items, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Save(ctx, append(items, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// Find returns the record with the given id.
func (c Collection[T, PT]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T
	items, err := c.All(ctx)
	if err != nil {
		return zero, false, err
	}
	for i := range items {
		if PT(&items[i]).GetID() == id {
			return items[i], true, nil
		}
	}
	return zero, false, nil
}

// Filter returns the records keep accepts, in stored order.
func (c Collection[T, PT]) Filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	items, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Update applies patch to the record with the given id and stores the result.
// It reports false, and writes nothing, when no record matches.
func (c Collection[T, PT]) Update(ctx context.Context, id string, patch func(PT)) (bool, error) {
	items, err := c.All(ctx)
	if err != nil {
		return false, err
	}
	for i := range items {
		p := PT(&items[i])
		if p.GetID() != id {
			continue
		}
		patch(p)
		p.SetID(id)
		if err := validate.Struct(p); err != nil {
			return false, err
		}
		return true, c.Save(ctx, items)
	}
	return false, nil
}

// Delete removes the record with the given id. A missing id is not an error
// and leaves the stored value untouched.
func (c Collection[T, PT]) Delete(ctx context.Context, id string) (bool, error) {
	items, err := c.All(ctx)
	if err != nil {
		return false, err
	}
	kept := items[:0]
	removed := false
	for i := range items {
		if PT(&items[i]).GetID() == id {
			removed = true
			continue
		}
		kept = append(kept, items[i])
	}
	if !removed {
		return false, nil
	}
	return true, c.Save(ctx, kept)
}
