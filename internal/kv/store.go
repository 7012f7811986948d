// Package kv is the persistent key-value substrate every portal collection
// lives in. Values are strings; callers that hold records go through GetJSON
// and SetJSON.
package kv

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Store is a flat string key-value namespace shared by every client of the
// same backend. Writers are not coordinated: the last Set on a key wins.
type Store interface {
	// Get returns the raw value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

var codec = sonic.ConfigStd

// ErrUnexpectedShape reports a stored value that is well-formed JSON but does
// not decode into the requested type. Such values are never treated as empty,
// so a following write cannot replace records it failed to read.
var ErrUnexpectedShape = errors.New("stored value has an unexpected shape")

// GetJSON decodes the value stored under key into dst. It reports false when
// the key is absent or holds malformed JSON; in the latter case no error is
// returned and the caller falls back to its empty default. Well-formed JSON
// of the wrong shape fails with ErrUnexpectedShape. dst must not be used
// when GetJSON reports false.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if raw == "" || raw == "null" {
		return false, nil
	}
	if err := codec.UnmarshalFromString(raw, dst); err != nil {
		if codec.Valid([]byte(raw)) {
			return false, errors.Wrapf(ErrUnexpectedShape, "%s: %v", key, err)
		}
		corruptValues.Inc()
		return false, nil
	}
	return true, nil
}

// SetJSON serialises v and stores it under key, replacing any prior value.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := codec.MarshalToString(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}
