package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis stores every key as a plain Redis string, optionally under a prefix.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{Client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.Client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "redis get %q", key)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.Client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %q", key)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.Client.Del(ctx, r.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %q", key)
	}
	return nil
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func (r *Redis) Close() error { return r.Client.Close() }
