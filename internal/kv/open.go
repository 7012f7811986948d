package kv

import (
	"context"

	"github.com/pkg/errors"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPrefix   string
	DatabaseURL   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// Open connects the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendRedis:
		r := NewRedis(NewRedisClient(opts.RedisAddr), opts.RedisPrefix)
		if !r.Healthy(ctx) {
			_ = r.Close()
			return nil, errors.Errorf("redis at %s not reachable", opts.RedisAddr)
		}
		return r, nil
	case BackendPostgres:
		return NewPostgres(ctx, opts.DatabaseURL)
	case BackendSQLite:
		return NewSQLite(ctx, opts.SQLitePath)
	case BackendMongo:
		return NewMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, errors.Errorf("unknown store backend %q", opts.Backend)
	}
}
