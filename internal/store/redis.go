package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis holds the client used by the event queue and the shared rate limiter.
type Redis struct {
	Client *redis.Client
}

// OpenRedis accepts either host:port or a redis:// URL. The client connects lazily.
func OpenRedis(addr string) (*Redis, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return &Redis{Client: redis.NewClient(opts)}, nil
}

// Healthy reports whether a PING succeeds.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the pool. Safe on a nil handle.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
