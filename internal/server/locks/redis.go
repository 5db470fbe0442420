package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/ids"
	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based lock shared by every replica talking to the same
// Redis. A holder that dies loses the lock after TTL.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger logging.Logger
}

// NewRedis returns a Redis locker. Keys are stored as prefix+key.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration, logger logging.Logger) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		logger: logger.With("module", "redis_locker"),
	}, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}
	k := r.prefix + key
	owner := ids.New()

	for {
		ok, err := r.client.SetNX(ctx, k, owner, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	var once sync.Once
	return func() {
		// release even if the caller's context is already done
		once.Do(func() { r.release(context.WithoutCancel(ctx), k, owner) })
	}, nil
}

// release drops k if owner still holds it. The lease expires on its own, so
// a failure here only delays the next holder and is logged.
func (r *Redis) release(ctx context.Context, k, owner string) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, r.client, []string{k}, owner).Int()
	switch {
	case err != nil:
		r.logger.Warn(ctx, "Lock release failed", "key", k, "error", err)
	case n == 0:
		r.logger.Warn(ctx, "Lock lease expired before release", "key", k, "ttl", r.ttl.String())
	}
}
