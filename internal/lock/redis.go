package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTTL   = 10 * time.Second
	retryEvery   = 25 * time.Millisecond
	redisKeyBase = "itp:lock:"
)

// Deletes the key only while it still holds the caller's token, so an expired
// lock that was taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance using the same Redis server.
// A lock expires after its TTL even if the holder never releases it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a distributed Locker. A non-positive ttl uses 10s.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Lock retries SET NX until it succeeds or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyBase + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryEvery)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("redis SETNX %s: %w", redisKey, err)
		}
		if ok {
			return r.unlocker(redisKey, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Redis) unlocker(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
				log.WithError(err).WithField("key", redisKey).Warn("failed to release redis lock")
			}
		})
	}
}
