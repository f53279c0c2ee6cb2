package lock

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "candle-lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrNotAcquired is returned when the key stays held until ctx is done.
var ErrNotAcquired = errors.New("lock not acquired")

// Redis is a lock shared by every process pointed at the same server.
// A holder that dies keeps the key for at most ttl.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 0

	operation := func() error {
		ok, err := r.rdb.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "redis SETNX"))
		}
		if !ok {
			return ErrNotAcquired
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ErrNotAcquired, ctx.Err().Error())
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(redisKey, token) })
	}, nil
}

func (r *Redis) release(redisKey, token string) {
	// release on a fresh context so a cancelled request still frees the key
	releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(releaseCtx, r.rdb, []string{redisKey}, token).Err(); err != nil {
		log.Warn().Err(err).Str("key", redisKey).Msg("failed to release candle lock")
	}
}
