package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/logger"
)

const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

const renewScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

const (
	defaultRetryInterval = 100 * time.Millisecond
	releaseTimeout       = 5 * time.Second
	keyPrefix            = "smart-ledger:lock:"
)

// redisClient is the subset of *redis.Client the locker uses.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a lock shared by every instance pointing at the same
// Redis. Each lock expires after ttl so a crashed holder cannot block a
// user forever. A live holder renews its lock every ttl/3 until release.
type RedisLocker struct {
	client redisClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	renew  time.Duration
}

// NewRedisClient creates a go-redis client for addr.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

// NewRedisLocker creates a locker whose locks expire after ttl. Acquire
// waits at most ttl for a busy key.
func NewRedisLocker(client redisClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   ttl,
		retry:  defaultRetryInterval,
		renew:  ttl / 3,
	}
}

// Acquire polls SET NX PX until the key is free, the wait budget is spent
// or ctx ends.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("RedisLocker.Acquire: set nx: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("RedisLocker.Acquire: %s: %w", key, ErrLocked)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("RedisLocker.Acquire: %s: %w", key, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("lock_key", redisKey).Dur("ttl", l.ttl).Msg("lock acquired")

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if l.renew <= 0 {
			return
		}
		ticker := time.NewTicker(l.renew)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
				n, err := l.client.Eval(rctx, renewScript, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
				cancel()
				if err != nil {
					log.Warn().Err(err).Str("lock_key", redisKey).Msg("failed to renew lock")
					continue
				}
				if n == 0 {
					log.Warn().Str("lock_key", redisKey).Msg("lock lost before renewal")
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			l.release(redisKey, token, log)
		})
	}, nil
}

func (l *RedisLocker) release(redisKey, token string, log zerolog.Logger) {
	// The commit context may already be cancelled.
	rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := l.client.Eval(rctx, releaseScript, []string{redisKey}, token).Int()
	if err != nil {
		log.Warn().Err(err).Str("lock_key", redisKey).Msg("failed to release lock")
		return
	}
	if n == 0 {
		log.Warn().Str("lock_key", redisKey).Msg("lock expired before release")
	}
}
