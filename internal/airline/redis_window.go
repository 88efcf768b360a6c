package airline

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindowClient is the minimal client surface used by the redis
// limiter.
type RedisWindowClient interface {
	ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisWindowLimiter keeps the per-class sliding windows in a redis
// sorted set keyed by operation class, so every process booking
// against the same airline account shares one quota. The check and
// the insert are not atomic; overshoot under concurrency is accepted
// the same way it is for the in-memory limiter.
type RedisWindowLimiter struct {
	client    RedisWindowClient
	keyPrefix string
	limits    map[Op]int
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
	onWait    func(time.Duration)
}

// NewRedisWindowLimiter constructs a redis-backed limiter with the
// documented quotas.
func NewRedisWindowLimiter(client RedisWindowClient, onWait func(time.Duration)) *RedisWindowLimiter {
	return &RedisWindowLimiter{
		client:    client,
		keyPrefix: "airline:window:",
		limits: map[Op]int{
			OpSearch: searchPerMinute,
			OpOrder:  orderPerMinute,
			OpOther:  otherPerMinute,
		},
		now:    time.Now,
		sleep:  sleepWithContext,
		onWait: onWait,
	}
}

// Wait blocks until the shared window for op has capacity or ctx ends.
func (l *RedisWindowLimiter) Wait(ctx context.Context, op Op) error {
	if l == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := l.allow(ctx, op)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if l.onWait != nil {
			l.onWait(limitPollGap)
		}
		if err := l.sleep(ctx, limitPollGap); err != nil {
			return err
		}
	}
}

func (l *RedisWindowLimiter) allow(ctx context.Context, op Op) (bool, error) {
	limit, ok := l.limits[op]
	if !ok {
		limit = otherPerMinute
	}

	key := l.keyPrefix + string(op)
	now := l.now()
	cutoff := now.Add(-limitWindow).UnixMilli()

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return false, err
	}
	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count >= int64(limit) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := l.client.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member}).Err(); err != nil {
		return false, err
	}
	if err := l.client.Expire(ctx, key, limitWindow).Err(); err != nil {
		return false, err
	}
	return true, nil
}
