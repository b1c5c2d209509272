package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each window as a sorted set scored by request time in
// microseconds, so every instance sees the same counts.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRedisStore(client *redis.Client, clock func() time.Time) *RedisStore {
	if clock == nil {
		clock = time.Now
	}
	return &RedisStore{client: client, clock: clock}
}

func (s *RedisStore) Allow(ctx context.Context, key string, p Policy) (*Result, error) {
	now := s.clock()
	cutoff := strconv.FormatInt(now.Add(-p.Window).UnixMicro(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	count := pipe.ZCard(ctx, key)
	oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read window %s: %w", key, err)
	}

	resetAt := now.Add(p.Window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMicro(int64(zs[0].Score)).Add(p.Window)
	}

	if int(count.Val()) >= p.Limit {
		return &Result{
			Allowed:    false,
			Limit:      p.Limit,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt, now),
		}, nil
	}

	pipe = s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
	pipe.PExpire(ctx, key, p.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record request %s: %w", key, err)
	}

	if count.Val() == 0 {
		resetAt = now.Add(p.Window)
	}
	return &Result{
		Allowed:   true,
		Limit:     p.Limit,
		Remaining: p.Limit - int(count.Val()) - 1,
		ResetAt:   resetAt,
	}, nil
}
