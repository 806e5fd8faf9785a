package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Fixed is a fixed window limiter on top of ulule/limiter. It guards the
// credential endpoints.
type Fixed struct {
	Store limiter.Store
}

// NewFixed builds a Fixed limiter backed by Redis.
func NewFixed(client *redis.Client, prefix string) (Fixed, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix, MaxRetry: 3})
	if err != nil {
		return Fixed{}, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return Fixed{Store: store}, nil
}

// Allow implements Limiter.
func (f Fixed) Allow(ctx context.Context, key string, window time.Duration, limit int) (bool, int, time.Time, error) {
	if f.Store == nil || limit <= 0 || window <= 0 {
		return true, limit, time.Now().Add(window), nil
	}
	lctx, err := limiter.New(f.Store, limiter.Rate{Period: window, Limit: int64(limit)}).Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !lctx.Reached, int(lctx.Remaining), time.Unix(lctx.Reset, 0), nil
}
