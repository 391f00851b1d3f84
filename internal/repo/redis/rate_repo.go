package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const ratePrefix = "advent:"

// RateRepo stores fixed-window counters for purchase and tip limits.
type RateRepo struct {
	client *goredis.Client
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

// IncrementWindow counts one hit and returns the new count plus the time left
// in the window. The window starts on the first hit and is never extended.
func (r *RateRepo) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" || window <= 0 {
		return 0, 0, fmt.Errorf("invalid rate window payload")
	}

	full := ratePrefix + key
	pipe := r.client.TxPipeline()
	pipe.SetNX(ctx, full, 0, window)
	incr := pipe.Incr(ctx, full)
	pttl := pipe.PTTL(ctx, full)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("increment rate window %s: %w", key, err)
	}

	return incr.Val(), clampTTL(pttl.Val()), nil
}

// WindowState reads a counter without touching it.
func (r *RateRepo) WindowState(ctx context.Context, key string) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, 0, fmt.Errorf("rate key is required")
	}

	full := ratePrefix + key
	pipe := r.client.Pipeline()
	get := pipe.Get(ctx, full)
	pttl := pipe.PTTL(ctx, full)
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return 0, 0, fmt.Errorf("read rate window %s: %w", key, err)
	}

	if get.Err() == goredis.Nil {
		return 0, 0, nil
	}
	count, err := get.Int64()
	if err != nil {
		return 0, 0, fmt.Errorf("parse rate window %s: %w", key, err)
	}
	return count, clampTTL(pttl.Val()), nil
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}
