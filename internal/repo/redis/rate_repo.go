package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateRepo keeps fixed-window request counters, one key per scope and
// user, expiring together with the window.
type RateRepo struct {
	client *goredis.Client
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

// HitWindow counts the request into the current window and reports the
// running total together with the time left until the window closes.
func (r *RateRepo) HitWindow(ctx context.Context, scope string, userID int64, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}
	if scope == "" || userID <= 0 || window <= 0 {
		return 0, 0, fmt.Errorf("invalid rate window arguments")
	}

	key := fmt.Sprintf("ratelimit:%s:%d", scope, userID)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("advance rate window %q: %w", key, err)
	}

	count := incr.Val()
	ttl := ttlCmd.Val()
	if count == 1 || ttl < 0 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("arm rate window %q: %w", key, err)
		}
		ttl = window
	}

	return count, ttl, nil
}
