package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const balancePrefix = "balance:"

// BalanceSnapshot is the cached view of a credit state. It is advisory
// only: the authoritative balance lives in postgres and every mutation
// there invalidates this key.
type BalanceSnapshot struct {
	PlanKey          string    `json:"plan_key"`
	CreditsRemaining int       `json:"credits_remaining"`
	CreditsResetDate time.Time `json:"credits_reset_date"`
}

type BalanceCacheRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewBalanceCacheRepo(client *goredis.Client, ttl time.Duration) *BalanceCacheRepo {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BalanceCacheRepo{client: client, ttl: ttl}
}

func (r *BalanceCacheRepo) Get(ctx context.Context, userID int64) (BalanceSnapshot, bool, error) {
	if r.client == nil {
		return BalanceSnapshot{}, false, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return BalanceSnapshot{}, false, fmt.Errorf("invalid user id")
	}

	raw, err := r.client.Get(ctx, balanceKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return BalanceSnapshot{}, false, nil
		}
		return BalanceSnapshot{}, false, fmt.Errorf("get cached balance: %w", err)
	}

	var snapshot BalanceSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		// Stale or corrupt cache entries are treated as misses.
		return BalanceSnapshot{}, false, nil
	}

	return snapshot, true, nil
}

func (r *BalanceCacheRepo) Set(ctx context.Context, userID int64, snapshot BalanceSnapshot) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal balance snapshot: %w", err)
	}

	if err := r.client.Set(ctx, balanceKey(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cached balance: %w", err)
	}

	return nil
}

func (r *BalanceCacheRepo) Invalidate(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if err := r.client.Del(ctx, balanceKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached balance: %w", err)
	}

	return nil
}

func balanceKey(userID int64) string {
	return fmt.Sprintf("%s%d", balancePrefix, userID)
}
