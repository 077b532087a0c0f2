package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCreditStateNotFound = errors.New("credit state not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type CreditStateRecord struct {
	UserID           int64
	PlanKey          string
	CreditsRemaining int
	CreditsResetDate time.Time
	UpdatedAt        time.Time
}

type CreditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

func (r *CreditRepo) GetState(ctx context.Context, userID int64) (CreditStateRecord, error) {
	if userID <= 0 {
		return CreditStateRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return CreditStateRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec CreditStateRecord
	err := r.pool.QueryRow(ctx, `
SELECT user_id, plan_key, credits_remaining, credits_reset_date, updated_at
FROM credit_states
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&rec.UserID, &rec.PlanKey, &rec.CreditsRemaining, &rec.CreditsResetDate, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditStateRecord{}, ErrCreditStateNotFound
		}
		return CreditStateRecord{}, fmt.Errorf("get credit state: %w", err)
	}

	return rec, nil
}

// ConsumeTx is the authoritative check-and-deduct: the conditional update
// only fires while the balance covers the amount, so the stored balance
// can never go negative regardless of concurrent consumers.
func (r *CreditRepo) ConsumeTx(ctx context.Context, tx pgx.Tx, userID int64, amount int) (CreditStateRecord, error) {
	if userID <= 0 || amount <= 0 {
		return CreditStateRecord{}, fmt.Errorf("invalid credit consume payload")
	}
	if tx == nil {
		return CreditStateRecord{}, fmt.Errorf("transaction is required")
	}

	var rec CreditStateRecord
	err := tx.QueryRow(ctx, `
UPDATE credit_states
SET
	credits_remaining = credits_remaining - $2,
	updated_at = NOW()
WHERE user_id = $1 AND credits_remaining >= $2
RETURNING user_id, plan_key, credits_remaining, credits_reset_date, updated_at
`, userID, amount).Scan(&rec.UserID, &rec.PlanKey, &rec.CreditsRemaining, &rec.CreditsResetDate, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditStateRecord{}, ErrInsufficientCredits
		}
		return CreditStateRecord{}, fmt.Errorf("consume credits: %w", err)
	}

	return rec, nil
}

func (r *CreditRepo) AddTx(ctx context.Context, tx pgx.Tx, userID int64, amount int) (CreditStateRecord, error) {
	if userID <= 0 || amount <= 0 {
		return CreditStateRecord{}, fmt.Errorf("invalid credit add payload")
	}
	if tx == nil {
		return CreditStateRecord{}, fmt.Errorf("transaction is required")
	}

	var rec CreditStateRecord
	err := tx.QueryRow(ctx, `
UPDATE credit_states
SET
	credits_remaining = credits_remaining + $2,
	updated_at = NOW()
WHERE user_id = $1
RETURNING user_id, plan_key, credits_remaining, credits_reset_date, updated_at
`, userID, amount).Scan(&rec.UserID, &rec.PlanKey, &rec.CreditsRemaining, &rec.CreditsResetDate, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditStateRecord{}, ErrCreditStateNotFound
		}
		return CreditStateRecord{}, fmt.Errorf("add credits: %w", err)
	}

	return rec, nil
}

// ResetCycleTx replaces the balance with the plan allowance. The upsert
// also creates the state row when a subscription starts.
func (r *CreditRepo) ResetCycleTx(ctx context.Context, tx pgx.Tx, userID int64, planKey string, allowance int, resetAt time.Time) (CreditStateRecord, error) {
	if userID <= 0 || planKey == "" || allowance < 0 {
		return CreditStateRecord{}, fmt.Errorf("invalid cycle reset payload")
	}
	if tx == nil {
		return CreditStateRecord{}, fmt.Errorf("transaction is required")
	}

	var rec CreditStateRecord
	err := tx.QueryRow(ctx, `
INSERT INTO credit_states (
	user_id,
	plan_key,
	credits_remaining,
	credits_reset_date,
	updated_at
) VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	plan_key = EXCLUDED.plan_key,
	credits_remaining = EXCLUDED.credits_remaining,
	credits_reset_date = EXCLUDED.credits_reset_date,
	updated_at = NOW()
RETURNING user_id, plan_key, credits_remaining, credits_reset_date, updated_at
`, userID, planKey, allowance, resetAt.UTC()).Scan(&rec.UserID, &rec.PlanKey, &rec.CreditsRemaining, &rec.CreditsResetDate, &rec.UpdatedAt)
	if err != nil {
		return CreditStateRecord{}, fmt.Errorf("reset credit cycle: %w", err)
	}

	return rec, nil
}

func (r *CreditRepo) ListDueForReset(ctx context.Context, now time.Time, limit int) ([]CreditStateRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, plan_key, credits_remaining, credits_reset_date, updated_at
FROM credit_states
WHERE credits_reset_date <= $1
ORDER BY credits_reset_date
LIMIT $2
`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due credit states: %w", err)
	}
	defer rows.Close()

	var out []CreditStateRecord
	for rows.Next() {
		var rec CreditStateRecord
		if err := rows.Scan(&rec.UserID, &rec.PlanKey, &rec.CreditsRemaining, &rec.CreditsResetDate, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan due credit state: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due credit states: %w", err)
	}

	return out, nil
}

func (r *CreditRepo) ListExpiringSoon(ctx context.Context, now time.Time, within time.Duration, limit int) ([]CreditStateRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if within <= 0 {
		within = 7 * 24 * time.Hour
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, plan_key, credits_remaining, credits_reset_date, updated_at
FROM credit_states
WHERE credits_reset_date > $1
  AND credits_reset_date <= $2
  AND credits_remaining > 0
ORDER BY credits_reset_date
LIMIT $3
`, now.UTC(), now.UTC().Add(within), limit)
	if err != nil {
		return nil, fmt.Errorf("list expiring credit states: %w", err)
	}
	defer rows.Close()

	var out []CreditStateRecord
	for rows.Next() {
		var rec CreditStateRecord
		if err := rows.Scan(&rec.UserID, &rec.PlanKey, &rec.CreditsRemaining, &rec.CreditsResetDate, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expiring credit state: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expiring credit states: %w", err)
	}

	return out, nil
}
