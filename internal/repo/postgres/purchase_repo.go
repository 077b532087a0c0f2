package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PurchaseRecord struct {
	ID             int64
	UserID         int64
	SKU            string
	IdempotencyKey string
	CreditsGranted int
	CreatedAt      time.Time
}

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// InsertTx returns inserted=false when the idempotency key was already
// used; the caller must then skip the credit grant.
func (r *PurchaseRepo) InsertTx(ctx context.Context, tx pgx.Tx, rec PurchaseRecord) (int64, bool, error) {
	if rec.UserID <= 0 || strings.TrimSpace(rec.SKU) == "" || strings.TrimSpace(rec.IdempotencyKey) == "" {
		return 0, false, fmt.Errorf("invalid purchase payload")
	}
	if tx == nil {
		return 0, false, fmt.Errorf("transaction is required")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO purchases (user_id, sku, idempotency_key, credits_granted, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING id
`, rec.UserID, rec.SKU, rec.IdempotencyKey, rec.CreditsGranted).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("insert purchase: %w", err)
	}

	return id, true, nil
}
