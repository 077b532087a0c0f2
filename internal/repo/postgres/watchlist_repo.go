package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WatchlistRecord struct {
	ID        int64
	UserID    int64
	ModelID   string
	Title     string
	Platform  string
	PriceEUR  *float64
	CreatedAt time.Time
}

type WatchlistRepo struct {
	pool *pgxpool.Pool
}

func NewWatchlistRepo(pool *pgxpool.Pool) *WatchlistRepo {
	return &WatchlistRepo{pool: pool}
}

// InsertTx reports whether a new row was created; re-adding an already
// watched model is a no-op and must not be charged.
func (r *WatchlistRepo) InsertTx(ctx context.Context, tx pgx.Tx, rec WatchlistRecord) (int64, bool, error) {
	if rec.UserID <= 0 || strings.TrimSpace(rec.ModelID) == "" {
		return 0, false, fmt.Errorf("invalid watchlist payload")
	}
	if tx == nil {
		return 0, false, fmt.Errorf("transaction is required")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO watchlist_items (user_id, model_id, title, platform, price_eur, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (user_id, model_id) DO NOTHING
RETURNING id
`, rec.UserID, rec.ModelID, rec.Title, rec.Platform, rec.PriceEUR).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("insert watchlist item: %w", err)
	}

	return id, true, nil
}

func (r *WatchlistRepo) ListByUser(ctx context.Context, userID int64) ([]WatchlistRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, model_id, title, platform, price_eur, created_at
FROM watchlist_items
WHERE user_id = $1
ORDER BY id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist items: %w", err)
	}
	defer rows.Close()

	var out []WatchlistRecord
	for rows.Next() {
		var rec WatchlistRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ModelID, &rec.Title, &rec.Platform, &rec.PriceEUR, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist item: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist items: %w", err)
	}

	return out, nil
}

func (r *WatchlistRepo) Delete(ctx context.Context, userID, itemID int64) error {
	if userID <= 0 || itemID <= 0 {
		return fmt.Errorf("invalid watchlist delete payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM watchlist_items
WHERE id = $1 AND user_id = $2
`, itemID, userID); err != nil {
		return fmt.Errorf("delete watchlist item: %w", err)
	}

	return nil
}
