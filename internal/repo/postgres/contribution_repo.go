package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContributionRecord struct {
	ID            int64
	UserID        int64
	TaskID        string
	PagesScanned  int
	AdsSent       int
	DurationSec   int64
	HighPriority  bool
	CreditsEarned int
	CreatedAt     time.Time
}

type ContributionRepo struct {
	pool *pgxpool.Pool
}

func NewContributionRepo(pool *pgxpool.Pool) *ContributionRepo {
	return &ContributionRepo{pool: pool}
}

// InsertTx dedupes on task id so a replayed completion event cannot earn
// credits twice; inserted=false means the task was already rewarded.
func (r *ContributionRepo) InsertTx(ctx context.Context, tx pgx.Tx, rec ContributionRecord) (int64, bool, error) {
	if rec.UserID <= 0 || strings.TrimSpace(rec.TaskID) == "" {
		return 0, false, fmt.Errorf("invalid contribution payload")
	}
	if tx == nil {
		return 0, false, fmt.Errorf("transaction is required")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO community_contributions (
	user_id, task_id, pages_scanned, ads_sent,
	duration_sec, high_priority, credits_earned, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (task_id) DO NOTHING
RETURNING id
`, rec.UserID, rec.TaskID, rec.PagesScanned, rec.AdsSent,
		rec.DurationSec, rec.HighPriority, rec.CreditsEarned).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("insert contribution: %w", err)
	}

	return id, true, nil
}

func (r *ContributionRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]ContributionRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, task_id, pages_scanned, ads_sent,
       duration_sec, high_priority, credits_earned, created_at
FROM community_contributions
WHERE user_id = $1
ORDER BY id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []ContributionRecord
	for rows.Next() {
		var rec ContributionRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.TaskID, &rec.PagesScanned, &rec.AdsSent,
			&rec.DurationSec, &rec.HighPriority, &rec.CreditsEarned, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contributions: %w", err)
	}

	return out, nil
}
