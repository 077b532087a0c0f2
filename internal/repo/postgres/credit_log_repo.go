package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreditLogRecord struct {
	ID        int64
	UserID    int64
	Delta     int
	Reason    string
	JobID     *string
	CreatedAt time.Time
}

type CreditLogRepo struct {
	pool *pgxpool.Pool
}

func NewCreditLogRepo(pool *pgxpool.Pool) *CreditLogRepo {
	return &CreditLogRepo{pool: pool}
}

// AppendTx writes the audit row in the same transaction as the balance
// mutation so a deduction and its log entry commit or roll back together.
func (r *CreditLogRepo) AppendTx(ctx context.Context, tx pgx.Tx, userID int64, delta int, reason string, jobID *string) error {
	if userID <= 0 || strings.TrimSpace(reason) == "" {
		return fmt.Errorf("invalid credit log payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO credit_log (user_id, delta, reason, job_id, created_at)
VALUES ($1, $2, $3, $4, NOW())
`, userID, delta, reason, jobID); err != nil {
		return fmt.Errorf("append credit log entry: %w", err)
	}

	return nil
}

func (r *CreditLogRepo) ListRecent(ctx context.Context, userID int64, limit int) ([]CreditLogRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, delta, reason, job_id, created_at
FROM credit_log
WHERE user_id = $1
ORDER BY id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list credit log: %w", err)
	}
	defer rows.Close()

	var out []CreditLogRecord
	for rows.Next() {
		var rec CreditLogRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Delta, &rec.Reason, &rec.JobID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit log entry: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit log: %w", err)
	}

	return out, nil
}
