package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScanJobRecord struct {
	ID        string
	UserID    int64
	Kind      string
	Query     string
	Status    string
	CreatedAt time.Time
}

type ScanJobRepo struct {
	pool *pgxpool.Pool
}

func NewScanJobRepo(pool *pgxpool.Pool) *ScanJobRepo {
	return &ScanJobRepo{pool: pool}
}

func (r *ScanJobRepo) InsertTx(ctx context.Context, tx pgx.Tx, rec ScanJobRecord) error {
	if strings.TrimSpace(rec.ID) == "" || rec.UserID <= 0 || strings.TrimSpace(rec.Kind) == "" {
		return fmt.Errorf("invalid scan job payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO scan_jobs (id, user_id, kind, query, status, created_at)
VALUES ($1, $2, $3, $4, 'queued', NOW())
`, rec.ID, rec.UserID, rec.Kind, rec.Query); err != nil {
		return fmt.Errorf("insert scan job: %w", err)
	}

	return nil
}

func (r *ScanJobRepo) GetByID(ctx context.Context, userID int64, jobID string) (ScanJobRecord, error) {
	if userID <= 0 || strings.TrimSpace(jobID) == "" {
		return ScanJobRecord{}, fmt.Errorf("invalid scan job lookup payload")
	}
	if r.pool == nil {
		return ScanJobRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec ScanJobRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, kind, query, status, created_at
FROM scan_jobs
WHERE id = $1 AND user_id = $2
LIMIT 1
`, jobID, userID).Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Query, &rec.Status, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ScanJobRecord{}, fmt.Errorf("scan job not found")
		}
		return ScanJobRecord{}, fmt.Errorf("get scan job: %w", err)
	}

	return rec, nil
}
