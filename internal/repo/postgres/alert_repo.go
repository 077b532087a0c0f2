package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAlertNotFound   = errors.New("alert not found")
	ErrAlertCapReached = errors.New("active alert cap reached")
)

type AlertRecord struct {
	ID              int64
	UserID          int64
	TargetType      string
	TargetID        string
	AlertType       string
	Threshold       *float64
	Region          *string
	Platform        *string
	IsActive        bool
	CreatedAt       time.Time
	LastTriggeredAt *time.Time
}

type AlertRepo struct {
	pool *pgxpool.Pool
}

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

func (r *AlertRepo) Create(ctx context.Context, rec AlertRecord) (AlertRecord, error) {
	if rec.UserID <= 0 || strings.TrimSpace(rec.TargetID) == "" {
		return AlertRecord{}, fmt.Errorf("invalid alert payload")
	}
	if r.pool == nil {
		return AlertRecord{}, fmt.Errorf("postgres pool is nil")
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO alerts (
	user_id, target_type, target_id, alert_type,
	threshold, region, platform, is_active, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING id, created_at
`, rec.UserID, rec.TargetType, rec.TargetID, rec.AlertType,
		rec.Threshold, rec.Region, rec.Platform, rec.IsActive).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("create alert: %w", err)
	}

	return rec, nil
}

func (r *AlertRepo) GetByID(ctx context.Context, userID, alertID int64) (AlertRecord, error) {
	if userID <= 0 || alertID <= 0 {
		return AlertRecord{}, fmt.Errorf("invalid alert lookup payload")
	}
	if r.pool == nil {
		return AlertRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec AlertRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, target_type, target_id, alert_type,
       threshold, region, platform, is_active, created_at, last_triggered_at
FROM alerts
WHERE id = $1 AND user_id = $2
LIMIT 1
`, alertID, userID).Scan(
		&rec.ID, &rec.UserID, &rec.TargetType, &rec.TargetID, &rec.AlertType,
		&rec.Threshold, &rec.Region, &rec.Platform, &rec.IsActive, &rec.CreatedAt, &rec.LastTriggeredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AlertRecord{}, ErrAlertNotFound
		}
		return AlertRecord{}, fmt.Errorf("get alert: %w", err)
	}

	return rec, nil
}

func (r *AlertRepo) ListByUser(ctx context.Context, userID int64) ([]AlertRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, target_type, target_id, alert_type,
       threshold, region, platform, is_active, created_at, last_triggered_at
FROM alerts
WHERE user_id = $1
ORDER BY id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.TargetType, &rec.TargetID, &rec.AlertType,
			&rec.Threshold, &rec.Region, &rec.Platform, &rec.IsActive, &rec.CreatedAt, &rec.LastTriggeredAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	return out, nil
}

func (r *AlertRepo) CountActive(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM alerts
WHERE user_id = $1 AND is_active
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active alerts: %w", err)
	}

	return count, nil
}

// ActivateWithLimitTx flips is_active on only while the user stays under
// the cap; the count and the flip happen in one statement so two
// concurrent activations cannot both slip past the limit.
func (r *AlertRepo) ActivateWithLimitTx(ctx context.Context, tx pgx.Tx, userID, alertID int64, maxActive int) error {
	if userID <= 0 || alertID <= 0 || maxActive < 0 {
		return fmt.Errorf("invalid alert activation payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE alerts
SET is_active = TRUE
WHERE id = $1
  AND user_id = $2
  AND (
	SELECT COUNT(*)
	FROM alerts
	WHERE user_id = $2 AND is_active AND id <> $1
  ) < $3
`, alertID, userID, maxActive)
	if err != nil {
		return fmt.Errorf("activate alert with limit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertCapReached
	}

	return nil
}

func (r *AlertRepo) Deactivate(ctx context.Context, userID, alertID int64) error {
	if userID <= 0 || alertID <= 0 {
		return fmt.Errorf("invalid alert deactivation payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE alerts
SET is_active = FALSE
WHERE id = $1 AND user_id = $2
`, alertID, userID)
	if err != nil {
		return fmt.Errorf("deactivate alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}

	return nil
}

func (r *AlertRepo) Update(ctx context.Context, rec AlertRecord) error {
	if rec.UserID <= 0 || rec.ID <= 0 {
		return fmt.Errorf("invalid alert update payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE alerts
SET
	alert_type = $3,
	threshold = $4,
	region = $5,
	platform = $6
WHERE id = $1 AND user_id = $2
`, rec.ID, rec.UserID, rec.AlertType, rec.Threshold, rec.Region, rec.Platform)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}

	return nil
}

func (r *AlertRepo) Delete(ctx context.Context, userID, alertID int64) error {
	if userID <= 0 || alertID <= 0 {
		return fmt.Errorf("invalid alert delete payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM alerts
WHERE id = $1 AND user_id = $2
`, alertID, userID)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}

	return nil
}
