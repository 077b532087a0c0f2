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

var ErrUserNotFound = errors.New("user not found")

type UserRecord struct {
	ID           int64
	ExternalID   string
	NotifyChatID *int64
	CreatedAt    time.Time
}

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetOrCreateByExternalID(ctx context.Context, externalID string) (UserRecord, error) {
	if strings.TrimSpace(externalID) == "" {
		return UserRecord{}, fmt.Errorf("external id is required")
	}
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec UserRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (external_id, created_at)
VALUES ($1, NOW())
ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
RETURNING id, external_id, notify_chat_id, created_at
`, strings.TrimSpace(externalID)).Scan(&rec.ID, &rec.ExternalID, &rec.NotifyChatID, &rec.CreatedAt)
	if err != nil {
		return UserRecord{}, fmt.Errorf("get or create user: %w", err)
	}

	return rec, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (UserRecord, error) {
	if userID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, external_id, notify_chat_id, created_at
FROM users
WHERE id = $1
LIMIT 1
`, userID).Scan(&rec.ID, &rec.ExternalID, &rec.NotifyChatID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}

	return rec, nil
}

func (r *UserRepo) SetNotifyChatID(ctx context.Context, userID, chatID int64) error {
	if userID <= 0 || chatID <= 0 {
		return fmt.Errorf("invalid notify chat payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE users
SET notify_chat_id = $2
WHERE id = $1
`, userID, chatID)
	if err != nil {
		return fmt.Errorf("set notify chat id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
