package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/gearscout/backend/internal/services/auth"
)

const (
	sessionPrefix = "sessions:"
	refreshPrefix = "refresh:"
)

type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(refreshToken) == "" || session.UserID <= 0 {
		return authsvc.ErrInvalidInput
	}

	ttl := ttlFor(session.ExpiresAt)
	fields := map[string]interface{}{
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt.Unix(),
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.SID), fields)
	pipe.Expire(ctx, sessionKey(session.SID), ttl)
	pipe.HSet(ctx, refreshKey(refreshToken), map[string]interface{}{
		"user_id":    session.UserID,
		"sid":        session.SID,
		"expires_at": session.ExpiresAt.Unix(),
	})
	pipe.Expire(ctx, refreshKey(refreshToken), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(refreshToken) == "" {
		return authsvc.SessionRecord{}, authsvc.ErrInvalidInput
	}

	fields, err := r.client.HGetAll(ctx, refreshKey(refreshToken)).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("get refresh session: %w", err)
	}
	if len(fields) == 0 {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}

	return recordFromFields(fields)
}

func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" || strings.TrimSpace(oldRefreshToken) == "" || strings.TrimSpace(newRefreshToken) == "" {
		return authsvc.ErrInvalidInput
	}

	fields, err := r.client.HGetAll(ctx, refreshKey(oldRefreshToken)).Result()
	if err != nil {
		return fmt.Errorf("get refresh session for rotation: %w", err)
	}
	if len(fields) == 0 {
		return authsvc.ErrRefreshNotFound
	}

	session, err := recordFromFields(fields)
	if err != nil {
		return err
	}

	ttl := ttlFor(expiresAt)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, refreshKey(oldRefreshToken))
	pipe.HSet(ctx, refreshKey(newRefreshToken), map[string]interface{}{
		"user_id":    session.UserID,
		"sid":        sid,
		"expires_at": expiresAt.Unix(),
	})
	pipe.Expire(ctx, refreshKey(newRefreshToken), ttl)
	pipe.Expire(ctx, sessionKey(sid), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	return nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return authsvc.ErrInvalidInput
	}

	if err := r.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func recordFromFields(fields map[string]string) (authsvc.SessionRecord, error) {
	userID, err := strconv.ParseInt(fields["user_id"], 10, 64)
	if err != nil || userID <= 0 {
		return authsvc.SessionRecord{}, fmt.Errorf("corrupt session record")
	}

	expiresUnix, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("corrupt session record")
	}

	return authsvc.SessionRecord{
		SID:       fields["sid"],
		UserID:    userID,
		ExpiresAt: time.Unix(expiresUnix, 0).UTC(),
	}, nil
}

func ttlFor(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return ttl
}

func sessionKey(sid string) string {
	return sessionPrefix + sid
}

func refreshKey(token string) string {
	return refreshPrefix + token
}
