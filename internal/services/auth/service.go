package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinRefreshTTL = 30 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
}

// UserStore resolves the product's external identity (the web login is
// handled upstream) into a local user id.
type UserStore interface {
	GetOrCreateByExternalID(ctx context.Context, externalID string) (UserRecord, error)
}

type UserRecord struct {
	UserID int64
}

type Service struct {
	jwt        *JWTManager
	sessions   SessionStore
	users      UserStore
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(jwtManager *JWTManager, sessions SessionStore, refreshTTL time.Duration) *Service {
	if refreshTTL < MinRefreshTTL {
		refreshTTL = MinRefreshTTL
	}
	if refreshTTL > MaxRefreshTTL {
		refreshTTL = MaxRefreshTTL
	}

	return &Service{
		jwt:        jwtManager,
		sessions:   sessions,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *Service) AttachUsers(users UserStore) {
	s.users = users
}

func (s *Service) Login(ctx context.Context, externalID string) (AuthResult, error) {
	if strings.TrimSpace(externalID) == "" {
		return AuthResult{}, ErrInvalidInput
	}
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("user store is not configured")
	}

	user, err := s.users.GetOrCreateByExternalID(ctx, externalID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("resolve external identity: %w", err)
	}

	return s.issueForUser(ctx, user.UserID)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}
	if s.sessions == nil {
		return AuthResult{}, fmt.Errorf("session store is not configured")
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		UserID:        session.UserID,
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if s.sessions == nil {
		return fmt.Errorf("session store is not configured")
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (AccessClaims, error) {
	if s.jwt == nil {
		return AccessClaims{}, fmt.Errorf("jwt manager is not configured")
	}
	return s.jwt.ParseAccessToken(accessToken)
}

func (s *Service) issueForUser(ctx context.Context, userID int64) (AuthResult, error) {
	if userID <= 0 {
		return AuthResult{}, ErrInvalidInput
	}
	if s.jwt == nil || s.sessions == nil {
		return AuthResult{}, fmt.Errorf("auth dependencies are not configured")
	}

	sid := uuid.NewString()
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}

	expiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.Create(ctx, SessionRecord{
		SID:       sid,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(userID, sid)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		UserID:        userID,
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
	}, nil
}
