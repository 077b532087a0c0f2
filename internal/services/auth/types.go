package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRefreshNotFound = errors.New("refresh token not found")
)

type SessionRecord struct {
	SID       string
	UserID    int64
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    int64
	SID       string
	ExpiresAt time.Time
}

type AuthResult struct {
	UserID        int64
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
}

func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
