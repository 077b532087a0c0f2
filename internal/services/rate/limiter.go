package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrValidation = errors.New("validation error")

// TooFastError tells the caller when the window opens again.
type TooFastError struct {
	RetryAfter time.Duration
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("too many requests, retry in %s", e.RetryAfter)
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type WindowStore interface {
	HitWindow(ctx context.Context, scope string, userID int64, window time.Duration) (int64, time.Duration, error)
}

type Config struct {
	Window time.Duration
	Max    int64
}

// Limiter enforces a fixed window per user and scope. A redis outage
// fails open: throttling is a protection, not an entitlement.
type Limiter struct {
	store  WindowStore
	window time.Duration
	max    int64
}

func NewLimiter(store WindowStore, cfg Config) *Limiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	max := cfg.Max
	if max <= 0 {
		max = 10
	}
	return &Limiter{store: store, window: window, max: max}
}

func (l *Limiter) Allow(ctx context.Context, scope string, userID int64) error {
	if scope == "" || userID <= 0 {
		return ErrValidation
	}
	if l.store == nil {
		return nil
	}

	count, ttl, err := l.store.HitWindow(ctx, scope, userID, l.window)
	if err != nil {
		return nil
	}

	if count > l.max {
		retry := ttl
		if retry <= 0 {
			retry = l.window
		}
		return TooFastError{RetryAfter: retry}
	}

	return nil
}
