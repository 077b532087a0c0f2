package expirywarn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gearscout/backend/internal/domain/rules"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
)

type expiringLister interface {
	ListExpiringSoon(ctx context.Context, now time.Time, within time.Duration, limit int) ([]pgrepo.CreditStateRecord, error)
}

type userLookup interface {
	GetByID(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
}

type notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Job struct {
	states    expiringLister
	users     userLookup
	notify    notifier
	batchSize int
	now       func() time.Time
	logger    *zap.Logger

	// warned dedupes per cycle so a user gets at most one message per
	// reset date. Restarting the worker may repeat a warning; that is
	// acceptable for an informational nudge.
	warned map[string]struct{}
}

func New(states expiringLister, users userLookup, notify notifier, batchSize int, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		states:    states,
		users:     users,
		notify:    notify,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
		warned:    make(map[string]struct{}),
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.states == nil || j.users == nil || j.notify == nil {
		return nil
	}

	now := j.now()
	within := time.Duration(rules.ResetSoonWindowDays) * 24 * time.Hour

	expiring, err := j.states.ListExpiringSoon(ctx, now, within, j.batchSize)
	if err != nil {
		return fmt.Errorf("list expiring credit states: %w", err)
	}

	var sent int
	for _, rec := range expiring {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		key := warnKey(rec)
		if _, ok := j.warned[key]; ok {
			continue
		}

		user, err := j.users.GetByID(ctx, rec.UserID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				continue
			}
			j.logger.Warn("failed to load user for expiry warning", zap.Error(err), zap.Int64("user_id", rec.UserID))
			continue
		}
		if user.NotifyChatID == nil {
			continue
		}

		outlook := rules.Outlook(rec.CreditsResetDate, now, rec.CreditsRemaining)
		text := warnText(rec.CreditsRemaining, outlook.DaysUntilReset)
		if err := j.notify.SendText(ctx, *user.NotifyChatID, text); err != nil {
			j.logger.Warn("failed to send expiry warning", zap.Error(err), zap.Int64("user_id", rec.UserID))
			continue
		}

		j.warned[key] = struct{}{}
		sent++
	}

	if sent > 0 {
		j.logger.Info("expiry warning sweep completed", zap.Int("sent", sent))
	}

	return nil
}

func warnKey(rec pgrepo.CreditStateRecord) string {
	return fmt.Sprintf("%d:%s", rec.UserID, rec.CreditsResetDate.UTC().Format(time.RFC3339))
}

func warnText(credits, days int) string {
	if days == 1 {
		return fmt.Sprintf("Your %d remaining credits expire tomorrow. Credits do not roll over to the next cycle.", credits)
	}
	return fmt.Sprintf("Your %d remaining credits expire in %d days. Credits do not roll over to the next cycle.", credits, days)
}
