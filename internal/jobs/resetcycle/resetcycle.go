package resetcycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
)

type dueLister interface {
	ListDueForReset(ctx context.Context, now time.Time, limit int) ([]pgrepo.CreditStateRecord, error)
}

type cycleResetter interface {
	ResetCycle(ctx context.Context, userID int64, newPlan *enums.PlanKey) (model.CreditState, error)
}

type Job struct {
	states    dueLister
	ledger    cycleResetter
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func New(states dueLister, ledger cycleResetter, batchSize int, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		states:    states,
		ledger:    ledger,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Run resets every cycle whose reset date has passed. Reset keeps the
// current plan, so newPlan stays nil. Per-user failures are logged and
// skipped so one broken row cannot stall the whole sweep.
func (j *Job) Run(ctx context.Context) error {
	if j.states == nil || j.ledger == nil {
		return nil
	}

	for {
		due, err := j.states.ListDueForReset(ctx, j.now(), j.batchSize)
		if err != nil {
			return fmt.Errorf("list due credit states: %w", err)
		}
		if len(due) == 0 {
			return nil
		}

		var reset, failed int
		for _, rec := range due {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := j.ledger.ResetCycle(ctx, rec.UserID, nil); err != nil {
				failed++
				j.logger.Warn("failed to reset credit cycle", zap.Error(err), zap.Int64("user_id", rec.UserID))
				continue
			}
			reset++
		}

		j.logger.Info("credit cycle sweep completed", zap.Int("reset", reset), zap.Int("failed", failed))

		// A batch where nothing advanced would loop forever on the same rows.
		if reset == 0 {
			return nil
		}
		if len(due) < j.batchSize {
			return nil
		}
	}
}
