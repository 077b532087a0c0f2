package community

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearscout/backend/internal/domain/model"
	"github.com/gearscout/backend/internal/domain/rules"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	"github.com/gearscout/backend/internal/services/credits"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDependenciesNil = errors.New("community dependencies are not configured")
)

type ContributionStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, rec pgrepo.ContributionRecord) (int64, bool, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]pgrepo.ContributionRecord, error)
}

type Ledger interface {
	Add(ctx context.Context, userID int64, amount int, reason string, jobID *string) (model.CreditState, error)
}

// CompletionEvent is a finished manual scraping task as reported by the
// extension. CompletedAt is when the scrape finished on the client;
// the reward shrinks the longer the submission lags behind it.
type CompletionEvent struct {
	TaskID       string
	PagesScanned int
	AdsSent      int
	DurationSec  int64
	HighPriority bool
	CompletedAt  time.Time
}

type CompleteResult struct {
	ContributionID int64
	Duplicate      bool
	Reward         rules.Reward
	Balance        int
}

type Dependencies struct {
	Pool          *pgxpool.Pool
	Contributions ContributionStore
	Ledger        Ledger
}

type Service struct {
	contributions ContributionStore
	ledger        Ledger
	params        rules.RewardParams
	runTx         func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now           func() time.Time
}

func NewService(deps Dependencies, params rules.RewardParams) *Service {
	if params.Base <= 0 {
		params = rules.DefaultRewardParams()
	}
	pool := deps.Pool
	return &Service{
		contributions: deps.Contributions,
		ledger:        deps.Ledger,
		params:        params,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
		now: time.Now,
	}
}

// Complete rewards a finished scraping task. The contribution insert
// dedupes on task id, so a replayed event reports Duplicate and earns
// nothing; the credit grant happens only for the first delivery.
func (s *Service) Complete(ctx context.Context, userID int64, event CompletionEvent) (CompleteResult, error) {
	if userID <= 0 || strings.TrimSpace(event.TaskID) == "" {
		return CompleteResult{}, ErrValidation
	}
	if event.PagesScanned < 0 || event.AdsSent < 0 || event.DurationSec < 0 || event.CompletedAt.IsZero() {
		return CompleteResult{}, ErrValidation
	}
	if s.contributions == nil || s.ledger == nil {
		return CompleteResult{}, ErrDependenciesNil
	}

	delay := s.now().Sub(event.CompletedAt)
	reward := rules.CalculateCreditGain(delay, event.HighPriority, s.params)

	var contributionID int64
	inserted := false
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		id, created, err := s.contributions.InsertTx(txCtx, tx, pgrepo.ContributionRecord{
			UserID:        userID,
			TaskID:        strings.TrimSpace(event.TaskID),
			PagesScanned:  event.PagesScanned,
			AdsSent:       event.AdsSent,
			DurationSec:   event.DurationSec,
			HighPriority:  event.HighPriority,
			CreditsEarned: reward.Total,
		})
		if err != nil {
			return err
		}
		contributionID = id
		inserted = created
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}

	if !inserted {
		return CompleteResult{Duplicate: true}, nil
	}

	taskID := strings.TrimSpace(event.TaskID)
	state, err := s.ledger.Add(ctx, userID, reward.Total, credits.ReasonCommunityReward, &taskID)
	if err != nil {
		return CompleteResult{}, err
	}

	return CompleteResult{
		ContributionID: contributionID,
		Reward:         reward,
		Balance:        state.CreditsRemaining,
	}, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.CommunityContribution, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.contributions == nil {
		return nil, ErrDependenciesNil
	}

	records, err := s.contributions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]model.CommunityContribution, 0, len(records))
	for _, rec := range records {
		out = append(out, model.CommunityContribution{
			ID:            rec.ID,
			UserID:        rec.UserID,
			TaskID:        rec.TaskID,
			PagesScanned:  rec.PagesScanned,
			AdsSent:       rec.AdsSent,
			DurationSec:   rec.DurationSec,
			HighPriority:  rec.HighPriority,
			CreditsEarned: rec.CreditsEarned,
			CreatedAt:     rec.CreatedAt,
		})
	}

	return out, nil
}
