package scans

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	"github.com/gearscout/backend/internal/services/credits"
	"github.com/gearscout/backend/internal/services/entitlements"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrJobNotFound     = errors.New("scan job not found")
	ErrDependenciesNil = errors.New("scan dependencies are not configured")
)

type JobStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, rec pgrepo.ScanJobRecord) error
	GetByID(ctx context.Context, userID int64, jobID string) (pgrepo.ScanJobRecord, error)
}

type Ledger interface {
	ExecuteWithCredits(ctx context.Context, userID int64, action enums.ActionKind, run func(context.Context) (string, error)) (credits.ExecResult, error)
}

type PlanGate interface {
	CanScan(ctx context.Context, userID int64, kind enums.ActionKind) (entitlements.Snapshot, error)
}

type Throttle interface {
	Allow(ctx context.Context, scope string, userID int64) error
}

type EnqueueResult struct {
	Job       model.ScanJob
	Cost      int
	Remaining int
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Jobs     JobStore
	Ledger   Ledger
	Gate     PlanGate
	Throttle Throttle
}

type Service struct {
	jobs     JobStore
	ledger   Ledger
	gate     PlanGate
	throttle Throttle
	runTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	newJobID func() string
}

func NewService(deps Dependencies) *Service {
	pool := deps.Pool
	return &Service{
		jobs:     deps.Jobs,
		ledger:   deps.Ledger,
		gate:     deps.Gate,
		throttle: deps.Throttle,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
		newJobID: uuid.NewString,
	}
}

// Enqueue runs the gates in order: rate window, plan feature, then the
// metered enqueue. The job insert is the charged executor, so a failed
// insert costs nothing.
func (s *Service) Enqueue(ctx context.Context, userID int64, kind enums.ActionKind, query string) (EnqueueResult, error) {
	query = strings.TrimSpace(query)
	if userID <= 0 || query == "" || !kind.IsScan() {
		return EnqueueResult{}, ErrValidation
	}
	if s.jobs == nil || s.ledger == nil || s.gate == nil {
		return EnqueueResult{}, ErrDependenciesNil
	}

	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, "scan", userID); err != nil {
			return EnqueueResult{}, err
		}
	}

	if _, err := s.gate.CanScan(ctx, userID, kind); err != nil {
		return EnqueueResult{}, err
	}

	jobID := s.newJobID()
	execResult, err := s.ledger.ExecuteWithCredits(ctx, userID, kind, func(runCtx context.Context) (string, error) {
		err := s.runTx(runCtx, func(txCtx context.Context, tx pgx.Tx) error {
			return s.jobs.InsertTx(txCtx, tx, pgrepo.ScanJobRecord{
				ID:     jobID,
				UserID: userID,
				Kind:   string(kind),
				Query:  query,
			})
		})
		if err != nil {
			return "", err
		}
		return jobID, nil
	})
	if err != nil {
		return EnqueueResult{}, err
	}

	job, err := s.Get(ctx, userID, jobID)
	if err != nil {
		return EnqueueResult{}, err
	}

	return EnqueueResult{
		Job:       job,
		Cost:      execResult.Cost,
		Remaining: execResult.Remaining,
	}, nil
}

func (s *Service) Get(ctx context.Context, userID int64, jobID string) (model.ScanJob, error) {
	if userID <= 0 || strings.TrimSpace(jobID) == "" {
		return model.ScanJob{}, ErrValidation
	}
	if s.jobs == nil {
		return model.ScanJob{}, ErrDependenciesNil
	}

	rec, err := s.jobs.GetByID(ctx, userID, jobID)
	if err != nil {
		return model.ScanJob{}, ErrJobNotFound
	}

	return model.ScanJob{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Kind:      enums.ActionKind(rec.Kind),
		Query:     rec.Query,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}, nil
}
