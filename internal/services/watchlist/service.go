package watchlist

import (
	"context"
	"errors"
	"strings"

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
	ErrDependenciesNil = errors.New("watchlist dependencies are not configured")
)

type Store interface {
	InsertTx(ctx context.Context, tx pgx.Tx, rec pgrepo.WatchlistRecord) (int64, bool, error)
	ListByUser(ctx context.Context, userID int64) ([]pgrepo.WatchlistRecord, error)
	Delete(ctx context.Context, userID, itemID int64) error
}

type Ledger interface {
	ExecuteWithCredits(ctx context.Context, userID int64, action enums.ActionKind, run func(context.Context) (string, error)) (credits.ExecResult, error)
}

type PlanGate interface {
	CanAddToWatchlist(ctx context.Context, userID int64) (entitlements.Snapshot, error)
}

type AddInput struct {
	ModelID  string
	Title    string
	Platform string
	PriceEUR *float64
}

type AddResult struct {
	ItemID  int64
	Added   bool
	Charged int
}

type Dependencies struct {
	Pool   *pgxpool.Pool
	Store  Store
	Ledger Ledger
	Gate   PlanGate
}

type Service struct {
	store  Store
	ledger Ledger
	gate   PlanGate
	runTx  func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(deps Dependencies) *Service {
	pool := deps.Pool
	return &Service{
		store:  deps.Store,
		ledger: deps.Ledger,
		gate:   deps.Gate,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
	}
}

var errAlreadyWatched = errors.New("model already watched")

// Add is metered only when it creates a row. The insert is the charged
// executor; a duplicate add aborts the executor and is reported as a
// free no-op.
func (s *Service) Add(ctx context.Context, userID int64, in AddInput) (AddResult, error) {
	if userID <= 0 || strings.TrimSpace(in.ModelID) == "" {
		return AddResult{}, ErrValidation
	}
	if s.store == nil || s.ledger == nil || s.gate == nil {
		return AddResult{}, ErrDependenciesNil
	}

	if _, err := s.gate.CanAddToWatchlist(ctx, userID); err != nil {
		return AddResult{}, err
	}

	var itemID int64
	execResult, err := s.ledger.ExecuteWithCredits(ctx, userID, enums.ActionWatchlistAdd, func(runCtx context.Context) (string, error) {
		return "", s.runTx(runCtx, func(txCtx context.Context, tx pgx.Tx) error {
			id, created, err := s.store.InsertTx(txCtx, tx, pgrepo.WatchlistRecord{
				UserID:   userID,
				ModelID:  strings.TrimSpace(in.ModelID),
				Title:    in.Title,
				Platform: in.Platform,
				PriceEUR: in.PriceEUR,
			})
			if err != nil {
				return err
			}
			if !created {
				return errAlreadyWatched
			}
			itemID = id
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, errAlreadyWatched) {
			return AddResult{Added: false, Charged: 0}, nil
		}
		return AddResult{}, err
	}

	return AddResult{ItemID: itemID, Added: true, Charged: execResult.Cost}, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]model.WatchlistItem, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, ErrDependenciesNil
	}

	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.WatchlistItem, 0, len(records))
	for _, rec := range records {
		out = append(out, model.WatchlistItem{
			ID:        rec.ID,
			UserID:    rec.UserID,
			ModelID:   rec.ModelID,
			Title:     rec.Title,
			Platform:  rec.Platform,
			PriceEUR:  rec.PriceEUR,
			CreatedAt: rec.CreatedAt,
		})
	}

	return out, nil
}

func (s *Service) Remove(ctx context.Context, userID, itemID int64) error {
	if userID <= 0 || itemID <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return ErrDependenciesNil
	}
	return s.store.Delete(ctx, userID, itemID)
}
