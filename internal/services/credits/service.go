package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	"github.com/gearscout/backend/internal/domain/rules"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	redrepo "github.com/gearscout/backend/internal/repo/redis"
)

const (
	ReasonCycleReset      = "cycle_reset"
	ReasonCommunityReward = "community_reward"
	ReasonTopup           = "credit_topup"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrStateNotFound   = errors.New("credit state not found")
	ErrDependenciesNil = errors.New("credit dependencies are not configured")
	ErrExecutorNil     = errors.New("executor is required")
)

// InsufficientCreditsError carries the structured payload the caller
// surfaces as an upgrade or top-up prompt.
type InsufficientCreditsError struct {
	Action   enums.ActionKind
	Required int
	Current  int
}

func (e InsufficientCreditsError) Error() string {
	return "insufficient credits"
}

func (e InsufficientCreditsError) Deficit() int {
	deficit := e.Required - e.Current
	if deficit < 0 {
		return 0
	}
	return deficit
}

func IsInsufficientCredits(err error) (*InsufficientCreditsError, bool) {
	var ic InsufficientCreditsError
	if errors.As(err, &ic) {
		return &ic, true
	}
	return nil, false
}

type StateStore interface {
	GetState(ctx context.Context, userID int64) (pgrepo.CreditStateRecord, error)
	ConsumeTx(ctx context.Context, tx pgx.Tx, userID int64, amount int) (pgrepo.CreditStateRecord, error)
	AddTx(ctx context.Context, tx pgx.Tx, userID int64, amount int) (pgrepo.CreditStateRecord, error)
	ResetCycleTx(ctx context.Context, tx pgx.Tx, userID int64, planKey string, allowance int, resetAt time.Time) (pgrepo.CreditStateRecord, error)
}

type LogStore interface {
	AppendTx(ctx context.Context, tx pgx.Tx, userID int64, delta int, reason string, jobID *string) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]pgrepo.CreditLogRecord, error)
}

// BalanceCache is the advisory view; postgres stays authoritative and a
// cache failure never fails a ledger operation.
type BalanceCache interface {
	Get(ctx context.Context, userID int64) (redrepo.BalanceSnapshot, bool, error)
	Set(ctx context.Context, userID int64, snapshot redrepo.BalanceSnapshot) error
	Invalidate(ctx context.Context, userID int64) error
}

type CheckResult struct {
	Allowed bool
	Cost    int
	Current int
	Deficit int
}

type ExecResult struct {
	JobID     string
	Cost      int
	Remaining int
}

type Dependencies struct {
	Pool   *pgxpool.Pool
	States StateStore
	Log    LogStore
	Cache  BalanceCache
}

type Service struct {
	states StateStore
	log    LogStore
	cache  BalanceCache
	runTx  func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now    func() time.Time
}

func NewService(deps Dependencies) *Service {
	pool := deps.Pool
	return &Service{
		states: deps.States,
		log:    deps.Log,
		cache:  deps.Cache,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
		now: time.Now,
	}
}

// GetState reads through the cache; misses fall back to the
// authoritative store and repopulate it.
func (s *Service) GetState(ctx context.Context, userID int64) (model.CreditState, error) {
	if userID <= 0 {
		return model.CreditState{}, ErrValidation
	}
	if s.states == nil {
		return model.CreditState{}, ErrDependenciesNil
	}

	if s.cache != nil {
		if snapshot, ok, err := s.cache.Get(ctx, userID); err == nil && ok {
			return model.CreditState{
				UserID:           userID,
				PlanKey:          enums.PlanKey(snapshot.PlanKey),
				CreditsRemaining: snapshot.CreditsRemaining,
				CreditsResetDate: snapshot.CreditsResetDate,
			}, nil
		}
	}

	rec, err := s.states.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCreditStateNotFound) {
			return model.CreditState{}, ErrStateNotFound
		}
		return model.CreditState{}, fmt.Errorf("get credit state: %w", err)
	}

	s.fillCache(ctx, rec)
	return stateFromRecord(rec), nil
}

// CheckCredits is a pure read: calling it any number of times never
// changes the balance.
func (s *Service) CheckCredits(ctx context.Context, userID int64, action enums.ActionKind) (CheckResult, error) {
	cost, err := rules.CostOf(action)
	if err != nil {
		return CheckResult{}, err
	}

	state, err := s.GetState(ctx, userID)
	if err != nil {
		return CheckResult{}, err
	}

	deficit := cost - state.CreditsRemaining
	if deficit < 0 {
		deficit = 0
	}

	return CheckResult{
		Allowed: state.CreditsRemaining >= cost,
		Cost:    cost,
		Current: state.CreditsRemaining,
		Deficit: deficit,
	}, nil
}

// Consume is the authoritative deduction. When the conditional update
// rejects an amount the cached check had allowed, the stale cache entry
// is dropped and the error carries the re-read balance.
func (s *Service) Consume(ctx context.Context, userID int64, amount int, reason string, jobID *string) (model.CreditState, error) {
	if userID <= 0 || amount <= 0 || strings.TrimSpace(reason) == "" {
		return model.CreditState{}, ErrValidation
	}
	if s.states == nil || s.log == nil {
		return model.CreditState{}, ErrDependenciesNil
	}

	var rec pgrepo.CreditStateRecord
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		consumed, err := s.states.ConsumeTx(txCtx, tx, userID, amount)
		if err != nil {
			return err
		}
		rec = consumed
		return s.log.AppendTx(txCtx, tx, userID, -amount, reason, jobID)
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrInsufficientCredits) {
			return model.CreditState{}, s.reconcileInsufficient(ctx, userID, amount, enums.ActionKind(reason))
		}
		return model.CreditState{}, fmt.Errorf("consume credits: %w", err)
	}

	s.fillCache(ctx, rec)
	return stateFromRecord(rec), nil
}

func (s *Service) Add(ctx context.Context, userID int64, amount int, reason string, jobID *string) (model.CreditState, error) {
	if userID <= 0 || amount <= 0 || strings.TrimSpace(reason) == "" {
		return model.CreditState{}, ErrValidation
	}
	if s.states == nil || s.log == nil {
		return model.CreditState{}, ErrDependenciesNil
	}

	var rec pgrepo.CreditStateRecord
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		added, err := s.states.AddTx(txCtx, tx, userID, amount)
		if err != nil {
			return err
		}
		rec = added
		return s.log.AppendTx(txCtx, tx, userID, amount, reason, jobID)
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrCreditStateNotFound) {
			return model.CreditState{}, ErrStateNotFound
		}
		return model.CreditState{}, fmt.Errorf("add credits: %w", err)
	}

	s.fillCache(ctx, rec)
	return stateFromRecord(rec), nil
}

// ResetCycle replaces the balance with the plan allowance: unused
// credits are discarded, never carried over. A nil newPlan keeps the
// current tier; passing one performs the subscribe/downgrade reset.
func (s *Service) ResetCycle(ctx context.Context, userID int64, newPlan *enums.PlanKey) (model.CreditState, error) {
	if userID <= 0 {
		return model.CreditState{}, ErrValidation
	}
	if s.states == nil || s.log == nil {
		return model.CreditState{}, ErrDependenciesNil
	}

	prevRemaining := 0
	planKey := enums.PlanKey("")
	var anchor time.Time
	if current, err := s.states.GetState(ctx, userID); err == nil {
		prevRemaining = current.CreditsRemaining
		planKey = enums.PlanKey(current.PlanKey)
		anchor = current.CreditsResetDate
	} else if !errors.Is(err, pgrepo.ErrCreditStateNotFound) {
		return model.CreditState{}, fmt.Errorf("read credit state before reset: %w", err)
	}

	if newPlan != nil {
		planKey = *newPlan
	}

	plan, err := rules.GetPlan(planKey)
	if err != nil {
		return model.CreditState{}, err
	}

	// A sweep reset stays anchored on the stored boundary even when the
	// sweep runs late; a plan change starts a fresh cycle at now.
	resetAt := rules.NextCycleResetAt(s.now())
	if newPlan == nil {
		resetAt = rules.NextCycleResetFrom(anchor, s.now())
	}

	var rec pgrepo.CreditStateRecord
	err = s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		reset, err := s.states.ResetCycleTx(txCtx, tx, userID, string(plan.Key), plan.CreditsPerCycle, resetAt)
		if err != nil {
			return err
		}
		rec = reset
		return s.log.AppendTx(txCtx, tx, userID, plan.CreditsPerCycle-prevRemaining, ReasonCycleReset, nil)
	})
	if err != nil {
		return model.CreditState{}, fmt.Errorf("reset credit cycle: %w", err)
	}

	s.fillCache(ctx, rec)
	return stateFromRecord(rec), nil
}

// ExecuteWithCredits runs the check-then-execute-then-deduct protocol.
// The executor runs before the charge, so a failed or cancelled action
// never touches the balance; the deduction lands only after success.
func (s *Service) ExecuteWithCredits(ctx context.Context, userID int64, action enums.ActionKind, run func(context.Context) (string, error)) (ExecResult, error) {
	if userID <= 0 {
		return ExecResult{}, ErrValidation
	}
	if run == nil {
		return ExecResult{}, ErrExecutorNil
	}

	check, err := s.CheckCredits(ctx, userID, action)
	if err != nil {
		return ExecResult{}, err
	}
	if !check.Allowed {
		return ExecResult{}, InsufficientCreditsError{
			Action:   action,
			Required: check.Cost,
			Current:  check.Current,
		}
	}

	jobID, err := run(ctx)
	if err != nil {
		return ExecResult{}, err
	}

	if check.Cost == 0 {
		return ExecResult{JobID: jobID, Cost: 0, Remaining: check.Current}, nil
	}

	var jobRef *string
	if strings.TrimSpace(jobID) != "" {
		jobRef = &jobID
	}

	state, err := s.Consume(ctx, userID, check.Cost, string(action), jobRef)
	if err != nil {
		return ExecResult{}, err
	}

	return ExecResult{
		JobID:     jobID,
		Cost:      check.Cost,
		Remaining: state.CreditsRemaining,
	}, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.CreditLogEntry, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.log == nil {
		return nil, ErrDependenciesNil
	}

	records, err := s.log.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("read credit history: %w", err)
	}

	out := make([]model.CreditLogEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, model.CreditLogEntry{
			ID:        rec.ID,
			UserID:    rec.UserID,
			Delta:     rec.Delta,
			Reason:    rec.Reason,
			JobID:     rec.JobID,
			CreatedAt: rec.CreatedAt,
		})
	}

	return out, nil
}

// reconcileInsufficient handles the authority disagreeing with a stale
// cached check: drop the cache entry, re-read, and surface the error
// with fresh numbers.
func (s *Service) reconcileInsufficient(ctx context.Context, userID int64, required int, action enums.ActionKind) error {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, userID)
	}

	current := 0
	if rec, err := s.states.GetState(ctx, userID); err == nil {
		current = rec.CreditsRemaining
		s.fillCache(ctx, rec)
	}

	return InsufficientCreditsError{
		Action:   action,
		Required: required,
		Current:  current,
	}
}

func (s *Service) fillCache(ctx context.Context, rec pgrepo.CreditStateRecord) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, rec.UserID, redrepo.BalanceSnapshot{
		PlanKey:          rec.PlanKey,
		CreditsRemaining: rec.CreditsRemaining,
		CreditsResetDate: rec.CreditsResetDate,
	})
}

func stateFromRecord(rec pgrepo.CreditStateRecord) model.CreditState {
	return model.CreditState{
		UserID:           rec.UserID,
		PlanKey:          enums.PlanKey(rec.PlanKey),
		CreditsRemaining: rec.CreditsRemaining,
		CreditsResetDate: rec.CreditsResetDate,
		UpdatedAt:        rec.UpdatedAt,
	}
}
