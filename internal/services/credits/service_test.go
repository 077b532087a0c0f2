package credits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/rules"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	redrepo "github.com/gearscout/backend/internal/repo/redis"
)

type stateStoreStub struct {
	rec     pgrepo.CreditStateRecord
	missing bool
}

func (s *stateStoreStub) GetState(context.Context, int64) (pgrepo.CreditStateRecord, error) {
	if s.missing {
		return pgrepo.CreditStateRecord{}, pgrepo.ErrCreditStateNotFound
	}
	return s.rec, nil
}

func (s *stateStoreStub) ConsumeTx(_ context.Context, _ pgx.Tx, _ int64, amount int) (pgrepo.CreditStateRecord, error) {
	if s.missing || s.rec.CreditsRemaining < amount {
		return pgrepo.CreditStateRecord{}, pgrepo.ErrInsufficientCredits
	}
	s.rec.CreditsRemaining -= amount
	return s.rec, nil
}

func (s *stateStoreStub) AddTx(_ context.Context, _ pgx.Tx, _ int64, amount int) (pgrepo.CreditStateRecord, error) {
	if s.missing {
		return pgrepo.CreditStateRecord{}, pgrepo.ErrCreditStateNotFound
	}
	s.rec.CreditsRemaining += amount
	return s.rec, nil
}

func (s *stateStoreStub) ResetCycleTx(_ context.Context, _ pgx.Tx, userID int64, planKey string, allowance int, resetAt time.Time) (pgrepo.CreditStateRecord, error) {
	s.missing = false
	s.rec.UserID = userID
	s.rec.PlanKey = planKey
	s.rec.CreditsRemaining = allowance
	s.rec.CreditsResetDate = resetAt
	return s.rec, nil
}

type logEntry struct {
	delta  int
	reason string
	jobID  *string
}

type logStoreStub struct {
	entries []logEntry
}

func (s *logStoreStub) AppendTx(_ context.Context, _ pgx.Tx, _ int64, delta int, reason string, jobID *string) error {
	s.entries = append(s.entries, logEntry{delta: delta, reason: reason, jobID: jobID})
	return nil
}

func (s *logStoreStub) ListRecent(context.Context, int64, int) ([]pgrepo.CreditLogRecord, error) {
	out := make([]pgrepo.CreditLogRecord, 0, len(s.entries))
	for i, e := range s.entries {
		out = append(out, pgrepo.CreditLogRecord{ID: int64(i + 1), Delta: e.delta, Reason: e.reason, JobID: e.jobID})
	}
	return out, nil
}

type cacheStub struct {
	data          map[int64]redrepo.BalanceSnapshot
	invalidations int
}

func newCacheStub() *cacheStub {
	return &cacheStub{data: make(map[int64]redrepo.BalanceSnapshot)}
}

func (s *cacheStub) Get(_ context.Context, userID int64) (redrepo.BalanceSnapshot, bool, error) {
	snapshot, ok := s.data[userID]
	return snapshot, ok, nil
}

func (s *cacheStub) Set(_ context.Context, userID int64, snapshot redrepo.BalanceSnapshot) error {
	s.data[userID] = snapshot
	return nil
}

func (s *cacheStub) Invalidate(_ context.Context, userID int64) error {
	s.invalidations++
	delete(s.data, userID)
	return nil
}

func newTestService(states *stateStoreStub, log *logStoreStub, cache BalanceCache) *Service {
	svc := NewService(Dependencies{States: states, Log: log, Cache: cache})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	svc.now = func() time.Time {
		return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func starterState(balance int) pgrepo.CreditStateRecord {
	return pgrepo.CreditStateRecord{
		UserID:           42,
		PlanKey:          string(enums.PlanStarter),
		CreditsRemaining: balance,
		CreditsResetDate: time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestCheckCreditsIsPureRead(t *testing.T) {
	states := &stateStoreStub{rec: starterState(10)}
	svc := newTestService(states, &logStoreStub{}, nil)

	for i := 0; i < 5; i++ {
		check, err := svc.CheckCredits(context.Background(), 42, enums.ActionScanShallow)
		if err != nil {
			t.Fatalf("check credits: %v", err)
		}
		if check.Current != 10 {
			t.Fatalf("unexpected current on read %d: got %d want 10", i, check.Current)
		}
	}

	if states.rec.CreditsRemaining != 10 {
		t.Fatalf("checkCredits mutated balance: %d", states.rec.CreditsRemaining)
	}
}

func TestCheckCreditsAllowedWithinBalance(t *testing.T) {
	svc := newTestService(&stateStoreStub{rec: starterState(10)}, &logStoreStub{}, nil)

	check, err := svc.CheckCredits(context.Background(), 42, enums.ActionScanShallow)
	if err != nil {
		t.Fatalf("check credits: %v", err)
	}
	if !check.Allowed || check.Cost != 3 || check.Current != 10 || check.Deficit != 0 {
		t.Fatalf("unexpected check result: %+v", check)
	}
}

func TestCheckCreditsDeficitReported(t *testing.T) {
	svc := newTestService(&stateStoreStub{rec: starterState(2)}, &logStoreStub{}, nil)

	check, err := svc.CheckCredits(context.Background(), 42, enums.ActionScanDeep)
	if err != nil {
		t.Fatalf("check credits: %v", err)
	}
	if check.Allowed || check.Cost != 8 || check.Current != 2 || check.Deficit != 6 {
		t.Fatalf("unexpected check result: %+v", check)
	}
}

func TestCheckCreditsUnknownAction(t *testing.T) {
	svc := newTestService(&stateStoreStub{rec: starterState(100)}, &logStoreStub{}, nil)

	if _, err := svc.CheckCredits(context.Background(), 42, enums.ActionKind("scan_quantum")); !errors.Is(err, rules.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestExecuteWithCreditsChargesAfterSuccess(t *testing.T) {
	states := &stateStoreStub{rec: starterState(10)}
	log := &logStoreStub{}
	svc := newTestService(states, log, nil)

	result, err := svc.ExecuteWithCredits(context.Background(), 42, enums.ActionScanShallow, func(context.Context) (string, error) {
		return "job-1", nil
	})
	if err != nil {
		t.Fatalf("execute with credits: %v", err)
	}

	if result.Remaining != 7 {
		t.Fatalf("unexpected remaining: got %d want 7", result.Remaining)
	}
	if result.Cost != 3 || result.JobID != "job-1" {
		t.Fatalf("unexpected exec result: %+v", result)
	}
	if len(log.entries) != 1 || log.entries[0].delta != -3 || log.entries[0].reason != "scan_shallow" {
		t.Fatalf("unexpected log entries: %+v", log.entries)
	}
	if log.entries[0].jobID == nil || *log.entries[0].jobID != "job-1" {
		t.Fatalf("log entry must reference the job")
	}
}

func TestExecuteWithCreditsBlocksOnDeficit(t *testing.T) {
	states := &stateStoreStub{rec: starterState(2)}
	log := &logStoreStub{}
	svc := newTestService(states, log, nil)

	executorCalls := 0
	_, err := svc.ExecuteWithCredits(context.Background(), 42, enums.ActionScanDeep, func(context.Context) (string, error) {
		executorCalls++
		return "job-1", nil
	})

	ic, ok := IsInsufficientCredits(err)
	if !ok {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if ic.Required != 8 || ic.Current != 2 || ic.Deficit() != 6 {
		t.Fatalf("unexpected payload: %+v", ic)
	}
	if executorCalls != 0 {
		t.Fatalf("executor must not run without credits")
	}
	if states.rec.CreditsRemaining != 2 {
		t.Fatalf("balance changed on blocked execute: %d", states.rec.CreditsRemaining)
	}
	if len(log.entries) != 0 {
		t.Fatalf("no log entry expected, got %+v", log.entries)
	}
}

func TestExecuteWithCreditsFailedExecutorNeverCharges(t *testing.T) {
	states := &stateStoreStub{rec: starterState(50)}
	log := &logStoreStub{}
	svc := newTestService(states, log, nil)

	executorErr := errors.New("scrape backend unavailable")
	_, err := svc.ExecuteWithCredits(context.Background(), 42, enums.ActionScanDeep, func(context.Context) (string, error) {
		return "", executorErr
	})
	if !errors.Is(err, executorErr) {
		t.Fatalf("executor error must propagate verbatim, got %v", err)
	}

	if states.rec.CreditsRemaining != 50 {
		t.Fatalf("failed executor must not charge: balance %d", states.rec.CreditsRemaining)
	}
	if len(log.entries) != 0 {
		t.Fatalf("no deduction log expected, got %+v", log.entries)
	}
}

func TestExecuteWithCreditsCancelledExecutorNeverCharges(t *testing.T) {
	states := &stateStoreStub{rec: starterState(50)}
	svc := newTestService(states, &logStoreStub{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.ExecuteWithCredits(ctx, 42, enums.ActionScanShallow, func(runCtx context.Context) (string, error) {
		cancel()
		return "", runCtx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if states.rec.CreditsRemaining != 50 {
		t.Fatalf("cancelled executor must not charge: balance %d", states.rec.CreditsRemaining)
	}
}

func TestExecuteWithCreditsReconcilesStaleCache(t *testing.T) {
	// The cache says 10 credits but the authoritative store only has 1:
	// a concurrent consumer drained the balance after the cached check.
	states := &stateStoreStub{rec: starterState(1)}
	cache := newCacheStub()
	cache.data[42] = redrepo.BalanceSnapshot{
		PlanKey:          string(enums.PlanStarter),
		CreditsRemaining: 10,
		CreditsResetDate: states.rec.CreditsResetDate,
	}
	svc := newTestService(states, &logStoreStub{}, cache)

	executorCalls := 0
	_, err := svc.ExecuteWithCredits(context.Background(), 42, enums.ActionScanShallow, func(context.Context) (string, error) {
		executorCalls++
		return "job-1", nil
	})

	ic, ok := IsInsufficientCredits(err)
	if !ok {
		t.Fatalf("expected InsufficientCreditsError after reconcile, got %v", err)
	}
	if executorCalls != 1 {
		t.Fatalf("executor should have run against the stale check, calls=%d", executorCalls)
	}
	if ic.Current != 1 {
		t.Fatalf("payload must carry the re-read balance: got %d want 1", ic.Current)
	}
	if cache.invalidations == 0 {
		t.Fatalf("stale cache entry must be invalidated")
	}
	if cached, ok := cache.data[42]; ok && cached.CreditsRemaining != 1 {
		t.Fatalf("cache must hold the fresh balance, got %d", cached.CreditsRemaining)
	}
	if states.rec.CreditsRemaining != 1 {
		t.Fatalf("authoritative balance must be untouched: %d", states.rec.CreditsRemaining)
	}
}

func TestConsumeRejectsOverdraft(t *testing.T) {
	states := &stateStoreStub{rec: starterState(5)}
	svc := newTestService(states, &logStoreStub{}, nil)

	if _, err := svc.Consume(context.Background(), 42, 6, "scan_deep", nil); err == nil {
		t.Fatalf("overdraft consume must fail")
	}
	if states.rec.CreditsRemaining != 5 {
		t.Fatalf("balance changed on rejected consume: %d", states.rec.CreditsRemaining)
	}

	if _, err := svc.Consume(context.Background(), 42, 5, "scan_deep", nil); err != nil {
		t.Fatalf("exact-balance consume must succeed: %v", err)
	}
	if states.rec.CreditsRemaining != 0 {
		t.Fatalf("unexpected balance after drain: %d", states.rec.CreditsRemaining)
	}
}

func TestBalanceNeverNegativeAcrossSequence(t *testing.T) {
	states := &stateStoreStub{rec: starterState(7)}
	svc := newTestService(states, &logStoreStub{}, nil)
	ctx := context.Background()

	ops := []func() error{
		func() error { _, err := svc.Consume(ctx, 42, 3, "scan_shallow", nil); return err },
		func() error { _, err := svc.Consume(ctx, 42, 8, "scan_deep", nil); return err },
		func() error { _, err := svc.Add(ctx, 42, 2, ReasonCommunityReward, nil); return err },
		func() error { _, err := svc.Consume(ctx, 42, 6, "scan_deep", nil); return err },
		func() error { _, err := svc.ResetCycle(ctx, 42, nil); return err },
		func() error { _, err := svc.Consume(ctx, 42, 120, "export_csv", nil); return err },
	}

	for i, op := range ops {
		_ = op()
		if states.rec.CreditsRemaining < 0 {
			t.Fatalf("balance went negative after op %d: %d", i, states.rec.CreditsRemaining)
		}
	}
}

func TestAddTopupCanExceedCycleAllowance(t *testing.T) {
	states := &stateStoreStub{rec: starterState(115)}
	log := &logStoreStub{}
	svc := newTestService(states, log, nil)

	state, err := svc.Add(context.Background(), 42, 50, ReasonTopup, nil)
	if err != nil {
		t.Fatalf("add credits: %v", err)
	}
	if state.CreditsRemaining != 165 {
		t.Fatalf("unexpected balance after topup: got %d want 165", state.CreditsRemaining)
	}
	if len(log.entries) != 1 || log.entries[0].delta != 50 || log.entries[0].reason != ReasonTopup {
		t.Fatalf("unexpected topup log: %+v", log.entries)
	}
}

func TestResetCycleNonCumulative(t *testing.T) {
	states := &stateStoreStub{rec: starterState(90)}
	svc := newTestService(states, &logStoreStub{}, nil)

	state, err := svc.ResetCycle(context.Background(), 42, nil)
	if err != nil {
		t.Fatalf("reset cycle: %v", err)
	}
	if state.CreditsRemaining != 120 {
		t.Fatalf("reset must set balance to allowance: got %d want 120", state.CreditsRemaining)
	}

	// A balance above the ceiling is still replaced, never summed.
	states.rec.CreditsRemaining = 700
	state, err = svc.ResetCycle(context.Background(), 42, nil)
	if err != nil {
		t.Fatalf("reset cycle: %v", err)
	}
	if state.CreditsRemaining != 120 {
		t.Fatalf("reset must discard surplus: got %d want 120", state.CreditsRemaining)
	}
}

func TestResetCycleWithPlanChange(t *testing.T) {
	states := &stateStoreStub{rec: starterState(0)}
	log := &logStoreStub{}
	svc := newTestService(states, log, nil)

	pro := enums.PlanPro
	state, err := svc.ResetCycle(context.Background(), 42, &pro)
	if err != nil {
		t.Fatalf("reset cycle with plan change: %v", err)
	}

	if state.CreditsRemaining != 500 {
		t.Fatalf("upgrade reset must use the new allowance: got %d want 500", state.CreditsRemaining)
	}
	if state.PlanKey != enums.PlanPro {
		t.Fatalf("unexpected plan after reset: %s", state.PlanKey)
	}
	if len(log.entries) != 1 || log.entries[0].reason != ReasonCycleReset {
		t.Fatalf("cycle reset must append a log entry: %+v", log.entries)
	}
	wantReset := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if !state.CreditsResetDate.Equal(wantReset) {
		t.Fatalf("unexpected next reset date: got %s want %s", state.CreditsResetDate, wantReset)
	}
}

func TestResetCycleLateSweepKeepsAnchorDay(t *testing.T) {
	// The boundary passed on the 28th but the sweep runs on April 1st.
	rec := starterState(30)
	rec.CreditsResetDate = time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC)
	states := &stateStoreStub{rec: rec}
	svc := newTestService(states, &logStoreStub{}, nil)

	state, err := svc.ResetCycle(context.Background(), 42, nil)
	if err != nil {
		t.Fatalf("reset cycle: %v", err)
	}

	wantReset := time.Date(2026, 4, 28, 0, 0, 0, 0, time.UTC)
	if !state.CreditsResetDate.Equal(wantReset) {
		t.Fatalf("late sweep must keep the anchor day: got %s want %s", state.CreditsResetDate, wantReset)
	}
}

func TestResetCycleUnknownPlan(t *testing.T) {
	states := &stateStoreStub{missing: true}
	svc := newTestService(states, &logStoreStub{}, nil)

	bogus := enums.PlanKey("platinum")
	if _, err := svc.ResetCycle(context.Background(), 42, &bogus); !errors.Is(err, rules.ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}
