package scans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/rules"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	"github.com/gearscout/backend/internal/services/credits"
	"github.com/gearscout/backend/internal/services/entitlements"
	"github.com/gearscout/backend/internal/services/rate"
)

type jobStoreStub struct {
	jobs      map[string]pgrepo.ScanJobRecord
	insertErr error
}

func newJobStoreStub() *jobStoreStub {
	return &jobStoreStub{jobs: make(map[string]pgrepo.ScanJobRecord)}
}

func (s *jobStoreStub) InsertTx(_ context.Context, _ pgx.Tx, rec pgrepo.ScanJobRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	rec.Status = "queued"
	rec.CreatedAt = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s.jobs[rec.ID] = rec
	return nil
}

func (s *jobStoreStub) GetByID(_ context.Context, userID int64, jobID string) (pgrepo.ScanJobRecord, error) {
	rec, ok := s.jobs[jobID]
	if !ok || rec.UserID != userID {
		return pgrepo.ScanJobRecord{}, errors.New("scan job not found")
	}
	return rec, nil
}

type ledgerStub struct {
	balance int
}

func (l *ledgerStub) ExecuteWithCredits(ctx context.Context, _ int64, action enums.ActionKind, run func(context.Context) (string, error)) (credits.ExecResult, error) {
	cost, err := rules.CostOf(action)
	if err != nil {
		return credits.ExecResult{}, err
	}
	if l.balance < cost {
		return credits.ExecResult{}, credits.InsufficientCreditsError{Action: action, Required: cost, Current: l.balance}
	}
	jobID, err := run(ctx)
	if err != nil {
		return credits.ExecResult{}, err
	}
	l.balance -= cost
	return credits.ExecResult{JobID: jobID, Cost: cost, Remaining: l.balance}, nil
}

type gateStub struct {
	planKey enums.PlanKey
}

func (g *gateStub) CanScan(_ context.Context, userID int64, kind enums.ActionKind) (entitlements.Snapshot, error) {
	plan, err := rules.GetPlan(g.planKey)
	if err != nil {
		return entitlements.Snapshot{}, err
	}
	if kind == enums.ActionScanDeep && !plan.Features.DeepScan {
		return entitlements.Snapshot{}, entitlements.FeatureLockedError{Feature: "deep_scan", PlanKey: plan.Key}
	}
	return entitlements.Snapshot{UserID: userID, Plan: plan}, nil
}

type throttleStub struct {
	calls   int
	blocked bool
}

func (t *throttleStub) Allow(context.Context, string, int64) error {
	t.calls++
	if t.blocked {
		return rate.TooFastError{RetryAfter: 30 * time.Second}
	}
	return nil
}

func newTestService(planKey enums.PlanKey, balance int) (*Service, *jobStoreStub, *ledgerStub, *throttleStub) {
	jobs := newJobStoreStub()
	ledger := &ledgerStub{balance: balance}
	throttle := &throttleStub{}
	svc := NewService(Dependencies{
		Jobs:     jobs,
		Ledger:   ledger,
		Gate:     &gateStub{planKey: planKey},
		Throttle: throttle,
	})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	svc.newJobID = func() string { return "job-fixed" }
	return svc, jobs, ledger, throttle
}

func TestEnqueueShallowScan(t *testing.T) {
	svc, jobs, ledger, throttle := newTestService(enums.PlanStarter, 10)

	result, err := svc.Enqueue(context.Background(), 7, enums.ActionScanShallow, "rtx 4070 ti")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if result.Job.ID != "job-fixed" || result.Job.Status != "queued" {
		t.Fatalf("unexpected job: %+v", result.Job)
	}
	if result.Cost != 3 || result.Remaining != 7 {
		t.Fatalf("unexpected charge: cost=%d remaining=%d", result.Cost, result.Remaining)
	}
	if ledger.balance != 7 {
		t.Fatalf("unexpected ledger balance: %d", ledger.balance)
	}
	if len(jobs.jobs) != 1 {
		t.Fatalf("one stored job expected, got %d", len(jobs.jobs))
	}
	if throttle.calls != 1 {
		t.Fatalf("throttle must run once, got %d", throttle.calls)
	}
}

func TestEnqueueDeepScanLockedOnStarter(t *testing.T) {
	svc, jobs, ledger, _ := newTestService(enums.PlanStarter, 100)

	_, err := svc.Enqueue(context.Background(), 7, enums.ActionScanDeep, "rtx 4070 ti")
	if _, ok := entitlements.IsFeatureLocked(err); !ok {
		t.Fatalf("expected FeatureLockedError, got %v", err)
	}

	if len(jobs.jobs) != 0 {
		t.Fatalf("locked scan must not enqueue a job")
	}
	if ledger.balance != 100 {
		t.Fatalf("locked scan must not charge: %d", ledger.balance)
	}
}

func TestEnqueueInsufficientCredits(t *testing.T) {
	svc, jobs, _, _ := newTestService(enums.PlanPro, 2)

	_, err := svc.Enqueue(context.Background(), 7, enums.ActionScanDeep, "rtx 4070 ti")
	ic, ok := credits.IsInsufficientCredits(err)
	if !ok {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if ic.Required != 8 || ic.Current != 2 {
		t.Fatalf("unexpected payload: %+v", ic)
	}
	if len(jobs.jobs) != 0 {
		t.Fatalf("unpaid scan must not enqueue a job")
	}
}

func TestEnqueueThrottled(t *testing.T) {
	svc, jobs, ledger, throttle := newTestService(enums.PlanPro, 100)
	throttle.blocked = true

	_, err := svc.Enqueue(context.Background(), 7, enums.ActionScanShallow, "rtx 4070 ti")
	if _, ok := rate.IsTooFast(err); !ok {
		t.Fatalf("expected TooFastError, got %v", err)
	}

	if len(jobs.jobs) != 0 || ledger.balance != 100 {
		t.Fatalf("throttled scan must not enqueue or charge")
	}
}

func TestEnqueueFailedInsertNeverCharges(t *testing.T) {
	svc, jobs, ledger, _ := newTestService(enums.PlanPro, 100)
	jobs.insertErr = errors.New("connection reset")

	if _, err := svc.Enqueue(context.Background(), 7, enums.ActionScanShallow, "rtx 4070 ti"); err == nil {
		t.Fatalf("failed insert must propagate")
	}
	if ledger.balance != 100 {
		t.Fatalf("failed insert must not charge: %d", ledger.balance)
	}
}

func TestEnqueueRejectsNonScanAction(t *testing.T) {
	svc, _, _, _ := newTestService(enums.PlanPro, 100)

	if _, err := svc.Enqueue(context.Background(), 7, enums.ActionExportCSV, "rtx 4070 ti"); !errors.Is(err, ErrValidation) {
		t.Fatalf("non-scan action must fail validation, got %v", err)
	}
	if _, err := svc.Enqueue(context.Background(), 7, enums.ActionScanShallow, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty query must fail validation, got %v", err)
	}
}
