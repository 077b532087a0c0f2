package alerts

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
)

type storeStub struct {
	nextID int64
	alerts map[int64]pgrepo.AlertRecord
}

func newStoreStub() *storeStub {
	return &storeStub{nextID: 1, alerts: make(map[int64]pgrepo.AlertRecord)}
}

func (s *storeStub) Create(_ context.Context, rec pgrepo.AlertRecord) (pgrepo.AlertRecord, error) {
	rec.ID = s.nextID
	rec.CreatedAt = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s.nextID++
	s.alerts[rec.ID] = rec
	return rec, nil
}

func (s *storeStub) GetByID(_ context.Context, userID, alertID int64) (pgrepo.AlertRecord, error) {
	rec, ok := s.alerts[alertID]
	if !ok || rec.UserID != userID {
		return pgrepo.AlertRecord{}, pgrepo.ErrAlertNotFound
	}
	return rec, nil
}

func (s *storeStub) ListByUser(_ context.Context, userID int64) ([]pgrepo.AlertRecord, error) {
	var out []pgrepo.AlertRecord
	for _, rec := range s.alerts {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *storeStub) CountActive(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, rec := range s.alerts {
		if rec.UserID == userID && rec.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *storeStub) ActivateWithLimitTx(ctx context.Context, _ pgx.Tx, userID, alertID int64, maxActive int) error {
	rec, ok := s.alerts[alertID]
	if !ok || rec.UserID != userID {
		return pgrepo.ErrAlertNotFound
	}
	active, _ := s.CountActive(ctx, userID)
	if rec.IsActive {
		active--
	}
	if active >= maxActive {
		return pgrepo.ErrAlertCapReached
	}
	rec.IsActive = true
	s.alerts[alertID] = rec
	return nil
}

func (s *storeStub) Deactivate(_ context.Context, userID, alertID int64) error {
	rec, ok := s.alerts[alertID]
	if !ok || rec.UserID != userID {
		return pgrepo.ErrAlertNotFound
	}
	rec.IsActive = false
	s.alerts[alertID] = rec
	return nil
}

func (s *storeStub) Update(_ context.Context, rec pgrepo.AlertRecord) error {
	existing, ok := s.alerts[rec.ID]
	if !ok || existing.UserID != rec.UserID {
		return pgrepo.ErrAlertNotFound
	}
	existing.AlertType = rec.AlertType
	existing.Threshold = rec.Threshold
	existing.Region = rec.Region
	existing.Platform = rec.Platform
	s.alerts[rec.ID] = existing
	return nil
}

func (s *storeStub) Delete(_ context.Context, userID, alertID int64) error {
	rec, ok := s.alerts[alertID]
	if !ok || rec.UserID != userID {
		return pgrepo.ErrAlertNotFound
	}
	delete(s.alerts, alertID)
	return nil
}

type ledgerStub struct {
	balance    int
	charges    int
	lastAction enums.ActionKind
}

func (l *ledgerStub) ExecuteWithCredits(ctx context.Context, _ int64, action enums.ActionKind, run func(context.Context) (string, error)) (credits.ExecResult, error) {
	l.lastAction = action
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
	l.charges++
	return credits.ExecResult{JobID: jobID, Cost: cost, Remaining: l.balance}, nil
}

type resolverStub struct {
	store   *storeStub
	planKey enums.PlanKey
}

func (r *resolverStub) CanActivateAlert(ctx context.Context, userID int64) (bool, entitlements.Snapshot, error) {
	plan, err := rules.GetPlan(r.planKey)
	if err != nil {
		return false, entitlements.Snapshot{}, err
	}
	active, _ := r.store.CountActive(ctx, userID)
	snapshot := entitlements.Snapshot{UserID: userID, Plan: plan, ActiveAlerts: active}
	return active < plan.MaxActiveAlerts, snapshot, nil
}

func newTestService(planKey enums.PlanKey, balance int) (*Service, *storeStub, *ledgerStub) {
	store := newStoreStub()
	ledger := &ledgerStub{balance: balance}
	svc := NewService(Dependencies{
		Store:        store,
		Ledger:       ledger,
		Entitlements: &resolverStub{store: store, planKey: planKey},
	})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc, store, ledger
}

func priceBelowInput(targetID string, activate bool) CreateInput {
	threshold := 450.0
	return CreateInput{
		TargetType: enums.AlertTargetModel,
		TargetID:   targetID,
		AlertType:  enums.AlertPriceBelow,
		Threshold:  &threshold,
		Activate:   activate,
	}
}

func TestCreateAndActivateChargesOnce(t *testing.T) {
	svc, _, ledger := newTestService(enums.PlanStarter, 10)

	result, err := svc.Create(context.Background(), 7, priceBelowInput("gpu-4070", true))
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	if !result.Alert.IsActive || result.ActivationDeferred {
		t.Fatalf("activation should have gone through: %+v", result)
	}
	if ledger.balance != 8 || ledger.charges != 1 {
		t.Fatalf("one activation charge of 2 expected: balance=%d charges=%d", ledger.balance, ledger.charges)
	}
	if ledger.lastAction != enums.ActionAlertActivation {
		t.Fatalf("activation must be metered as %q, got %q", enums.ActionAlertActivation, ledger.lastAction)
	}
}

func TestCreateBeyondCapSavesInactive(t *testing.T) {
	svc, store, ledger := newTestService(enums.PlanStarter, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, 7, priceBelowInput("gpu", true)); err != nil {
			t.Fatalf("create alert %d: %v", i, err)
		}
	}
	balanceBefore := ledger.balance

	result, err := svc.Create(ctx, 7, priceBelowInput("gpu-extra", true))
	if err != nil {
		t.Fatalf("create over cap: %v", err)
	}

	if result.Alert.IsActive {
		t.Fatalf("fourth alert on starter must stay inactive")
	}
	if !result.ActivationDeferred || result.DeferredReason != DeferredCapReached {
		t.Fatalf("deferred cap flag expected: %+v", result)
	}
	if ledger.balance != balanceBefore {
		t.Fatalf("refused activation must not charge: got %d want %d", ledger.balance, balanceBefore)
	}

	if active, _ := store.CountActive(ctx, 7); active != 3 {
		t.Fatalf("unexpected active count: got %d want 3", active)
	}
}

func TestSetActiveCapErrorCarriesNumbers(t *testing.T) {
	svc, _, _ := newTestService(enums.PlanStarter, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, 7, priceBelowInput("gpu", true)); err != nil {
			t.Fatalf("create alert %d: %v", i, err)
		}
	}
	extra, err := svc.Create(ctx, 7, priceBelowInput("gpu-extra", false))
	if err != nil {
		t.Fatalf("create inactive alert: %v", err)
	}

	err = svc.SetActive(ctx, 7, extra.Alert.ID, true)
	ac, ok := IsAlertCap(err)
	if !ok {
		t.Fatalf("expected AlertCapError, got %v", err)
	}
	if ac.Current != 3 || ac.Max != 3 {
		t.Fatalf("unexpected cap payload: %+v", ac)
	}
}

func TestDeactivateFreesSlotForAnother(t *testing.T) {
	svc, _, ledger := newTestService(enums.PlanStarter, 100)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		result, err := svc.Create(ctx, 7, priceBelowInput("gpu", true))
		if err != nil {
			t.Fatalf("create alert %d: %v", i, err)
		}
		ids = append(ids, result.Alert.ID)
	}
	extra, err := svc.Create(ctx, 7, priceBelowInput("gpu-extra", false))
	if err != nil {
		t.Fatalf("create inactive alert: %v", err)
	}

	balanceBefore := ledger.balance
	if err := svc.SetActive(ctx, 7, ids[0], false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if ledger.balance != balanceBefore {
		t.Fatalf("deactivation must be free: got %d want %d", ledger.balance, balanceBefore)
	}

	if err := svc.SetActive(ctx, 7, extra.Alert.ID, true); err != nil {
		t.Fatalf("activation into freed slot: %v", err)
	}
}

func TestSetActiveIdempotentOnActiveAlert(t *testing.T) {
	svc, _, ledger := newTestService(enums.PlanPro, 100)
	ctx := context.Background()

	result, err := svc.Create(ctx, 7, priceBelowInput("gpu", true))
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}
	balanceBefore := ledger.balance

	if err := svc.SetActive(ctx, 7, result.Alert.ID, true); err != nil {
		t.Fatalf("re-activate: %v", err)
	}
	if ledger.balance != balanceBefore {
		t.Fatalf("re-activating an active alert must not charge again")
	}
}

func TestSetActiveInsufficientCredits(t *testing.T) {
	svc, store, _ := newTestService(enums.PlanStarter, 1)
	ctx := context.Background()

	result, err := svc.Create(ctx, 7, priceBelowInput("gpu", true))
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	if result.Alert.IsActive {
		t.Fatalf("activation without credits must not happen")
	}
	if !result.ActivationDeferred || result.DeferredReason != DeferredInsufficientCredits {
		t.Fatalf("deferred credits flag expected: %+v", result)
	}

	rec := store.alerts[result.Alert.ID]
	if rec.IsActive {
		t.Fatalf("stored alert must stay inactive")
	}
}

func TestValidateCreateRejectsMissingThreshold(t *testing.T) {
	svc, _, _ := newTestService(enums.PlanStarter, 100)

	in := priceBelowInput("gpu", false)
	in.Threshold = nil
	if _, err := svc.Create(context.Background(), 7, in); !errors.Is(err, ErrValidation) {
		t.Fatalf("price_below without threshold must fail validation, got %v", err)
	}

	in = priceBelowInput("gpu", false)
	in.AlertType = enums.AlertType("price_explodes")
	if _, err := svc.Create(context.Background(), 7, in); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown alert type must fail validation, got %v", err)
	}
}

func TestDeleteRemovesAlert(t *testing.T) {
	svc, _, _ := newTestService(enums.PlanPro, 100)
	ctx := context.Background()

	result, err := svc.Create(ctx, 7, priceBelowInput("gpu", false))
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	if err := svc.Delete(ctx, 7, result.Alert.ID); err != nil {
		t.Fatalf("delete alert: %v", err)
	}
	if _, err := svc.Get(ctx, 7, result.Alert.ID); !errors.Is(err, ErrAlertNotFound) {
		t.Fatalf("expected ErrAlertNotFound after delete, got %v", err)
	}
}
