package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	"github.com/gearscout/backend/internal/domain/rules"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDependenciesNil = errors.New("entitlement dependencies are not configured")
)

// FeatureLockedError means the tier does not include the feature at
// all; buying credits does not unlock it, only a plan change does.
type FeatureLockedError struct {
	Feature string
	PlanKey enums.PlanKey
}

func (e FeatureLockedError) Error() string {
	return fmt.Sprintf("feature %q is not included in plan %q", e.Feature, e.PlanKey)
}

func IsFeatureLocked(err error) (*FeatureLockedError, bool) {
	var fl FeatureLockedError
	if errors.As(err, &fl) {
		return &fl, true
	}
	return nil, false
}

type CreditReader interface {
	GetState(ctx context.Context, userID int64) (model.CreditState, error)
}

type AlertCounter interface {
	CountActive(ctx context.Context, userID int64) (int, error)
}

// Snapshot is the full entitlement view for one user at one instant.
type Snapshot struct {
	UserID           int64
	Plan             rules.Plan
	CreditsRemaining int
	CreditsResetDate time.Time
	ActiveAlerts     int
	Outlook          rules.CycleOutlook
}

func (s Snapshot) AlertSlotsLeft() int {
	if s.Plan.MaxActiveAlerts == rules.UnlimitedAlerts {
		return rules.UnlimitedAlerts
	}
	left := s.Plan.MaxActiveAlerts - s.ActiveAlerts
	if left < 0 {
		return 0
	}
	return left
}

type Dependencies struct {
	Credits CreditReader
	Alerts  AlertCounter
}

type Service struct {
	credits CreditReader
	alerts  AlertCounter
	now     func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		credits: deps.Credits,
		alerts:  deps.Alerts,
		now:     time.Now,
	}
}

// Resolve builds the snapshot from the credit state and the live alert
// count. An unknown stored plan key surfaces as ErrUnknownPlan rather
// than silently defaulting to a tier.
func (s *Service) Resolve(ctx context.Context, userID int64) (Snapshot, error) {
	if userID <= 0 {
		return Snapshot{}, ErrValidation
	}
	if s.credits == nil || s.alerts == nil {
		return Snapshot{}, ErrDependenciesNil
	}

	state, err := s.credits.GetState(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	plan, err := rules.GetPlan(state.PlanKey)
	if err != nil {
		return Snapshot{}, err
	}

	active, err := s.alerts.CountActive(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count active alerts: %w", err)
	}

	return Snapshot{
		UserID:           userID,
		Plan:             plan,
		CreditsRemaining: state.CreditsRemaining,
		CreditsResetDate: state.CreditsResetDate,
		ActiveAlerts:     active,
		Outlook:          rules.Outlook(state.CreditsResetDate, s.now(), state.CreditsRemaining),
	}, nil
}

// CanActivateAlert reports whether one more alert may be switched on.
// Creating an alert is never capped; only activation is.
func (s *Service) CanActivateAlert(ctx context.Context, userID int64) (bool, Snapshot, error) {
	snapshot, err := s.Resolve(ctx, userID)
	if err != nil {
		return false, Snapshot{}, err
	}
	return snapshot.ActiveAlerts < snapshot.Plan.MaxActiveAlerts, snapshot, nil
}

// CanScan gates the scan kind on the plan. Shallow scans are available
// to every tier; deep scans require the DeepScan feature.
func (s *Service) CanScan(ctx context.Context, userID int64, kind enums.ActionKind) (Snapshot, error) {
	if !kind.IsScan() {
		return Snapshot{}, ErrValidation
	}

	snapshot, err := s.Resolve(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	if kind == enums.ActionScanDeep && !snapshot.Plan.Features.DeepScan {
		return Snapshot{}, FeatureLockedError{Feature: "deep_scan", PlanKey: snapshot.Plan.Key}
	}

	return snapshot, nil
}

// CanAddToWatchlist is a plan gate with no locked tiers today; every
// plan may watch models and the meter prices the addition. It still
// resolves the snapshot so callers surface unknown plans early.
func (s *Service) CanAddToWatchlist(ctx context.Context, userID int64) (Snapshot, error) {
	return s.Resolve(ctx, userID)
}

// CanExport gates CSV exports on the Export feature flag.
func (s *Service) CanExport(ctx context.Context, userID int64) (Snapshot, error) {
	snapshot, err := s.Resolve(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if !snapshot.Plan.Features.Export {
		return Snapshot{}, FeatureLockedError{Feature: "export", PlanKey: snapshot.Plan.Key}
	}
	return snapshot, nil
}
