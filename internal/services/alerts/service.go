package alerts

import (
	"context"
	"errors"
	"fmt"
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
	ErrAlertNotFound   = errors.New("alert not found")
	ErrDependenciesNil = errors.New("alert dependencies are not configured")
)

const (
	DeferredCapReached          = "alert_cap_reached"
	DeferredInsufficientCredits = "insufficient_credits"
)

// AlertCapError reports a refused activation together with the numbers
// the client renders in the upgrade prompt.
type AlertCapError struct {
	Current int
	Max     int
}

func (e AlertCapError) Error() string {
	return fmt.Sprintf("active alert cap reached: %d of %d", e.Current, e.Max)
}

func IsAlertCap(err error) (*AlertCapError, bool) {
	var ac AlertCapError
	if errors.As(err, &ac) {
		return &ac, true
	}
	return nil, false
}

type Store interface {
	Create(ctx context.Context, rec pgrepo.AlertRecord) (pgrepo.AlertRecord, error)
	GetByID(ctx context.Context, userID, alertID int64) (pgrepo.AlertRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]pgrepo.AlertRecord, error)
	CountActive(ctx context.Context, userID int64) (int, error)
	ActivateWithLimitTx(ctx context.Context, tx pgx.Tx, userID, alertID int64, maxActive int) error
	Deactivate(ctx context.Context, userID, alertID int64) error
	Update(ctx context.Context, rec pgrepo.AlertRecord) error
	Delete(ctx context.Context, userID, alertID int64) error
}

type Ledger interface {
	ExecuteWithCredits(ctx context.Context, userID int64, action enums.ActionKind, run func(context.Context) (string, error)) (credits.ExecResult, error)
}

type EntitlementResolver interface {
	CanActivateAlert(ctx context.Context, userID int64) (bool, entitlements.Snapshot, error)
}

type CreateInput struct {
	TargetType enums.AlertTargetType
	TargetID   string
	AlertType  enums.AlertType
	Threshold  *float64
	Region     *string
	Platform   *string
	Activate   bool
}

// CreateResult reports a created alert plus whether a requested
// activation had to be deferred. Creation itself always succeeds;
// only the activation can be refused.
type CreateResult struct {
	Alert              model.Alert
	ActivationDeferred bool
	DeferredReason     string
}

type Dependencies struct {
	Pool         *pgxpool.Pool
	Store        Store
	Ledger       Ledger
	Entitlements EntitlementResolver
}

type Service struct {
	store        Store
	ledger       Ledger
	entitlements EntitlementResolver
	runTx        func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(deps Dependencies) *Service {
	pool := deps.Pool
	return &Service{
		store:        deps.Store,
		ledger:       deps.Ledger,
		entitlements: deps.Entitlements,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
	}
}

// Create stores the alert inactive first. When activation was requested
// it then runs the metered activation; a cap or an empty balance leaves
// the alert saved but off, reported through the deferred fields.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (CreateResult, error) {
	if err := validateCreate(userID, in); err != nil {
		return CreateResult{}, err
	}
	if s.store == nil || s.ledger == nil || s.entitlements == nil {
		return CreateResult{}, ErrDependenciesNil
	}

	rec, err := s.store.Create(ctx, pgrepo.AlertRecord{
		UserID:     userID,
		TargetType: string(in.TargetType),
		TargetID:   strings.TrimSpace(in.TargetID),
		AlertType:  string(in.AlertType),
		Threshold:  in.Threshold,
		Region:     in.Region,
		Platform:   in.Platform,
		IsActive:   false,
	})
	if err != nil {
		return CreateResult{}, err
	}

	result := CreateResult{Alert: alertFromRecord(rec)}
	if !in.Activate {
		return result, nil
	}

	switch err := s.SetActive(ctx, userID, rec.ID, true); {
	case err == nil:
		result.Alert.IsActive = true
	default:
		if _, capped := IsAlertCap(err); capped {
			result.ActivationDeferred = true
			result.DeferredReason = DeferredCapReached
			return result, nil
		}
		if _, insufficient := credits.IsInsufficientCredits(err); insufficient {
			result.ActivationDeferred = true
			result.DeferredReason = DeferredInsufficientCredits
			return result, nil
		}
		return CreateResult{}, err
	}

	return result, nil
}

// SetActive toggles an alert. Deactivation is always free and always
// permitted. Activation is metered and bounded by the plan cap; the
// conditional update is the executor, so a refused activation is never
// charged.
func (s *Service) SetActive(ctx context.Context, userID, alertID int64, active bool) error {
	if userID <= 0 || alertID <= 0 {
		return ErrValidation
	}
	if s.store == nil || s.ledger == nil || s.entitlements == nil {
		return ErrDependenciesNil
	}

	if !active {
		if err := s.store.Deactivate(ctx, userID, alertID); err != nil {
			if errors.Is(err, pgrepo.ErrAlertNotFound) {
				return ErrAlertNotFound
			}
			return err
		}
		return nil
	}

	current, err := s.store.GetByID(ctx, userID, alertID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAlertNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	if current.IsActive {
		return nil
	}

	allowed, snapshot, err := s.entitlements.CanActivateAlert(ctx, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return AlertCapError{Current: snapshot.ActiveAlerts, Max: snapshot.Plan.MaxActiveAlerts}
	}

	_, err = s.ledger.ExecuteWithCredits(ctx, userID, enums.ActionAlertActivation, func(runCtx context.Context) (string, error) {
		return "", s.runTx(runCtx, func(txCtx context.Context, tx pgx.Tx) error {
			return s.store.ActivateWithLimitTx(txCtx, tx, userID, alertID, snapshot.Plan.MaxActiveAlerts)
		})
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrAlertCapReached) {
			return AlertCapError{Current: snapshot.ActiveAlerts, Max: snapshot.Plan.MaxActiveAlerts}
		}
		return err
	}

	return nil
}

func (s *Service) Get(ctx context.Context, userID, alertID int64) (model.Alert, error) {
	if userID <= 0 || alertID <= 0 {
		return model.Alert{}, ErrValidation
	}
	if s.store == nil {
		return model.Alert{}, ErrDependenciesNil
	}

	rec, err := s.store.GetByID(ctx, userID, alertID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAlertNotFound) {
			return model.Alert{}, ErrAlertNotFound
		}
		return model.Alert{}, err
	}

	return alertFromRecord(rec), nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]model.Alert, error) {
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

	out := make([]model.Alert, 0, len(records))
	for _, rec := range records {
		out = append(out, alertFromRecord(rec))
	}

	return out, nil
}

// Update edits alert parameters in place. The active flag is not
// touched here; toggling goes through SetActive.
func (s *Service) Update(ctx context.Context, userID, alertID int64, in CreateInput) error {
	if err := validateCreate(userID, in); err != nil {
		return err
	}
	if alertID <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return ErrDependenciesNil
	}

	err := s.store.Update(ctx, pgrepo.AlertRecord{
		ID:        alertID,
		UserID:    userID,
		AlertType: string(in.AlertType),
		Threshold: in.Threshold,
		Region:    in.Region,
		Platform:  in.Platform,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrAlertNotFound) {
			return ErrAlertNotFound
		}
		return err
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, userID, alertID int64) error {
	if userID <= 0 || alertID <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return ErrDependenciesNil
	}

	if err := s.store.Delete(ctx, userID, alertID); err != nil {
		if errors.Is(err, pgrepo.ErrAlertNotFound) {
			return ErrAlertNotFound
		}
		return err
	}

	return nil
}

func validateCreate(userID int64, in CreateInput) error {
	if userID <= 0 || strings.TrimSpace(in.TargetID) == "" {
		return ErrValidation
	}
	if !in.TargetType.Valid() || !in.AlertType.Valid() {
		return ErrValidation
	}
	if in.AlertType.NeedsThreshold() && (in.Threshold == nil || *in.Threshold <= 0) {
		return ErrValidation
	}
	return nil
}

func alertFromRecord(rec pgrepo.AlertRecord) model.Alert {
	return model.Alert{
		ID:              rec.ID,
		UserID:          rec.UserID,
		TargetType:      enums.AlertTargetType(rec.TargetType),
		TargetID:        rec.TargetID,
		AlertType:       enums.AlertType(rec.AlertType),
		Threshold:       rec.Threshold,
		Region:          rec.Region,
		Platform:        rec.Platform,
		IsActive:        rec.IsActive,
		CreatedAt:       rec.CreatedAt,
		LastTriggeredAt: rec.LastTriggeredAt,
	}
}
