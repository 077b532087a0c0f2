package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	"github.com/gearscout/backend/internal/domain/rules"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	"github.com/gearscout/backend/internal/services/credits"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnknownSKU      = errors.New("unknown purchase sku")
	ErrDependenciesNil = errors.New("billing dependencies are not configured")
)

// skuCredits maps each purchasable pack to the credits it grants.
var skuCredits = map[enums.PurchaseSKU]int{
	enums.PurchaseSKUCreditsPack50:  50,
	enums.PurchaseSKUCreditsPack200: 200,
	enums.PurchaseSKUCreditsPack500: 500,
}

func CreditsForSKU(sku enums.PurchaseSKU) (int, error) {
	amount, ok := skuCredits[sku]
	if !ok {
		return 0, ErrUnknownSKU
	}
	return amount, nil
}

type PurchaseStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, rec pgrepo.PurchaseRecord) (int64, bool, error)
}

type Ledger interface {
	Add(ctx context.Context, userID int64, amount int, reason string, jobID *string) (model.CreditState, error)
	ResetCycle(ctx context.Context, userID int64, newPlan *enums.PlanKey) (model.CreditState, error)
}

type TopupResult struct {
	PurchaseID int64
	Duplicate  bool
	Granted    int
	Balance    int
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	Purchases PurchaseStore
	Ledger    Ledger
}

type Service struct {
	purchases PurchaseStore
	ledger    Ledger
	runTx     func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(deps Dependencies) *Service {
	pool := deps.Pool
	return &Service{
		purchases: deps.Purchases,
		ledger:    deps.Ledger,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
	}
}

// Subscribe switches the user to the given plan and starts a fresh
// cycle at the new allowance. Leftover credits from the old cycle are
// discarded, up- and downgrade alike.
func (s *Service) Subscribe(ctx context.Context, userID int64, planKey enums.PlanKey) (model.CreditState, error) {
	if userID <= 0 {
		return model.CreditState{}, ErrValidation
	}
	if s.ledger == nil {
		return model.CreditState{}, ErrDependenciesNil
	}
	if _, err := rules.GetPlan(planKey); err != nil {
		return model.CreditState{}, err
	}

	return s.ledger.ResetCycle(ctx, userID, &planKey)
}

// Topup grants a purchased credit pack on top of the cycle balance.
// The purchase row dedupes on the idempotency key, so a retried
// payment webhook grants the pack once.
func (s *Service) Topup(ctx context.Context, userID int64, sku enums.PurchaseSKU, idempotencyKey string) (TopupResult, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if userID <= 0 || idempotencyKey == "" {
		return TopupResult{}, ErrValidation
	}
	if s.purchases == nil || s.ledger == nil {
		return TopupResult{}, ErrDependenciesNil
	}

	amount, err := CreditsForSKU(sku)
	if err != nil {
		return TopupResult{}, err
	}

	var purchaseID int64
	inserted := false
	err = s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		id, created, err := s.purchases.InsertTx(txCtx, tx, pgrepo.PurchaseRecord{
			UserID:         userID,
			SKU:            string(sku),
			IdempotencyKey: idempotencyKey,
			CreditsGranted: amount,
		})
		if err != nil {
			return err
		}
		purchaseID = id
		inserted = created
		return nil
	})
	if err != nil {
		return TopupResult{}, err
	}

	if !inserted {
		return TopupResult{Duplicate: true}, nil
	}

	state, err := s.ledger.Add(ctx, userID, amount, credits.ReasonTopup, nil)
	if err != nil {
		return TopupResult{}, err
	}

	return TopupResult{
		PurchaseID: purchaseID,
		Granted:    amount,
		Balance:    state.CreditsRemaining,
	}, nil
}
