package rules

import (
	"errors"

	"github.com/gearscout/backend/internal/domain/enums"
)

// ErrUnknownAction is returned instead of a zero cost: a new metered
// action must be priced here before it can pass the ledger.
var ErrUnknownAction = errors.New("unknown action")

var actionCosts = map[enums.ActionKind]int{
	enums.ActionScanShallow:     3,
	enums.ActionScanDeep:        8,
	enums.ActionExportCSV:       5,
	enums.ActionAlertActivation: 2,
	enums.ActionWatchlistAdd:    1,
}

func CostOf(kind enums.ActionKind) (int, error) {
	cost, ok := actionCosts[kind]
	if !ok {
		return 0, ErrUnknownAction
	}
	return cost, nil
}
