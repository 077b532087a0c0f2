package enums

// ActionKind is the closed set of metered actions. Costs live in
// domain/rules; an action kind outside this set never reaches the ledger.
type ActionKind string

const (
	ActionScanShallow     ActionKind = "scan_shallow"
	ActionScanDeep        ActionKind = "scan_deep"
	ActionExportCSV       ActionKind = "export_csv"
	ActionAlertActivation ActionKind = "create_alert_activation"
	ActionWatchlistAdd    ActionKind = "watchlist_add"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionScanShallow, ActionScanDeep, ActionExportCSV, ActionAlertActivation, ActionWatchlistAdd:
		return true
	default:
		return false
	}
}

func (k ActionKind) IsScan() bool {
	return k == ActionScanShallow || k == ActionScanDeep
}
