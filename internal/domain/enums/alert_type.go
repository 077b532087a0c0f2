package enums

type AlertTargetType string

const (
	AlertTargetModel AlertTargetType = "model"
	AlertTargetAd    AlertTargetType = "ad"
)

func (t AlertTargetType) Valid() bool {
	switch t {
	case AlertTargetModel, AlertTargetAd:
		return true
	default:
		return false
	}
}

type AlertType string

const (
	AlertPriceBelow   AlertType = "price_below"
	AlertPriceDropPct AlertType = "price_drop_pct"
	AlertNewListing   AlertType = "new_listing"
	AlertBackInStock  AlertType = "back_in_stock"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertPriceBelow, AlertPriceDropPct, AlertNewListing, AlertBackInStock:
		return true
	default:
		return false
	}
}

// NeedsThreshold reports whether the alert type is meaningless without
// a numeric threshold.
func (t AlertType) NeedsThreshold() bool {
	return t == AlertPriceBelow || t == AlertPriceDropPct
}
