package enums

type PurchaseSKU string

const (
	PurchaseSKUCreditsPack50  PurchaseSKU = "credits_pack_50"
	PurchaseSKUCreditsPack200 PurchaseSKU = "credits_pack_200"
	PurchaseSKUCreditsPack500 PurchaseSKU = "credits_pack_500"
)

func (s PurchaseSKU) Valid() bool {
	switch s {
	case PurchaseSKUCreditsPack50, PurchaseSKUCreditsPack200, PurchaseSKUCreditsPack500:
		return true
	default:
		return false
	}
}
