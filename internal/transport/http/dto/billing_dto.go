package dto

type SubscribeRequest struct {
	PlanKey string `json:"plan_key"`
}

type TopupRequest struct {
	SKU            string `json:"sku"`
	IdempotencyKey string `json:"idempotency_key"`
}

type TopupResponse struct {
	PurchaseID int64 `json:"purchase_id,omitempty"`
	Duplicate  bool  `json:"duplicate"`
	Granted    int   `json:"granted"`
	Balance    int   `json:"balance"`
}
