package model

import (
	"time"

	"github.com/gearscout/backend/internal/domain/enums"
)

type Purchase struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"user_id"`
	SKU            enums.PurchaseSKU `json:"sku"`
	IdempotencyKey string            `json:"idempotency_key"`
	CreditsGranted int               `json:"credits_granted"`
	CreatedAt      time.Time         `json:"created_at"`
}
