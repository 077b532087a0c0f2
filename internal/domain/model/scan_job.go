package model

import (
	"time"

	"github.com/gearscout/backend/internal/domain/enums"
)

type ScanJob struct {
	ID        string           `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      enums.ActionKind `json:"kind"`
	Query     string           `json:"query"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
