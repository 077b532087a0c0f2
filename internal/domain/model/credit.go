package model

import (
	"time"

	"github.com/gearscout/backend/internal/domain/enums"
)

// CreditState is the per-user balance record. The balance never goes
// negative; a cycle reset replaces it with the plan allowance instead of
// adding to it.
type CreditState struct {
	UserID           int64         `json:"user_id"`
	PlanKey          enums.PlanKey `json:"plan_key"`
	CreditsRemaining int           `json:"credits_remaining"`
	CreditsResetDate time.Time     `json:"credits_reset_date"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// CreditLogEntry is append-only; reconciliation and the user-facing
// history both read from it.
type CreditLogEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	JobID     *string   `json:"job_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
