package dto

import "time"

type CreditStateResponse struct {
	PlanKey          string    `json:"plan_key"`
	CreditsRemaining int       `json:"credits_remaining"`
	CreditsResetDate time.Time `json:"credits_reset_date"`
}

type CreditCheckRequest struct {
	Action string `json:"action"`
}

type CreditCheckResponse struct {
	Allowed bool `json:"allowed"`
	Cost    int  `json:"cost"`
	Current int  `json:"current"`
	Deficit int  `json:"deficit"`
}

type CreditLogEntryPayload struct {
	ID        int64     `json:"id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	JobID     *string   `json:"job_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreditHistoryResponse struct {
	Entries []CreditLogEntryPayload `json:"entries"`
}
