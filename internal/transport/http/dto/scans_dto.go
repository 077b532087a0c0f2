package dto

import "time"

type ScanRequest struct {
	Kind  string `json:"kind"`
	Query string `json:"query"`
}

type ScanJobPayload struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ScanResponse struct {
	Job              ScanJobPayload `json:"job"`
	Cost             int            `json:"cost"`
	CreditsRemaining int            `json:"credits_remaining"`
}
