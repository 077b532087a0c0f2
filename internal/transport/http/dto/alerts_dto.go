package dto

import "time"

type AlertCreateRequest struct {
	TargetType string   `json:"target_type"`
	TargetID   string   `json:"target_id"`
	AlertType  string   `json:"alert_type"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Region     *string  `json:"region,omitempty"`
	Platform   *string  `json:"platform,omitempty"`
	Activate   bool     `json:"activate"`
}

type AlertUpdateRequest struct {
	AlertType string   `json:"alert_type"`
	Threshold *float64 `json:"threshold,omitempty"`
	Region    *string  `json:"region,omitempty"`
	Platform  *string  `json:"platform,omitempty"`
}

type AlertSetActiveRequest struct {
	Active bool `json:"active"`
}

type AlertPayload struct {
	ID              int64      `json:"id"`
	TargetType      string     `json:"target_type"`
	TargetID        string     `json:"target_id"`
	AlertType       string     `json:"alert_type"`
	Threshold       *float64   `json:"threshold,omitempty"`
	Region          *string    `json:"region,omitempty"`
	Platform        *string    `json:"platform,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}

type AlertCreateResponse struct {
	Alert              AlertPayload `json:"alert"`
	ActivationDeferred bool         `json:"activation_deferred"`
	DeferredReason     string       `json:"deferred_reason,omitempty"`
}

type AlertListResponse struct {
	Alerts []AlertPayload `json:"alerts"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
