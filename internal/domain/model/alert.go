package model

import (
	"time"

	"github.com/gearscout/backend/internal/domain/enums"
)

type Alert struct {
	ID              int64                 `json:"id"`
	UserID          int64                 `json:"user_id"`
	TargetType      enums.AlertTargetType `json:"target_type"`
	TargetID        string                `json:"target_id"`
	AlertType       enums.AlertType       `json:"alert_type"`
	Threshold       *float64              `json:"threshold,omitempty"`
	Region          *string               `json:"region,omitempty"`
	Platform        *string               `json:"platform,omitempty"`
	IsActive        bool                  `json:"is_active"`
	CreatedAt       time.Time             `json:"created_at"`
	LastTriggeredAt *time.Time            `json:"last_triggered_at,omitempty"`
}
