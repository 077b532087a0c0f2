package model

import "time"

// CommunityContribution records a completed manual scraping task.
// Immutable once written; CreditsEarned is the applied reward total.
type CommunityContribution struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	TaskID        string    `json:"task_id"`
	PagesScanned  int       `json:"pages_scanned"`
	AdsSent       int       `json:"ads_sent"`
	DurationSec   int64     `json:"duration_sec"`
	HighPriority  bool      `json:"high_priority"`
	CreditsEarned int       `json:"credits_earned"`
	CreatedAt     time.Time `json:"created_at"`
}
