package dto

import "time"

type ScrapCompleteRequest struct {
	TaskID       string    `json:"task_id"`
	PagesScanned int       `json:"pages_scanned"`
	AdsSent      int       `json:"ads_sent"`
	DurationSec  int64     `json:"duration_sec"`
	HighPriority bool      `json:"high_priority"`
	CompletedAt  time.Time `json:"completed_at"`
}

type RewardPayload struct {
	Base           int `json:"base"`
	FreshnessBonus int `json:"freshness_bonus"`
	PriorityBonus  int `json:"priority_bonus"`
	Total          int `json:"total"`
}

type ScrapCompleteResponse struct {
	ContributionID int64         `json:"contribution_id,omitempty"`
	Duplicate      bool          `json:"duplicate"`
	Reward         RewardPayload `json:"reward"`
	Balance        int           `json:"balance"`
}

type ContributionPayload struct {
	ID            int64     `json:"id"`
	TaskID        string    `json:"task_id"`
	PagesScanned  int       `json:"pages_scanned"`
	AdsSent       int       `json:"ads_sent"`
	DurationSec   int64     `json:"duration_sec"`
	HighPriority  bool      `json:"high_priority"`
	CreditsEarned int       `json:"credits_earned"`
	CreatedAt     time.Time `json:"created_at"`
}

type ContributionsResponse struct {
	Contributions []ContributionPayload `json:"contributions"`
}
