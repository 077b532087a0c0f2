package dto

import "time"

type PlanFeaturesPayload struct {
	SeeBuyPrice    bool `json:"see_buy_price"`
	SeeProbability bool `json:"see_probability"`
	SeeScenarios   bool `json:"see_scenarios"`
	SeeNegotiation bool `json:"see_negotiation"`
	Export         bool `json:"export"`
	DeepScan       bool `json:"deep_scan"`
}

type PlanPayload struct {
	Key             string              `json:"key"`
	Name            string              `json:"name"`
	MonthlyPriceEUR float64             `json:"monthly_price_eur"`
	CreditsPerCycle int                 `json:"credits_per_cycle"`
	MaxActiveAlerts int                 `json:"max_active_alerts"`
	Unlimited       bool                `json:"unlimited_alerts"`
	Features        PlanFeaturesPayload `json:"features"`
}

type CycleOutlookPayload struct {
	DaysUntilReset    int  `json:"days_until_reset"`
	IsResetSoon       bool `json:"is_reset_soon"`
	CreditsWillExpire int  `json:"credits_will_expire"`
}

type EntitlementsResponse struct {
	Plan             PlanPayload         `json:"plan"`
	CreditsRemaining int                 `json:"credits_remaining"`
	CreditsResetDate time.Time           `json:"credits_reset_date"`
	ActiveAlerts     int                 `json:"active_alerts"`
	AlertSlotsLeft   int                 `json:"alert_slots_left"`
	Outlook          CycleOutlookPayload `json:"cycle_outlook"`
}

type PlansResponse struct {
	Plans []PlanPayload `json:"plans"`
}
