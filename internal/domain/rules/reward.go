package rules

import "time"

// Default community reward parameters. The freshness curve is
// non-increasing in submission delay and bounded; the applied total is
// capped at MaxCreditsPerScrap no matter how the bonuses combine.
const (
	BaseReward         = 5
	PriorityBonus      = 3
	FreshnessMaxBonus  = 4
	FreshnessDecayStep = 15 * time.Minute
	MaxCreditsPerScrap = 10
)

type RewardParams struct {
	Base               int
	PriorityBonus      int
	FreshnessMaxBonus  int
	FreshnessDecayStep time.Duration
	MaxPerContribution int
}

func DefaultRewardParams() RewardParams {
	return RewardParams{
		Base:               BaseReward,
		PriorityBonus:      PriorityBonus,
		FreshnessMaxBonus:  FreshnessMaxBonus,
		FreshnessDecayStep: FreshnessDecayStep,
		MaxPerContribution: MaxCreditsPerScrap,
	}
}

type Reward struct {
	Base           int `json:"base"`
	FreshnessBonus int `json:"freshness_bonus"`
	PriorityBonus  int `json:"priority_bonus"`
	Total          int `json:"total"`
}

func CalculateCreditGain(delay time.Duration, highPriority bool, params RewardParams) Reward {
	if params.Base <= 0 {
		params = DefaultRewardParams()
	}
	if params.FreshnessDecayStep <= 0 {
		params.FreshnessDecayStep = FreshnessDecayStep
	}
	if params.MaxPerContribution <= 0 {
		params.MaxPerContribution = MaxCreditsPerScrap
	}

	freshness := 0
	if params.FreshnessMaxBonus > 0 {
		if delay < 0 {
			delay = 0
		}
		freshness = params.FreshnessMaxBonus - int(delay/params.FreshnessDecayStep)
		if freshness < 0 {
			freshness = 0
		}
	}

	priority := 0
	if highPriority {
		priority = params.PriorityBonus
	}

	total := params.Base + freshness + priority
	if total > params.MaxPerContribution {
		total = params.MaxPerContribution
	}

	return Reward{
		Base:           params.Base,
		FreshnessBonus: freshness,
		PriorityBonus:  priority,
		Total:          total,
	}
}
