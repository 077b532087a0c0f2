package rules

import (
	"errors"
	"math"

	"github.com/gearscout/backend/internal/domain/enums"
)

var ErrUnknownPlan = errors.New("unknown plan")

// UnlimitedAlerts is the sentinel used by tiers without an activation cap.
const UnlimitedAlerts = math.MaxInt32

type PlanFeatures struct {
	SeeBuyPrice    bool `json:"see_buy_price"`
	SeeProbability bool `json:"see_probability"`
	SeeScenarios   bool `json:"see_scenarios"`
	SeeNegotiation bool `json:"see_negotiation"`
	Export         bool `json:"export"`
	DeepScan       bool `json:"deep_scan"`
}

// Plan is read-only reference data; nothing mutates it at runtime.
type Plan struct {
	Key             enums.PlanKey `json:"key"`
	Name            string        `json:"name"`
	MonthlyPriceEUR float64       `json:"monthly_price_eur"`
	CreditsPerCycle int           `json:"credits_per_cycle"`
	MaxActiveAlerts int           `json:"max_active_alerts"`
	Features        PlanFeatures  `json:"features"`
}

var planCatalog = map[enums.PlanKey]Plan{
	enums.PlanStarter: {
		Key:             enums.PlanStarter,
		Name:            "Starter",
		MonthlyPriceEUR: 0,
		CreditsPerCycle: 120,
		MaxActiveAlerts: 3,
	},
	enums.PlanPro: {
		Key:             enums.PlanPro,
		Name:            "Pro",
		MonthlyPriceEUR: 9.90,
		CreditsPerCycle: 500,
		MaxActiveAlerts: 10,
		Features: PlanFeatures{
			SeeBuyPrice:    true,
			SeeProbability: true,
			Export:         true,
			DeepScan:       true,
		},
	},
	enums.PlanElite: {
		Key:             enums.PlanElite,
		Name:            "Elite",
		MonthlyPriceEUR: 24.90,
		CreditsPerCycle: 2000,
		MaxActiveAlerts: UnlimitedAlerts,
		Features: PlanFeatures{
			SeeBuyPrice:    true,
			SeeProbability: true,
			SeeScenarios:   true,
			SeeNegotiation: true,
			Export:         true,
			DeepScan:       true,
		},
	},
}

func GetPlan(key enums.PlanKey) (Plan, error) {
	plan, ok := planCatalog[key]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return plan, nil
}

func AllPlans() []Plan {
	return []Plan{
		planCatalog[enums.PlanStarter],
		planCatalog[enums.PlanPro],
		planCatalog[enums.PlanElite],
	}
}
