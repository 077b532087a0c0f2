package rules

import (
	"errors"
	"testing"

	"github.com/gearscout/backend/internal/domain/enums"
)

func TestGetPlanReturnsCatalogEntry(t *testing.T) {
	plan, err := GetPlan(enums.PlanStarter)
	if err != nil {
		t.Fatalf("get starter plan: %v", err)
	}
	if plan.CreditsPerCycle != 120 {
		t.Fatalf("unexpected starter credits/cycle: got %d want %d", plan.CreditsPerCycle, 120)
	}
	if plan.MaxActiveAlerts != 3 {
		t.Fatalf("unexpected starter alert cap: got %d want %d", plan.MaxActiveAlerts, 3)
	}
	if plan.Features.Export {
		t.Fatalf("starter must not have export")
	}
}

func TestGetPlanUnknownKey(t *testing.T) {
	if _, err := GetPlan(enums.PlanKey("platinum")); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}

func TestEliteHasUnlimitedAlerts(t *testing.T) {
	plan, err := GetPlan(enums.PlanElite)
	if err != nil {
		t.Fatalf("get elite plan: %v", err)
	}
	if plan.MaxActiveAlerts != UnlimitedAlerts {
		t.Fatalf("unexpected elite alert cap: got %d", plan.MaxActiveAlerts)
	}
	if !plan.Features.SeeNegotiation || !plan.Features.SeeScenarios {
		t.Fatalf("elite must carry all feature flags")
	}
}

func TestAllPlansOrderedByTier(t *testing.T) {
	plans := AllPlans()
	if len(plans) != 3 {
		t.Fatalf("unexpected plan count: %d", len(plans))
	}
	if plans[0].Key != enums.PlanStarter || plans[2].Key != enums.PlanElite {
		t.Fatalf("unexpected plan order: %v", []enums.PlanKey{plans[0].Key, plans[1].Key, plans[2].Key})
	}
}
