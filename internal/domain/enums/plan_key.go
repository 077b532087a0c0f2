package enums

type PlanKey string

const (
	PlanStarter PlanKey = "starter"
	PlanPro     PlanKey = "pro"
	PlanElite   PlanKey = "elite"
)

func (k PlanKey) Valid() bool {
	switch k {
	case PlanStarter, PlanPro, PlanElite:
		return true
	default:
		return false
	}
}
