package valueobjects

// Plan is the subscription tier a user is entitled to.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro:
		return true
	default:
		return false
	}
}

// IsPaid reports whether the plan grants paid features.
func (p Plan) IsPaid() bool {
	return p == PlanStarter || p == PlanPro
}

func (p Plan) String() string {
	return string(p)
}
