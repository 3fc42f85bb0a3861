package safety

import "github.com/AzielCF/az-speed/optimizer/domain"

// Reason names the check that decided a request.
type Reason string

const (
	ReasonAdmin    Reason = "admin"
	ReasonREST     Reason = "rest"
	ReasonAJAX     Reason = "ajax"
	ReasonCron     Reason = "cron"
	ReasonLoggedIn Reason = "logged_in"
	ReasonCommerce Reason = "commerce"
	ReasonSafe     Reason = "safe"
)

// Decision is the per-request outcome of the gate.
type Decision struct {
	Safe   bool   `json:"safe"`
	Reason Reason `json:"reason"`
}

// Gate decides whether a request may be optimized at all. The only input
// besides the request is the "affect logged-in users" setting.
type Gate struct {
	affectLoggedInUsers bool
}

func NewGate(affectLoggedInUsers bool) Gate {
	return Gate{affectLoggedInUsers: affectLoggedInUsers}
}

// Evaluate runs the checks in order and stops at the first failing one.
func (g Gate) Evaluate(rc domain.RequestContext) Decision {
	switch {
	case rc.IsAdmin:
		return Decision{Reason: ReasonAdmin}
	case rc.IsREST:
		return Decision{Reason: ReasonREST}
	case rc.IsAJAX:
		return Decision{Reason: ReasonAJAX}
	case rc.IsCron:
		return Decision{Reason: ReasonCron}
	case rc.IsLoggedIn && !g.affectLoggedInUsers:
		return Decision{Reason: ReasonLoggedIn}
	case rc.IsCommerce():
		return Decision{Reason: ReasonCommerce}
	}
	return Decision{Safe: true, Reason: ReasonSafe}
}

func (g Gate) IsSafeContext(rc domain.RequestContext) bool {
	return g.Evaluate(rc).Safe
}
