package workflow

import "backend/internal/model"

// Config carries the per-kind workflow knobs that are deployment
// choices rather than engine logic: which roles need OTP step-up,
// which kinds need a cost estimate and at which role, which kinds end
// with a vehicle assignment, and which support a driver completion.
type Config struct {
	// SensitiveRoles[kind] lists roles whose approve/forward/reject
	// require a verified OTP grant.
	SensitiveRoles map[string][]string

	// EstimationRole[kind] names the role that must populate cost
	// fields before the request can advance past it. Absent kinds are
	// not cost-dependent.
	EstimationRole map[string]string

	// AssignKinds marks kinds whose final approval is a vehicle
	// assignment rather than a plain approve.
	AssignKinds map[string]bool

	// CompletableKinds marks kinds the assigned driver closes out with
	// a complete action after the trip.
	CompletableKinds map[string]bool
}

// DefaultConfig gates the money-handling roles behind OTP for every
// kind and action, and wires cost estimation into the refueling and
// high-cost transport chains.
func DefaultConfig() Config {
	sensitive := []string{model.RoleFinanceManager, model.RoleCEO}
	return Config{
		SensitiveRoles: map[string][]string{
			model.KindTransport:         sensitive,
			model.KindHighCostTransport: sensitive,
			model.KindMaintenance:       sensitive,
			model.KindRefueling:         sensitive,
			model.KindService:           sensitive,
		},
		EstimationRole: map[string]string{
			model.KindRefueling:         model.RoleTransportManager,
			model.KindHighCostTransport: model.RoleTransportManager,
		},
		AssignKinds: map[string]bool{
			model.KindTransport:         true,
			model.KindHighCostTransport: true,
		},
		CompletableKinds: map[string]bool{
			model.KindTransport:         true,
			model.KindHighCostTransport: true,
		},
	}
}

// IsSensitive reports whether role's actions on kind need OTP step-up.
func (c Config) IsSensitive(kind, role string) bool {
	for _, r := range c.SensitiveRoles[kind] {
		if r == role {
			return true
		}
	}
	return false
}

// RequiresEstimation reports whether role must estimate costs on kind
// before forwarding or approving.
func (c Config) RequiresEstimation(kind, role string) bool {
	est, ok := c.EstimationRole[kind]
	return ok && est == role
}

// CostDependent reports whether kind carries cost fields at all.
func (c Config) CostDependent(kind string) bool {
	_, ok := c.EstimationRole[kind]
	return ok
}
