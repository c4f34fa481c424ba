package workflow

import (
	"fmt"

	"backend/internal/model"
)

// EscalationTable holds the ordered approver chain per request kind.
// It is a static configuration input to the engine — never mutated at
// runtime. An unmapped (kind, role) pair is a configuration defect and
// surfaces as ErrUnconfiguredTransition rather than silently ending
// the chain.
type EscalationTable struct {
	chains map[string][]string
}

// DefaultEscalationTable returns the production approval chains.
func DefaultEscalationTable() *EscalationTable {
	return &EscalationTable{chains: map[string][]string{
		model.KindTransport: {
			model.RoleDepartmentManager,
			model.RoleTransportManager,
		},
		model.KindHighCostTransport: {
			model.RoleDepartmentManager,
			model.RoleTransportManager,
			model.RoleFinanceManager,
			model.RoleCEO,
		},
		model.KindMaintenance: {
			model.RoleDepartmentManager,
			model.RoleTransportManager,
			model.RoleBusinessUnit,
		},
		model.KindRefueling: {
			model.RoleTransportManager,
			model.RoleFinanceManager,
		},
		model.KindService: {
			model.RoleDepartmentManager,
			model.RoleBusinessUnit,
		},
	}}
}

// NewEscalationTable builds a table from explicit chains, for tests or
// alternative deployments.
func NewEscalationTable(chains map[string][]string) *EscalationTable {
	return &EscalationTable{chains: chains}
}

// FirstRole returns the role a freshly submitted request waits on.
func (t *EscalationTable) FirstRole(kind string) (string, error) {
	chain, ok := t.chains[kind]
	if !ok || len(chain) == 0 {
		return "", fmt.Errorf("%w: kind %s has no chain", ErrUnconfiguredTransition, kind)
	}
	return chain[0], nil
}

// NextRole resolves the role after currentRole in the kind's chain.
// Returns ("", nil) when currentRole is the last link — the request is
// ready for its terminal outcome.
func (t *EscalationTable) NextRole(kind, currentRole string) (string, error) {
	chain, ok := t.chains[kind]
	if !ok {
		return "", fmt.Errorf("%w: kind %s has no chain", ErrUnconfiguredTransition, kind)
	}
	for i, role := range chain {
		if role == currentRole {
			if i == len(chain)-1 {
				return "", nil
			}
			return chain[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: role %s is not in the %s chain", ErrUnconfiguredTransition, currentRole, kind)
}

// FinalRole returns the last approving role of the kind's chain.
func (t *EscalationTable) FinalRole(kind string) (string, error) {
	chain, ok := t.chains[kind]
	if !ok || len(chain) == 0 {
		return "", fmt.Errorf("%w: kind %s has no chain", ErrUnconfiguredTransition, kind)
	}
	return chain[len(chain)-1], nil
}

// Kinds lists every configured request kind.
func (t *EscalationTable) Kinds() []string {
	kinds := make([]string, 0, len(t.chains))
	for k := range t.chains {
		kinds = append(kinds, k)
	}
	return kinds
}
