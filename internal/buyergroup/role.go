// internal/buyergroup/role.go
package buyergroup

import (
	"fmt"
	"strings"
)

// Role is a buyer group role.
type Role string

const (
	RoleDecisionMaker Role = "decision_maker"
	RoleChampion      Role = "champion"
	RoleStakeholder   Role = "stakeholder"
	RoleBlocker       Role = "blocker"
	RoleIntroducer    Role = "introducer"
)

// RolesByPriority lists every role from highest to lowest priority.
var RolesByPriority = []Role{
	RoleDecisionMaker,
	RoleChampion,
	RoleStakeholder,
	RoleBlocker,
	RoleIntroducer,
}

// Priority returns the truncation priority; higher values are kept longer.
// Unknown roles return 0.
func (r Role) Priority() int {
	switch r {
	case RoleDecisionMaker:
		return 5
	case RoleChampion:
		return 4
	case RoleStakeholder:
		return 3
	case RoleBlocker:
		return 2
	case RoleIntroducer:
		return 1
	}
	return 0
}

func (r Role) Valid() bool {
	return r.Priority() > 0
}

func (r Role) String() string {
	return string(r)
}

// DisplayName returns the human-readable role, e.g. "Decision Maker".
func (r Role) DisplayName() string {
	switch r {
	case RoleDecisionMaker:
		return "Decision Maker"
	case RoleChampion:
		return "Champion"
	case RoleStakeholder:
		return "Stakeholder"
	case RoleBlocker:
		return "Blocker"
	case RoleIntroducer:
		return "Introducer"
	}
	return string(r)
}

// ParseRole accepts "decision_maker", "DecisionMaker", "decision maker" and "decision-maker".
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "decisionmaker":
		return RoleDecisionMaker, nil
	case "champion":
		return RoleChampion, nil
	case "stakeholder":
		return RoleStakeholder, nil
	case "blocker":
		return RoleBlocker, nil
	case "introducer":
		return RoleIntroducer, nil
	}
	return "", fmt.Errorf("unknown buyer group role %q", s)
}
