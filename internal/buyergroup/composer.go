// internal/buyergroup/composer.go
package buyergroup

import (
	"fmt"
	"sort"
)

// InvalidReasonNoDecisionMaker is reported when the candidates contain no
// decision maker at all.
const InvalidReasonNoDecisionMaker = "no decision maker"

const DefaultMaxTotal = 25

// GroupConstraints bounds the composed group. A role missing from RoleCaps
// is limited only by MaxTotal.
type GroupConstraints struct {
	MaxTotal int          `json:"maxTotal"`
	RoleCaps map[Role]int `json:"roleCaps,omitempty"`
}

func DefaultConstraints() GroupConstraints {
	return GroupConstraints{
		MaxTotal: DefaultMaxTotal,
		RoleCaps: map[Role]int{
			RoleDecisionMaker: 4,
			RoleChampion:      2,
			RoleStakeholder:   4,
			RoleBlocker:       3,
			RoleIntroducer:    2,
		},
	}
}

func (c GroupConstraints) Validate() error {
	if c.MaxTotal < 1 {
		return fmt.Errorf("maxTotal must be at least 1, got %d", c.MaxTotal)
	}
	for role, limit := range c.RoleCaps {
		if !role.Valid() {
			return fmt.Errorf("unknown role %q in role caps", role)
		}
		if limit < 0 {
			return fmt.Errorf("cap for %s must not be negative, got %d", role, limit)
		}
		if role == RoleDecisionMaker && limit == 0 {
			return fmt.Errorf("cap for %s must be at least 1", role)
		}
	}
	return nil
}

// Cap returns the limit for role and whether one is configured.
func (c GroupConstraints) Cap(role Role) (int, bool) {
	limit, ok := c.RoleCaps[role]
	return limit, ok
}

// sanitized clamps values Validate would reject so Compose stays total.
func (c GroupConstraints) sanitized() GroupConstraints {
	out := GroupConstraints{MaxTotal: c.MaxTotal, RoleCaps: make(map[Role]int, len(c.RoleCaps))}
	if out.MaxTotal < 1 {
		out.MaxTotal = 1
	}
	for role, limit := range c.RoleCaps {
		if limit < 0 {
			limit = 0
		}
		if role == RoleDecisionMaker && limit < 1 {
			limit = 1
		}
		out.RoleCaps[role] = limit
	}
	return out
}

// BuyerGroup is the composed group for one company.
type BuyerGroup struct {
	CompanyID     string           `json:"companyId"`
	Members       []RoleAssignment `json:"members"`
	Valid         bool             `json:"valid"`
	InvalidReason string           `json:"invalidReason,omitempty"`
	// Dropped counts assignments removed by caps or the size limit.
	Dropped int `json:"dropped"`
}

// RoleCounts counts members per role.
func (g BuyerGroup) RoleCounts() map[Role]int {
	counts := make(map[Role]int, len(RolesByPriority))
	for _, m := range g.Members {
		counts[m.Role]++
	}
	return counts
}

// MembersWithRole returns members holding role, in group order.
func (g BuyerGroup) MembersWithRole(role Role) []RoleAssignment {
	var out []RoleAssignment
	for _, m := range g.Members {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// Compose builds the buyer group for companyID from classified assignments.
//
// A group without a decision maker is returned with Valid=false and no
// members. Otherwise every bucket is capped (highest confidence first, input
// order on ties), buckets are concatenated by role priority and the tail is
// cut to MaxTotal, so lower-priority roles always go first.
func Compose(companyID string, assignments []RoleAssignment, constraints GroupConstraints) BuyerGroup {
	constraints = constraints.sanitized()
	group := BuyerGroup{CompanyID: companyID, Members: []RoleAssignment{}}

	buckets := make(map[Role][]RoleAssignment, len(RolesByPriority))
	seen := make(map[string]struct{}, len(assignments))
	unique := 0
	for _, a := range assignments {
		if _, dup := seen[a.PersonID]; dup {
			continue
		}
		seen[a.PersonID] = struct{}{}
		if !a.Role.Valid() {
			// Unknown roles cannot be ranked; treat them as the default role.
			a.Role = RoleStakeholder
		}
		buckets[a.Role] = append(buckets[a.Role], a)
		unique++
	}

	if len(buckets[RoleDecisionMaker]) == 0 {
		group.InvalidReason = InvalidReasonNoDecisionMaker
		group.Dropped = unique
		return group
	}

	for _, role := range RolesByPriority {
		bucket := buckets[role]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Confidence > bucket[j].Confidence
		})
		if limit, ok := constraints.Cap(role); ok && len(bucket) > limit {
			bucket = bucket[:limit]
		}
		group.Members = append(group.Members, bucket...)
	}

	if len(group.Members) > constraints.MaxTotal {
		group.Members = group.Members[:constraints.MaxTotal]
	}

	group.Valid = true
	group.Dropped = unique - len(group.Members)
	return group
}
