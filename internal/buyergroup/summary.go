// internal/buyergroup/summary.go
package buyergroup

import "fmt"

// Engagement strategies, strongest first.
const (
	StrategyExecutiveSponsor     = "executive_sponsor"
	StrategyChampionLed          = "champion_led"
	StrategyBlockerMitigation    = "blocker_mitigation"
	StrategyStakeholderConsensus = "stakeholder_consensus"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is a suggested next step for the account team.
type Recommendation struct {
	Priority  string `json:"priority"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// Summary describes a composed group for reports and the search index.
type Summary struct {
	CompanyID          string           `json:"companyId"`
	Valid              bool             `json:"valid"`
	InvalidReason      string           `json:"invalidReason,omitempty"`
	MemberCount        int              `json:"memberCount"`
	CandidateCount     int              `json:"candidateCount"`
	RoleCounts         map[Role]int     `json:"roleCounts"`
	CoverageScore      float64          `json:"coverageScore"`
	EngagementStrategy string           `json:"engagementStrategy"`
	Priority           string           `json:"priority"`
	Recommendations    []Recommendation `json:"recommendations"`
}

// Summarize reports on group. For an invalid group the counts are taken
// from all assignments, since the group itself has no members.
func Summarize(group BuyerGroup, assignments []RoleAssignment) Summary {
	basis := group.Members
	if !group.Valid {
		basis = assignments
	}

	counts := make(map[Role]int, len(RolesByPriority))
	for _, role := range RolesByPriority {
		counts[role] = 0
	}
	for _, a := range basis {
		counts[a.Role]++
	}

	s := Summary{
		CompanyID:      group.CompanyID,
		Valid:          group.Valid,
		InvalidReason:  group.InvalidReason,
		MemberCount:    len(group.Members),
		CandidateCount: len(assignments),
		RoleCounts:     counts,
	}

	if len(basis) > 0 {
		s.CoverageScore = float64(counts[RoleDecisionMaker]+counts[RoleChampion]) / float64(len(basis))
	}
	s.EngagementStrategy = engagementStrategy(counts)
	s.Priority = groupPriority(group.Valid, s.CoverageScore)
	s.Recommendations = recommendations(group, counts)
	return s
}

func engagementStrategy(counts map[Role]int) string {
	switch {
	case counts[RoleDecisionMaker] > 0:
		return StrategyExecutiveSponsor
	case counts[RoleChampion] > 0:
		return StrategyChampionLed
	case counts[RoleBlocker] > 0:
		return StrategyBlockerMitigation
	}
	return StrategyStakeholderConsensus
}

func groupPriority(valid bool, coverage float64) string {
	switch {
	case !valid:
		return PriorityLow
	case coverage >= 0.5:
		return PriorityHigh
	case coverage >= 0.3:
		return PriorityMedium
	}
	return PriorityLow
}

func recommendations(group BuyerGroup, counts map[Role]int) []Recommendation {
	recs := []Recommendation{}

	if !group.Valid {
		recs = append(recs, Recommendation{
			Priority:  PriorityHigh,
			Action:    "Promote a substitute decision maker",
			Rationale: fmt.Sprintf("Buyer group for %s is invalid: %s", group.CompanyID, group.InvalidReason),
		})
	}
	if counts[RoleChampion] == 0 {
		recs = append(recs, Recommendation{
			Priority:  PriorityMedium,
			Action:    "Identify a champion",
			Rationale: "No champions identified - need internal advocate",
		})
	}
	if counts[RoleBlocker] > 0 {
		recs = append(recs, Recommendation{
			Priority:  PriorityMedium,
			Action:    "Prepare blocker mitigation",
			Rationale: fmt.Sprintf("%d likely blocker(s) in legal, compliance or procurement roles", counts[RoleBlocker]),
		})
	}
	return recs
}
