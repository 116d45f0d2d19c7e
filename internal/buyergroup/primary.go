// internal/buyergroup/primary.go
package buyergroup

import "strings"

// Authority keyword ranks used to break ties between decision makers.
const (
	authorityNone = iota
	authorityDirector
	authorityVP
	authorityPresident
	authorityChief
	authorityCEO
)

// C-suite acronyms other than CEO. Matched as whole words so "director"
// does not read as "cto".
var chiefAcronyms = []string{"cto", "cfo", "coo", "cmo"}

func hasWord(title string, words ...string) bool {
	for _, field := range strings.Fields(title) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}

// AuthorityRank scores the strongest authority keyword in a title:
// CEO > Chief > President > VP > Director. CTO, CFO, COO and CMO rank as
// Chief; "Vice president" ranks as VP.
func AuthorityRank(jobTitle string) int {
	title := NormalizeTitle(jobTitle)
	if title == "" {
		return authorityNone
	}

	switch {
	case strings.Contains(title, "ceo"), strings.Contains(title, "chief executive"):
		return authorityCEO
	case strings.Contains(title, "chief"), hasWord(title, chiefAcronyms...):
		return authorityChief
	case strings.Contains(strings.ReplaceAll(title, "vice president", ""), "president"):
		return authorityPresident
	case strings.Contains(title, "vp"), strings.Contains(title, "vice president"):
		return authorityVP
	case strings.Contains(title, "director"):
		return authorityDirector
	}
	return authorityNone
}

type primaryCandidate struct {
	assignment RoleAssignment
	flagged    bool
	salary     float64
	hasSalary  bool
	rank       int
	order      int
}

// outranks applies the tie-break axes in order: external flag, salary floor,
// authority keyword, input order.
func (p primaryCandidate) outranks(q primaryCandidate) bool {
	if p.assignment.Confidence != q.assignment.Confidence {
		return p.assignment.Confidence > q.assignment.Confidence
	}
	if p.flagged != q.flagged {
		return p.flagged
	}
	if p.hasSalary != q.hasSalary {
		return p.hasSalary
	}
	if p.hasSalary && p.salary != q.salary {
		return p.salary > q.salary
	}
	if p.rank != q.rank {
		return p.rank > q.rank
	}
	return p.order < q.order
}

// SelectPrimary picks the single primary decision maker. Only decision
// makers with the highest confidence compete; the second result is false
// when there is none.
func SelectPrimary(candidates []PersonCandidate, assignments []RoleAssignment) (RoleAssignment, bool) {
	byID := make(map[string]PersonCandidate, len(candidates))
	for _, c := range candidates {
		if _, exists := byID[c.ID]; !exists {
			byID[c.ID] = c
		}
	}

	var best *primaryCandidate
	for i, a := range assignments {
		if a.Role != RoleDecisionMaker {
			continue
		}
		c := byID[a.PersonID]
		pc := primaryCandidate{
			assignment: a,
			flagged:    c.IsFlaggedDecisionMaker(),
			rank:       AuthorityRank(c.JobTitle),
			order:      i,
		}
		if c.SalaryFloor != nil {
			pc.salary = *c.SalaryFloor
			pc.hasSalary = true
		}
		if best == nil || pc.outranks(*best) {
			best = &pc
		}
	}

	if best == nil {
		return RoleAssignment{}, false
	}
	return best.assignment, true
}
