// internal/buyergroup/classifier.go
package buyergroup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	ReasonExternalFlag       = "external decision-maker flag"
	ReasonAuthorityTitle     = "authority title pattern"
	ReasonTechnicalSeniority = "technical seniority pattern"
	ReasonGatekeeper         = "gatekeeper pattern"
	ReasonNetworkConnector   = "network connector pattern"
	ReasonDefault            = "default"
)

const (
	confidenceExternalFlag = 0.95
	confidenceAuthority    = 0.9
	confidenceTechnical    = 0.8
	confidenceGatekeeper   = 0.6
	confidenceConnector    = 0.6
	confidenceDefault      = 0.5
)

// RoleAssignment is the derived role of one candidate.
type RoleAssignment struct {
	PersonID       string  `json:"personId"`
	Role           Role    `json:"role"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	MatchedPattern string  `json:"matchedPattern,omitempty"`
}

type titleRule struct {
	role       Role
	confidence float64
	reasoning  string
	patterns   []string
}

// Evaluated in order; the first rule with a matching pattern wins.
var titleRules = []titleRule{
	{
		role:       RoleDecisionMaker,
		confidence: confidenceAuthority,
		reasoning:  ReasonAuthorityTitle,
		patterns: []string{
			"ceo", "cto", "cfo", "coo", "cmo", "president", "founder",
			"vp", "vice president", "director", "head of", "chief",
		},
	},
	{
		role:       RoleChampion,
		confidence: confidenceTechnical,
		reasoning:  ReasonTechnicalSeniority,
		patterns: []string{
			"engineer", "developer", "architect", "scientist", "analyst",
			"senior", "lead", "principal",
		},
	},
	{
		role:       RoleBlocker,
		confidence: confidenceGatekeeper,
		reasoning:  ReasonGatekeeper,
		patterns: []string{
			"legal", "compliance", "procurement", "security", "finance", "audit", "risk",
		},
	},
	{
		role:       RoleIntroducer,
		confidence: confidenceConnector,
		reasoning:  ReasonNetworkConnector,
		patterns: []string{
			"partnership", "alliance", "relationship", "vendor", "liaison",
		},
	},
}

// Classify assigns exactly one role to the candidate. It never fails.
func Classify(c PersonCandidate) RoleAssignment {
	if c.IsFlaggedDecisionMaker() {
		return RoleAssignment{
			PersonID:   c.ID,
			Role:       RoleDecisionMaker,
			Confidence: confidenceExternalFlag,
			Reasoning:  ReasonExternalFlag,
		}
	}

	title := NormalizeTitle(c.JobTitle)
	if title != "" {
		for _, rule := range titleRules {
			if pattern, ok := matchAny(title, rule.patterns); ok {
				return RoleAssignment{
					PersonID:       c.ID,
					Role:           rule.role,
					Confidence:     rule.confidence,
					Reasoning:      rule.reasoning,
					MatchedPattern: pattern,
				}
			}
		}
	}

	return RoleAssignment{
		PersonID:   c.ID,
		Role:       RoleStakeholder,
		Confidence: confidenceDefault,
		Reasoning:  ReasonDefault,
	}
}

// ClassifyAll classifies every candidate, preserving input order.
func ClassifyAll(candidates []PersonCandidate) []RoleAssignment {
	out := make([]RoleAssignment, len(candidates))
	for i, c := range candidates {
		out[i] = Classify(c)
	}
	return out
}

// NormalizeTitle lower-cases a job title, strips accents, turns punctuation
// into spaces and collapses whitespace, so "Vice-President, Sales," and
// "vice president sales" compare equal.
func NormalizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}

	// Chains carry state, so each call builds its own.
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	// Only marks are removed; invalid bytes pass through unchanged.
	folded, _, _ := transform.String(stripAccents, title)
	folded = strings.ToLower(folded)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	return strings.Join(strings.Fields(cleaned), " ")
}

// matchAny does plain substring matching against a normalized title.
func matchAny(title string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if strings.Contains(title, p) {
			return p, true
		}
	}
	return "", false
}
