// internal/buyergroup/classifier_test.go
package buyergroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		candidate  PersonCandidate
		role       Role
		confidence float64
		reasoning  string
		pattern    string
	}{
		{
			name:       "ceo title",
			candidate:  PersonCandidate{ID: "p1", JobTitle: "CEO"},
			role:       RoleDecisionMaker,
			confidence: 0.9,
			reasoning:  "authority title pattern",
			pattern:    "ceo",
		},
		{
			name:       "flag overrides title",
			candidate:  PersonCandidate{ID: "p2", JobTitle: "Sales Associate", ExternalDecisionMakerFlag: boolPtr(true)},
			role:       RoleDecisionMaker,
			confidence: 0.95,
			reasoning:  "external decision-maker flag",
		},
		{
			name:       "false flag falls through to title",
			candidate:  PersonCandidate{ID: "p3", JobTitle: "Software Engineer", ExternalDecisionMakerFlag: boolPtr(false)},
			role:       RoleChampion,
			confidence: 0.8,
			reasoning:  "technical seniority pattern",
			pattern:    "engineer",
		},
		{
			name:       "empty title",
			candidate:  PersonCandidate{ID: "p4"},
			role:       RoleStakeholder,
			confidence: 0.5,
			reasoning:  "default",
		},
		{
			name:       "whitespace title",
			candidate:  PersonCandidate{ID: "p5", JobTitle: "   "},
			role:       RoleStakeholder,
			confidence: 0.5,
			reasoning:  "default",
		},
		{
			name:       "gatekeeper",
			candidate:  PersonCandidate{ID: "p6", JobTitle: "Procurement Manager"},
			role:       RoleBlocker,
			confidence: 0.6,
			reasoning:  "gatekeeper pattern",
			pattern:    "procurement",
		},
		{
			name:       "connector",
			candidate:  PersonCandidate{ID: "p7", JobTitle: "Partnerships Manager"},
			role:       RoleIntroducer,
			confidence: 0.6,
			reasoning:  "network connector pattern",
			pattern:    "partnership",
		},
		{
			name:       "no pattern",
			candidate:  PersonCandidate{ID: "p8", JobTitle: "Office Manager"},
			role:       RoleStakeholder,
			confidence: 0.5,
			reasoning:  "default",
		},
		{
			name:       "authority before technical",
			candidate:  PersonCandidate{ID: "p9", JobTitle: "VP of Engineering, Chief Architect"},
			role:       RoleDecisionMaker,
			confidence: 0.9,
			reasoning:  "authority title pattern",
			pattern:    "vp",
		},
		{
			name:       "authority before technical reversed",
			candidate:  PersonCandidate{ID: "p10", JobTitle: "Chief Architect, VP of Engineering"},
			role:       RoleDecisionMaker,
			confidence: 0.9,
			reasoning:  "authority title pattern",
			pattern:    "vp",
		},
		{
			name:       "technical before gatekeeper",
			candidate:  PersonCandidate{ID: "p11", JobTitle: "Senior Security Analyst"},
			role:       RoleChampion,
			confidence: 0.8,
			reasoning:  "technical seniority pattern",
			pattern:    "analyst",
		},
		{
			name:       "comma separated title",
			candidate:  PersonCandidate{ID: "p12", JobTitle: "Vice-President, Sales,"},
			role:       RoleDecisionMaker,
			confidence: 0.9,
			reasoning:  "authority title pattern",
			pattern:    "president",
		},
		{
			name:       "accented title",
			candidate:  PersonCandidate{ID: "p13", JobTitle: "Directeur Général"},
			role:       RoleStakeholder,
			confidence: 0.5,
			reasoning:  "default",
		},
		{
			name:       "accented technical title",
			candidate:  PersonCandidate{ID: "p14", JobTitle: "Développeur Sénior"},
			role:       RoleChampion,
			confidence: 0.8,
			reasoning:  "technical seniority pattern",
			pattern:    "senior",
		},
		{
			name:       "upper case head of",
			candidate:  PersonCandidate{ID: "p15", JobTitle: "HEAD   OF   PRODUCT"},
			role:       RoleDecisionMaker,
			confidence: 0.9,
			reasoning:  "authority title pattern",
			pattern:    "head of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.candidate)

			assert.Equal(t, tt.candidate.ID, got.PersonID)
			assert.Equal(t, tt.role, got.Role)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, tt.reasoning, got.Reasoning)
			assert.Equal(t, tt.pattern, got.MatchedPattern)
		})
	}
}

func TestClassify_TotalAndIdempotent(t *testing.T) {
	titles := []string{
		"", " ", "CEO", "cto", "Head of Sales", "Staff Engineer", "Legal Counsel",
		"Vendor Manager", "Receptionist", "???", "Ünïcödé Tïtle", "VP, Finance",
		"coordinator", "Lead Auditor", "Relationship Banker", "デザイナー",
	}

	for _, title := range titles {
		for _, flag := range []*bool{nil, boolPtr(false), boolPtr(true)} {
			c := PersonCandidate{ID: "p", JobTitle: title, ExternalDecisionMakerFlag: flag}

			first := Classify(c)
			second := Classify(c)

			assert.True(t, first.Role.Valid(), "title %q produced role %q", title, first.Role)
			assert.GreaterOrEqual(t, first.Confidence, 0.0)
			assert.LessOrEqual(t, first.Confidence, 1.0)
			assert.NotEmpty(t, first.Reasoning)
			assert.Equal(t, first, second)
		}
	}
}

func TestClassifyAll_PreservesOrder(t *testing.T) {
	candidates := []PersonCandidate{
		{ID: "a", JobTitle: "Director of IT"},
		{ID: "b", JobTitle: "Developer"},
		{ID: "c"},
	}

	got := ClassifyAll(candidates)

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].PersonID)
	assert.Equal(t, RoleDecisionMaker, got[0].Role)
	assert.Equal(t, "b", got[1].PersonID)
	assert.Equal(t, RoleChampion, got[1].Role)
	assert.Equal(t, "c", got[2].PersonID)
	assert.Equal(t, RoleStakeholder, got[2].Role)

	assert.Empty(t, ClassifyAll(nil))
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"CEO", "ceo"},
		{"Vice-President, Sales,", "vice president sales"},
		{"Director, Sales", "director sales"},
		{"  Head\tof\nMarketing ", "head of marketing"},
		{"Directeur Général", "directeur general"},
		{"R&D / Lead", "r d lead"},
		{"\xffCEO", "ceo"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}
