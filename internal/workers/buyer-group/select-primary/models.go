package selectprimary

import (
	"context"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/logger"
)

type Input struct {
	WorkspaceID string                       `json:"workspaceId"`
	CompanyID   string                       `json:"companyId"`
	Candidates  []buyergroup.PersonCandidate `json:"candidates,omitempty"`
	// MembersOnly restricts the choice to members of the composed group.
	MembersOnly bool `json:"membersOnly,omitempty"`
}

func (in *Input) Scope() buyergroup.Scope {
	return buyergroup.Scope{WorkspaceID: in.WorkspaceID, CompanyID: in.CompanyID}
}

// Output reports the primary decision maker. Found is false when the company
// has no decision maker; that is a normal outcome.
type Output struct {
	Found              bool    `json:"primaryFound"`
	PersonID           string  `json:"primaryPersonId,omitempty"`
	FullName           string  `json:"primaryFullName,omitempty"`
	JobTitle           string  `json:"primaryJobTitle,omitempty"`
	Email              string  `json:"primaryEmail,omitempty"`
	Confidence         float64 `json:"primaryConfidence,omitempty"`
	Reasoning          string  `json:"primaryReasoning,omitempty"`
	DecisionMakerCount int     `json:"decisionMakerCount"`
}

// CandidateLoader is satisfied by *store.CandidateLoader.
type CandidateLoader interface {
	Load(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, string, error)
}

type ServiceDependencies struct {
	Logger      logger.Logger
	Loader      CandidateLoader
	Constraints buyergroup.GroupConstraints
}
