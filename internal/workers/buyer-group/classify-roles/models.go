package classifyroles

import (
	"context"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/logger"
)

type Input struct {
	WorkspaceID string                       `json:"workspaceId"`
	CompanyID   string                       `json:"companyId"`
	Candidates  []buyergroup.PersonCandidate `json:"candidates,omitempty"`
}

func (in *Input) Scope() buyergroup.Scope {
	return buyergroup.Scope{WorkspaceID: in.WorkspaceID, CompanyID: in.CompanyID}
}

type Output struct {
	Assignments      []buyergroup.RoleAssignment `json:"assignments"`
	RoleCounts       map[buyergroup.Role]int     `json:"roleCounts"`
	HasDecisionMaker bool                        `json:"hasDecisionMaker"`
	RejectedCount    int                         `json:"rejectedCount"`
	CandidateSource  string                      `json:"candidateSource"`
}

// CandidateSourceInline marks candidates passed in the job variables.
const CandidateSourceInline = "inline"

// CandidateLoader is satisfied by *store.CandidateLoader.
type CandidateLoader interface {
	Load(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, string, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	Loader CandidateLoader // optional when candidates always come inline
}
