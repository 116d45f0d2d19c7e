package compose

import (
	"context"
	"fmt"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Input struct {
	WorkspaceID string `json:"workspaceId"`
	CompanyID   string `json:"companyId"`
	// Candidates, when present, replace the stored candidates.
	Candidates []buyergroup.PersonCandidate `json:"candidates,omitempty"`
	MaxTotal   *int                         `json:"maxTotal,omitempty"`
	RoleCaps   map[string]int               `json:"roleCaps,omitempty"`
	// Remediate overrides the configured remediation switch.
	Remediate *bool `json:"remediate,omitempty"`
}

func (in *Input) Scope() buyergroup.Scope {
	return buyergroup.Scope{WorkspaceID: in.WorkspaceID, CompanyID: in.CompanyID}
}

// Constraints applies per-job overrides on top of base.
func (in *Input) Constraints(base buyergroup.GroupConstraints) (buyergroup.GroupConstraints, error) {
	out := buyergroup.GroupConstraints{MaxTotal: base.MaxTotal, RoleCaps: make(map[buyergroup.Role]int, len(base.RoleCaps))}
	for role, limit := range base.RoleCaps {
		out.RoleCaps[role] = limit
	}
	if in.MaxTotal != nil {
		out.MaxTotal = *in.MaxTotal
	}
	for name, limit := range in.RoleCaps {
		role, err := buyergroup.ParseRole(name)
		if err != nil {
			return buyergroup.GroupConstraints{}, fmt.Errorf("roleCaps: %w", err)
		}
		out.RoleCaps[role] = limit
	}
	if err := out.Validate(); err != nil {
		return buyergroup.GroupConstraints{}, err
	}
	return out, nil
}

type Output struct {
	BuyerGroupID         string                         `json:"buyerGroupId"`
	Valid                bool                           `json:"buyerGroupValid"`
	InvalidReason        string                         `json:"invalidReason,omitempty"`
	MemberCount          int                            `json:"memberCount"`
	DroppedCount         int                            `json:"droppedCount"`
	RejectedCount        int                            `json:"rejectedCount"`
	RoleCounts           map[buyergroup.Role]int        `json:"roleCounts"`
	PrimaryDecisionMaker string                         `json:"primaryDecisionMaker,omitempty"`
	CandidateSource      string                         `json:"candidateSource"`
	EngagementStrategy   string                         `json:"engagementStrategy"`
	RemediationRequested bool                           `json:"remediationRequested"`
	RemediationMessageID string                         `json:"remediationMessageId,omitempty"`
	Group                buyergroup.BuyerGroup          `json:"-"`
	Rejected             []buyergroup.RejectedCandidate `json:"-"`
}

// CandidateSourceInline marks candidates passed in the job variables.
const CandidateSourceInline = "inline"

type CandidateLoader interface {
	Load(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, string, error)
}

type GroupSaver interface {
	SaveBuyerGroup(ctx context.Context, scope buyergroup.Scope, group buyergroup.BuyerGroup, assignments []buyergroup.RoleAssignment) (string, error)
}

type GroupIndexer interface {
	IndexBuyerGroup(ctx context.Context, doc store.GroupDocument) error
}

// Remediator requests a substitute decision maker for an invalid group.
type Remediator interface {
	Publish(ctx context.Context, req aws.RemediationRequest) (string, error)
}

// Telemetry is satisfied by *observability.Observability.
type Telemetry interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordGroupComposed(ctx context.Context, valid bool, candidates int)
}

type ServiceDependencies struct {
	Logger     logger.Logger
	Loader     CandidateLoader
	Groups     GroupSaver
	Index      GroupIndexer // optional
	Remediator Remediator   // optional
	Telemetry  Telemetry    // optional
}
