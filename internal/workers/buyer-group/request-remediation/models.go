package requestremediation

import (
	"context"

	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/logger"
)

type Input struct {
	WorkspaceID    string `json:"workspaceId"`
	CompanyID      string `json:"companyId"`
	Reason         string `json:"invalidReason,omitempty"`
	CandidateCount int    `json:"candidateCount,omitempty"`
	BuyerGroupID   string `json:"buyerGroupId,omitempty"`
}

type Output struct {
	RemediationRequested bool   `json:"remediationRequested"`
	RemediationMessageID string `json:"remediationMessageId"`
}

// Publisher is satisfied by *aws.RemediationPublisher.
type Publisher interface {
	Publish(ctx context.Context, req aws.RemediationRequest) (string, error)
}

type ServiceDependencies struct {
	Logger    logger.Logger
	Publisher Publisher
}
