package requestremediation

import (
	"context"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
)

type Service struct {
	config *Config
	deps   ServiceDependencies
	logger logger.Logger
	now    func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &Service{
		config: config,
		deps:   deps,
		logger: deps.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Execute asks the enrichment pipeline to find a substitute decision maker.
// Promotion itself happens downstream.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	scope := buyergroup.Scope{WorkspaceID: input.WorkspaceID, CompanyID: input.CompanyID}
	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	reason := input.Reason
	if reason == "" {
		reason = buyergroup.InvalidReasonNoDecisionMaker
	}

	messageID, err := s.deps.Publisher.Publish(ctx, aws.RemediationRequest{
		WorkspaceID:    scope.WorkspaceID,
		CompanyID:      scope.CompanyID,
		Reason:         reason,
		CandidateCount: input.CandidateCount,
		RequestedAt:    s.now(),
	})
	if err != nil {
		return nil, errors.NewRemediationPublishError(err).WithMetadata("companyId", scope.CompanyID)
	}

	s.logger.Info("Remediation requested", map[string]interface{}{
		"scope":        scope.String(),
		"reason":       reason,
		"buyerGroupId": input.BuyerGroupID,
		"messageId":    messageID,
	})
	return &Output{RemediationRequested: true, RemediationMessageID: messageID}, nil
}
