package sendreport

import (
	"context"
	stderrors "errors"

	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/store"
)

type Service struct {
	config *Config
	deps   ServiceDependencies
	logger logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &Service{config: config, deps: deps, logger: deps.Logger}
}

// Execute mails the latest stored snapshot for the company. Job recipients
// replace the configured list.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	scope := input.Scope()
	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	recipients := input.Recipients
	if len(recipients) == 0 {
		recipients = s.config.Recipients
	}
	if len(recipients) == 0 {
		return nil, errors.NewValidationError("no report recipients given or configured")
	}

	group, err := s.deps.Groups.LatestBuyerGroup(ctx, scope)
	if stderrors.Is(err, store.ErrGroupNotFound) {
		return nil, errors.NewGroupNotFoundError(scope.String())
	}
	if err != nil {
		return nil, errors.NewCandidateSourceError(scope.String(), err)
	}

	report, err := renderReport(group)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	messageID, err := s.deps.Mailer.Send(ctx, recipients, report)
	if err != nil {
		return nil, errors.NewReportSendError(err).WithMetadata("buyerGroupId", group.ID)
	}

	s.logger.Info("Buyer group report mailed", map[string]interface{}{
		"scope":        scope.String(),
		"buyerGroupId": group.ID,
		"recipients":   len(recipients),
		"valid":        group.Group.Valid,
	})
	return &Output{
		Sent:           true,
		MessageID:      messageID,
		BuyerGroupID:   group.ID,
		RecipientCount: len(recipients),
	}, nil
}
