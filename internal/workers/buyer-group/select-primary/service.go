package selectprimary

import (
	"context"
	"fmt"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
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
	if deps.Constraints.MaxTotal == 0 {
		deps.Constraints = buyergroup.DefaultConstraints()
	}
	return &Service{config: config, deps: deps, logger: deps.Logger}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	scope := input.Scope()
	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	raw := input.Candidates
	if raw == nil {
		if s.deps.Loader == nil {
			return nil, errors.NewCandidateSourceError(scope.String(), fmt.Errorf("no candidate loader configured"))
		}
		var err error
		if raw, _, err = s.deps.Loader.Load(ctx, scope); err != nil {
			return nil, errors.NewCandidateSourceError(scope.String(), err)
		}
	}

	candidates, _ := buyergroup.PartitionCandidates(raw)
	assignments := buyergroup.ClassifyAll(candidates)
	pool := assignments
	if input.MembersOnly {
		pool = buyergroup.Compose(scope.CompanyID, assignments, s.deps.Constraints).Members
	}

	out := &Output{}
	for _, a := range pool {
		if a.Role == buyergroup.RoleDecisionMaker {
			out.DecisionMakerCount++
		}
	}

	primary, ok := buyergroup.SelectPrimary(candidates, pool)
	if !ok {
		s.logger.Info("No decision maker to promote to primary", map[string]interface{}{"scope": scope.String()})
		return out, nil
	}

	out.Found = true
	out.PersonID = primary.PersonID
	out.Confidence = primary.Confidence
	out.Reasoning = primary.Reasoning
	for _, c := range candidates {
		if c.ID == primary.PersonID {
			out.FullName = c.FullName
			out.JobTitle = c.JobTitle
			out.Email = c.Email
			break
		}
	}
	return out, nil
}
