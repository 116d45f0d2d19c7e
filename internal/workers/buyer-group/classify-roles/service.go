package classifyroles

import (
	"context"
	"fmt"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/common/metrics"
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

// Execute classifies every well-formed candidate. Nothing is persisted.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	scope := input.Scope()
	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	raw, source := input.Candidates, CandidateSourceInline
	if raw == nil {
		if s.deps.Loader == nil {
			return nil, errors.NewCandidateSourceError(scope.String(), fmt.Errorf("no candidate loader configured"))
		}
		var err error
		raw, source, err = s.deps.Loader.Load(ctx, scope)
		if err != nil {
			return nil, errors.NewCandidateSourceError(scope.String(), err)
		}
	}

	candidates, rejected := buyergroup.PartitionCandidates(raw)
	if len(rejected) > 0 {
		metrics.CandidatesRejected.Add(float64(len(rejected)))
		s.logger.Warn("Rejected malformed candidates", map[string]interface{}{
			"scope":    scope.String(),
			"rejected": len(rejected),
		})
	}

	assignments := buyergroup.ClassifyAll(candidates)
	counts := make(map[buyergroup.Role]int, len(buyergroup.RolesByPriority))
	for _, a := range assignments {
		counts[a.Role]++
		metrics.RoleAssignments.WithLabelValues(string(a.Role)).Inc()
	}

	s.logger.Debug("Candidates classified", map[string]interface{}{
		"scope":          scope.String(),
		"candidates":     len(candidates),
		"decisionMakers": counts[buyergroup.RoleDecisionMaker],
	})

	return &Output{
		Assignments:      assignments,
		RoleCounts:       counts,
		HasDecisionMaker: counts[buyergroup.RoleDecisionMaker] > 0,
		RejectedCount:    len(rejected),
		CandidateSource:  source,
	}, nil
}
