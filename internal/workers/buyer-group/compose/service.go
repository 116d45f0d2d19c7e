package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/common/metrics"
	"buyer-group-workers/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
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

// Execute loads, classifies and composes the group for one company, then
// persists and indexes it. An invalid group is a normal result.
func (s *Service) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	scope := input.Scope()
	ctx, span := s.startSpan(ctx, "buyer-group.compose",
		attribute.String("workspaceId", scope.WorkspaceID),
		attribute.String("companyId", scope.CompanyID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	constraints, err := input.Constraints(s.config.Constraints)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	raw, source, err := s.loadCandidates(ctx, input)
	if err != nil {
		return nil, errors.NewCandidateSourceError(scope.String(), err)
	}

	candidates, rejected := buyergroup.PartitionCandidates(raw)
	if len(rejected) > 0 {
		metrics.CandidatesRejected.Add(float64(len(rejected)))
		s.logger.Warn("Rejected malformed candidates", map[string]interface{}{
			"scope":    scope.String(),
			"rejected": len(rejected),
			"first":    rejected[0].Reason,
		})
		if len(candidates) == 0 {
			return nil, errors.NewMalformedCandidateError(len(rejected), rejectedDetails(rejected))
		}
	}

	assignments := buyergroup.ClassifyAll(candidates)
	group := buyergroup.Compose(scope.CompanyID, assignments, constraints)
	summary := buyergroup.Summarize(group, assignments)

	metrics.ObserveGroup(group.Valid, roleCountLabels(group.RoleCounts()))
	if s.deps.Telemetry != nil {
		s.deps.Telemetry.RecordGroupComposed(ctx, group.Valid, len(candidates))
	}

	groupID, err := s.deps.Groups.SaveBuyerGroup(ctx, scope, group, assignments)
	if err != nil {
		return nil, errors.NewPersistenceError(scope.String(), err)
	}

	if s.deps.Index != nil {
		doc := store.NewGroupDocument(scope, group, summary, s.now())
		if err := s.deps.Index.IndexBuyerGroup(ctx, doc); err != nil {
			return nil, errors.NewIndexError(doc.DocumentID(), err)
		}
	}

	out = &Output{
		BuyerGroupID:       groupID,
		Valid:              group.Valid,
		InvalidReason:      group.InvalidReason,
		MemberCount:        len(group.Members),
		DroppedCount:       group.Dropped,
		RejectedCount:      len(rejected),
		RoleCounts:         group.RoleCounts(),
		CandidateSource:    source,
		EngagementStrategy: summary.EngagementStrategy,
		Group:              group,
		Rejected:           rejected,
	}
	if primary, ok := buyergroup.SelectPrimary(candidates, group.Members); ok {
		out.PrimaryDecisionMaker = primary.PersonID
	}

	if !group.Valid && s.shouldRemediate(input) {
		messageID, err := s.deps.Remediator.Publish(ctx, aws.RemediationRequest{
			WorkspaceID:    scope.WorkspaceID,
			CompanyID:      scope.CompanyID,
			Reason:         group.InvalidReason,
			CandidateCount: len(candidates),
			RequestedAt:    s.now(),
		})
		if err != nil {
			return nil, errors.NewRemediationPublishError(err)
		}
		out.RemediationRequested = true
		out.RemediationMessageID = messageID
	}

	s.logger.Info("Buyer group composed", map[string]interface{}{
		"scope":       scope.String(),
		"groupId":     groupID,
		"valid":       group.Valid,
		"members":     len(group.Members),
		"dropped":     group.Dropped,
		"source":      source,
		"remediation": out.RemediationRequested,
	})
	return out, nil
}

func (s *Service) loadCandidates(ctx context.Context, input *Input) ([]buyergroup.PersonCandidate, string, error) {
	if input.Candidates != nil {
		return input.Candidates, CandidateSourceInline, nil
	}
	if s.deps.Loader == nil {
		return nil, "", fmt.Errorf("no candidate loader configured")
	}
	return s.deps.Loader.Load(ctx, input.Scope())
}

func (s *Service) shouldRemediate(input *Input) bool {
	if s.deps.Remediator == nil {
		return false
	}
	if input.Remediate != nil {
		return *input.Remediate
	}
	return s.config.RemediateInvalid
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if s.deps.Telemetry == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}
	return s.deps.Telemetry.StartSpan(ctx, name, attrs...)
}

func roleCountLabels(counts map[buyergroup.Role]int) map[string]int {
	out := make(map[string]int, len(counts))
	for role, n := range counts {
		out[string(role)] = n
	}
	return out
}

// rejectedDetails lists at most five reasons.
func rejectedDetails(rejected []buyergroup.RejectedCandidate) string {
	parts := make([]string, 0, 5)
	for i, r := range rejected {
		if i == 5 {
			parts = append(parts, fmt.Sprintf("and %d more", len(rejected)-5))
			break
		}
		parts = append(parts, fmt.Sprintf("index %d: %s", r.Index, r.Reason))
	}
	return strings.Join(parts, "; ")
}
