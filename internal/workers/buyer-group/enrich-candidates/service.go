package enrichcandidates

import (
	"context"
	stderrors "errors"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/enrichment"
	"buyer-group-workers/internal/store"
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

// Execute looks up every candidate still missing a decision-maker flag or
// salary floor, one at a time through the client's rate limiter. A 429
// stops the run; what was enriched so far is kept.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	scope := input.Scope()
	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	limit := s.config.MaxCandidates
	if input.MaxCandidates > 0 && input.MaxCandidates < limit {
		limit = input.MaxCandidates
	}

	candidates, err := s.deps.Store.ListCandidates(ctx, scope)
	if err != nil {
		return nil, errors.NewCandidateSourceError(scope.String(), err)
	}

	provider := s.deps.Enricher.Provider()
	out := &Output{Provider: provider}
	var lastErr error
	// Rows already written stay written, so the cache is dropped on every exit path.
	defer func() {
		if out.Enriched > 0 && s.deps.Cache != nil {
			s.invalidate(ctx, scope)
		}
	}()

	for _, c := range candidates {
		if out.RateLimited || out.Considered >= limit ||
			buyergroup.ValidateCandidate(c) != nil || !enrichment.NeedsEnrichment(c) {
			out.Skipped++
			continue
		}
		out.Considered++

		result, err := s.deps.Enricher.Lookup(ctx, enrichment.LookupRequest{
			PersonID:  c.ID,
			CompanyID: scope.CompanyID,
			FullName:  c.FullName,
			Email:     c.Email,
			JobTitle:  c.JobTitle,
		})
		switch {
		case stderrors.Is(err, enrichment.ErrRateLimited):
			out.RateLimited = true
			continue
		case ctx.Err() != nil:
			return nil, errors.NewEnrichmentError(provider, ctx.Err())
		case err != nil:
			out.Failed++
			lastErr = err
			s.logger.Warn("Enrichment lookup failed", map[string]interface{}{
				"scope":    scope.String(),
				"personId": c.ID,
				"error":    err,
			})
			continue
		}

		if !result.Found {
			out.NotFound++
			continue
		}
		enriched, changed := s.deps.Enricher.Apply(c, result)
		if !changed {
			continue
		}

		if err := s.deps.Store.UpdateEnrichment(ctx, scope, store.EnrichmentUpdate{
			PersonID:          enriched.ID,
			DecisionMakerFlag: enriched.ExternalDecisionMakerFlag,
			SalaryFloor:       enriched.SalaryFloor,
			Extensions:        enriched.Extensions,
			EnrichedAt:        s.now(),
		}); err != nil {
			return nil, errors.NewPersistenceError(scope.String(), err)
		}
		out.Enriched++
	}

	if out.RateLimited && out.Enriched == 0 && out.NotFound == 0 && out.Failed == 0 {
		return nil, errors.NewEnrichmentRateLimitedError(provider)
	}
	if out.Considered > 0 && out.Failed == out.Considered {
		return nil, errors.NewEnrichmentError(provider, lastErr)
	}

	s.logger.Info("Candidates enriched", map[string]interface{}{
		"scope":       scope.String(),
		"provider":    provider,
		"considered":  out.Considered,
		"enriched":    out.Enriched,
		"notFound":    out.NotFound,
		"failed":      out.Failed,
		"rateLimited": out.RateLimited,
	})
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, scope buyergroup.Scope) {
	if err := s.deps.Cache.Invalidate(ctx, scope); err != nil {
		s.logger.Warn("Candidate cache invalidation failed", map[string]interface{}{
			"scope": scope.String(),
			"error": err,
		})
	}
}
