// internal/store/loader.go
package store

import (
	"context"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/common/metrics"
)

// CandidateSource lists a company's candidates from the system of record.
type CandidateSource interface {
	ListCandidates(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, error)
}

// CandidateCacher is the cache side of CandidateLoader.
type CandidateCacher interface {
	Get(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, bool, error)
	Set(ctx context.Context, scope buyergroup.Scope, candidates []buyergroup.PersonCandidate) error
	Invalidate(ctx context.Context, scope buyergroup.Scope) error
}

// Load origins reported by CandidateLoader.
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

// CandidateLoader reads through the cache into the source. Cache failures
// are logged and never fail a load.
type CandidateLoader struct {
	source CandidateSource
	cache  CandidateCacher
	logger logger.Logger
}

// NewCandidateLoader accepts a nil cache.
func NewCandidateLoader(source CandidateSource, cache CandidateCacher, log logger.Logger) *CandidateLoader {
	return &CandidateLoader{source: source, cache: cache, logger: log}
}

func (l *CandidateLoader) Load(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, string, error) {
	if l.cache != nil {
		candidates, ok, err := l.cache.Get(ctx, scope)
		switch {
		case err != nil:
			metrics.CandidateCacheLookups.WithLabelValues("error").Inc()
			l.logger.Warn("candidate cache read failed", map[string]interface{}{
				"scope": scope.String(),
				"error": err,
			})
		case ok:
			metrics.CandidateCacheLookups.WithLabelValues("hit").Inc()
			return candidates, SourceCache, nil
		default:
			metrics.CandidateCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	candidates, err := l.source.ListCandidates(ctx, scope)
	if err != nil {
		return nil, "", err
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, scope, candidates); err != nil {
			l.logger.Warn("candidate cache write failed", map[string]interface{}{
				"scope": scope.String(),
				"error": err,
			})
		}
	}
	return candidates, SourceDatabase, nil
}

// Invalidate drops the cached candidates for scope.
func (l *CandidateLoader) Invalidate(ctx context.Context, scope buyergroup.Scope) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ctx, scope)
}
