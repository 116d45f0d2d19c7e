package enrichcandidates

import (
	"context"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/enrichment"
	"buyer-group-workers/internal/store"
)

type Input struct {
	WorkspaceID string `json:"workspaceId"`
	CompanyID   string `json:"companyId"`
	// MaxCandidates lowers the configured per-job limit.
	MaxCandidates int `json:"maxCandidates,omitempty"`
}

func (in *Input) Scope() buyergroup.Scope {
	return buyergroup.Scope{WorkspaceID: in.WorkspaceID, CompanyID: in.CompanyID}
}

type Output struct {
	Provider    string `json:"enrichmentProvider"`
	Considered  int    `json:"enrichmentConsidered"`
	Enriched    int    `json:"enrichmentEnriched"`
	NotFound    int    `json:"enrichmentNotFound"`
	Failed      int    `json:"enrichmentFailed"`
	Skipped     int    `json:"enrichmentSkipped"`
	RateLimited bool   `json:"enrichmentRateLimited"`
}

// CandidateStore is satisfied by *store.CandidateStore.
type CandidateStore interface {
	ListCandidates(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, error)
	UpdateEnrichment(ctx context.Context, scope buyergroup.Scope, update store.EnrichmentUpdate) error
}

// Enricher is satisfied by *enrichment.Client.
type Enricher interface {
	Provider() string
	Lookup(ctx context.Context, req enrichment.LookupRequest) (enrichment.LookupResult, error)
	Apply(candidate buyergroup.PersonCandidate, result enrichment.LookupResult) (buyergroup.PersonCandidate, bool)
}

// CacheInvalidator is satisfied by *store.CandidateLoader.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, scope buyergroup.Scope) error
}

type ServiceDependencies struct {
	Logger   logger.Logger
	Store    CandidateStore
	Enricher Enricher
	Cache    CacheInvalidator // optional
}
