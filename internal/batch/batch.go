// Package batch composes buyer groups for many companies of one workspace
// outside the process engine.
package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/workers/buyer-group/compose"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Result is the outcome for one company. Exactly one of Output and Err is set.
type Result struct {
	CompanyID string          `json:"companyId"`
	Output    *compose.Output `json:"output,omitempty"`
	Err       error           `json:"-"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// Report keeps results in the order the companies were given.
type Report struct {
	WorkspaceID string   `json:"workspaceId"`
	Results     []Result `json:"results"`
	Valid       int      `json:"valid"`
	Invalid     int      `json:"invalid"`
	Failed      int      `json:"failed"`
	Interrupted int      `json:"interrupted,omitempty"`
}

type Runner struct {
	executor    compose.Executor
	logger      logger.Logger
	concurrency int
}

func NewRunner(executor compose.Executor, log logger.Logger, concurrency int) *Runner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{executor: executor, logger: log, concurrency: concurrency}
}

// Run composes every company with at most concurrency groups in flight. A
// failing company does not stop the others; only cancellation of ctx does.
func (r *Runner) Run(ctx context.Context, workspaceID string, companyIDs []string) (*Report, error) {
	companies := uniqueCompanies(companyIDs)
	if strings.TrimSpace(workspaceID) == "" {
		return nil, fmt.Errorf("workspace id is required")
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("no company ids given")
	}

	report := &Report{WorkspaceID: workspaceID, Results: make([]Result, len(companies))}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, companyID := range companies {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			out, err := r.executor.Execute(ctx, &compose.Input{WorkspaceID: workspaceID, CompanyID: companyID})
			res := Result{CompanyID: companyID, Output: out, Err: err, Duration: time.Since(start)}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Output = nil
				res.Error = errors.Normalize(err).Error()
				report.Failed++
				r.logger.Warn("Company failed", map[string]interface{}{
					"workspaceId": workspaceID,
					"companyId":   companyID,
					"error":       err.Error(),
				})
			case out.Valid:
				report.Valid++
			default:
				report.Invalid++
			}
			report.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// Companies never started still get a slot naming them.
		for i := range report.Results {
			if report.Results[i].CompanyID != "" {
				continue
			}
			report.Results[i] = Result{
				CompanyID: companies[i],
				Err:       err,
				Error:     "interrupted before start: " + err.Error(),
			}
			report.Interrupted++
		}
		return report, fmt.Errorf("batch interrupted: %w", err)
	}

	r.logger.Info("Batch composition finished", map[string]interface{}{
		"workspaceId": workspaceID,
		"companies":   len(companies),
		"valid":       report.Valid,
		"invalid":     report.Invalid,
		"failed":      report.Failed,
	})
	return report, nil
}

func uniqueCompanies(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// CandidateLoader is satisfied by *store.CandidateLoader.
type CandidateLoader interface {
	Load(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, string, error)
}

// DryRun composes groups from stored candidates without saving, indexing
// or remediating anything.
type DryRun struct {
	Loader      CandidateLoader
	Constraints buyergroup.GroupConstraints
}

func (d *DryRun) Execute(ctx context.Context, input *compose.Input) (*compose.Output, error) {
	scope := input.Scope()
	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	raw, source, err := d.Loader.Load(ctx, scope)
	if err != nil {
		return nil, errors.NewCandidateSourceError(scope.String(), err)
	}

	candidates, rejected := buyergroup.PartitionCandidates(raw)
	if len(candidates) == 0 && len(rejected) > 0 {
		return nil, errors.NewMalformedCandidateError(len(rejected), rejected[0].Reason)
	}
	assignments := buyergroup.ClassifyAll(candidates)
	group := buyergroup.Compose(scope.CompanyID, assignments, d.Constraints)

	out := &compose.Output{
		Valid:              group.Valid,
		InvalidReason:      group.InvalidReason,
		MemberCount:        len(group.Members),
		DroppedCount:       group.Dropped,
		RejectedCount:      len(rejected),
		RoleCounts:         group.RoleCounts(),
		CandidateSource:    source,
		EngagementStrategy: buyergroup.Summarize(group, assignments).EngagementStrategy,
		Group:              group,
		Rejected:           rejected,
	}
	if primary, ok := buyergroup.SelectPrimary(candidates, group.Members); ok {
		out.PrimaryDecisionMaker = primary.PersonID
	}
	return out, nil
}
