// internal/store/candidates.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"buyer-group-workers/internal/buyergroup"
)

var ErrCandidateNotFound = errors.New("candidate not found")

// CandidateStore reads and enriches people rows in Postgres.
type CandidateStore struct {
	db *sql.DB
}

func NewCandidateStore(db *sql.DB) *CandidateStore {
	return &CandidateStore{db: db}
}

const listCandidatesQuery = `
	SELECT id, full_name, job_title, email, decision_maker_flag, salary_floor, extensions
	FROM people
	WHERE workspace_id = $1 AND company_id = $2 AND deleted_at IS NULL
	ORDER BY created_at, id`

// ListCandidates returns the company's people in a stable order. Rows with an
// unreadable extensions document fail the whole call.
func (s *CandidateStore) ListCandidates(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, error) {
	rows, err := s.db.QueryContext(ctx, listCandidatesQuery, scope.WorkspaceID, scope.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []buyergroup.PersonCandidate{}
	for rows.Next() {
		var (
			c          buyergroup.PersonCandidate
			fullName   sql.NullString
			jobTitle   sql.NullString
			email      sql.NullString
			flag       sql.NullBool
			salary     sql.NullFloat64
			extensions []byte
		)
		if err := rows.Scan(&c.ID, &fullName, &jobTitle, &email, &flag, &salary, &extensions); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.FullName = fullName.String
		c.JobTitle = jobTitle.String
		c.Email = email.String
		if flag.Valid {
			v := flag.Bool
			c.ExternalDecisionMakerFlag = &v
		}
		if salary.Valid {
			v := salary.Float64
			c.SalaryFloor = &v
		}
		if c.Extensions, err = buyergroup.DecodeExtensions(extensions); err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// EnrichmentUpdate is the result of one provider lookup.
type EnrichmentUpdate struct {
	PersonID          string
	DecisionMakerFlag *bool
	SalaryFloor       *float64
	Extensions        buyergroup.CandidateExtensions
	EnrichedAt        time.Time
}

const updateEnrichmentQuery = `
	UPDATE people
	SET decision_maker_flag = $1, salary_floor = $2, extensions = $3, last_enriched = $4
	WHERE id = $5 AND workspace_id = $6`

// UpdateEnrichment writes provider results for one person.
func (s *CandidateStore) UpdateEnrichment(ctx context.Context, scope buyergroup.Scope, update EnrichmentUpdate) error {
	ext, err := update.Extensions.Encode()
	if err != nil {
		return fmt.Errorf("encode extensions: %w", err)
	}

	var flag sql.NullBool
	if update.DecisionMakerFlag != nil {
		flag = sql.NullBool{Bool: *update.DecisionMakerFlag, Valid: true}
	}
	var salary sql.NullFloat64
	if update.SalaryFloor != nil {
		salary = sql.NullFloat64{Float64: *update.SalaryFloor, Valid: true}
	}
	enrichedAt := update.EnrichedAt
	if enrichedAt.IsZero() {
		enrichedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, updateEnrichmentQuery,
		flag, salary, ext, enrichedAt, update.PersonID, scope.WorkspaceID)
	if err != nil {
		return fmt.Errorf("update enrichment for %s: %w", update.PersonID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrichment for %s: %w", update.PersonID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, update.PersonID)
	}
	return nil
}
