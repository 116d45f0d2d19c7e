// internal/store/groups.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/database"

	"github.com/google/uuid"
)

var ErrGroupNotFound = errors.New("buyer group not found")

// GroupStore persists composed buyer groups. Each save is a new snapshot;
// readers take the latest one.
type GroupStore struct {
	pg  *database.PostgresClient
	now func() time.Time
}

func NewGroupStore(pg *database.PostgresClient) *GroupStore {
	return &GroupStore{pg: pg, now: func() time.Time { return time.Now().UTC() }}
}

// StoredMember is a group member joined with its person row.
type StoredMember struct {
	buyergroup.RoleAssignment
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	JobTitle string `json:"jobTitle,omitempty"`
}

// StoredGroup is one persisted snapshot.
type StoredGroup struct {
	ID        string                `json:"id"`
	Scope     buyergroup.Scope      `json:"scope"`
	Group     buyergroup.BuyerGroup `json:"group"`
	Summary   buyergroup.Summary    `json:"summary"`
	Members   []StoredMember        `json:"members"`
	CreatedAt time.Time             `json:"createdAt"`
}

const (
	insertGroupQuery = `
	INSERT INTO buyer_groups (id, workspace_id, company_id, valid, invalid_reason, total_members, dropped, summary, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertMemberQuery = `
	INSERT INTO buyer_group_members (buyer_group_id, person_id, role, confidence, reasoning, matched_pattern, position)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updatePersonRoleQuery = `
	UPDATE people SET buyer_group_role = $1, is_buyer_group_member = $2
	WHERE id = $3 AND workspace_id = $4`
)

// SaveBuyerGroup writes the group, its members and every person's role in
// one transaction and returns the snapshot id.
func (s *GroupStore) SaveBuyerGroup(ctx context.Context, scope buyergroup.Scope, group buyergroup.BuyerGroup, assignments []buyergroup.RoleAssignment) (string, error) {
	summary, err := json.Marshal(buyergroup.Summarize(group, assignments))
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	id := uuid.New().String()
	members := make(map[string]struct{}, len(group.Members))
	for _, m := range group.Members {
		members[m.PersonID] = struct{}{}
	}

	err = s.pg.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertGroupQuery,
			id, scope.WorkspaceID, scope.CompanyID, group.Valid, group.InvalidReason,
			len(group.Members), group.Dropped, summary, s.now()); err != nil {
			return fmt.Errorf("insert buyer group: %w", err)
		}

		for i, m := range group.Members {
			if _, err := tx.ExecContext(ctx, insertMemberQuery,
				id, m.PersonID, string(m.Role), m.Confidence, m.Reasoning, m.MatchedPattern, i); err != nil {
				return fmt.Errorf("insert member %s: %w", m.PersonID, err)
			}
		}

		for _, a := range assignments {
			_, member := members[a.PersonID]
			if _, err := tx.ExecContext(ctx, updatePersonRoleQuery,
				string(a.Role), member, a.PersonID, scope.WorkspaceID); err != nil {
				return fmt.Errorf("update role for %s: %w", a.PersonID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

const (
	latestGroupQuery = `
	SELECT id, valid, invalid_reason, dropped, summary, created_at
	FROM buyer_groups
	WHERE workspace_id = $1 AND company_id = $2
	ORDER BY created_at DESC
	LIMIT 1`

	groupMembersQuery = `
	SELECT m.person_id, m.role, m.confidence, m.reasoning, m.matched_pattern, p.full_name, p.email, p.job_title
	FROM buyer_group_members m
	LEFT JOIN people p ON p.id = m.person_id AND p.workspace_id = $2
	WHERE m.buyer_group_id = $1
	ORDER BY m.position`
)

// LatestBuyerGroup returns the newest snapshot for scope or ErrGroupNotFound.
func (s *GroupStore) LatestBuyerGroup(ctx context.Context, scope buyergroup.Scope) (*StoredGroup, error) {
	stored := &StoredGroup{Scope: scope}
	var (
		invalidReason sql.NullString
		summary       []byte
	)
	err := s.pg.DB.QueryRowContext(ctx, latestGroupQuery, scope.WorkspaceID, scope.CompanyID).
		Scan(&stored.ID, &stored.Group.Valid, &invalidReason, &stored.Group.Dropped, &summary, &stored.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, scope)
	}
	if err != nil {
		return nil, fmt.Errorf("query latest buyer group: %w", err)
	}
	stored.Group.CompanyID = scope.CompanyID
	stored.Group.InvalidReason = invalidReason.String
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &stored.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}

	rows, err := s.pg.DB.QueryContext(ctx, groupMembersQuery, stored.ID, scope.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	stored.Group.Members = []buyergroup.RoleAssignment{}
	stored.Members = []StoredMember{}
	for rows.Next() {
		var (
			m                         StoredMember
			role                      string
			reasoning, pattern        sql.NullString
			fullName, email, jobTitle sql.NullString
		)
		if err := rows.Scan(&m.PersonID, &role, &m.Confidence, &reasoning, &pattern, &fullName, &email, &jobTitle); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = buyergroup.Role(role)
		m.Reasoning = reasoning.String
		m.MatchedPattern = pattern.String
		m.FullName = fullName.String
		m.Email = email.String
		m.JobTitle = jobTitle.String

		stored.Members = append(stored.Members, m)
		stored.Group.Members = append(stored.Group.Members, m.RoleAssignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return stored, nil
}
