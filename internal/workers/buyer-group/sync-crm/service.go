package synccrm

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"

	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/common/zoho"
	"buyer-group-workers/internal/store"
)

const statusSuccess = "success"

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

// Execute writes each member's role to the CRM contact with the same email.
// Contacts that already carry the role and confidence are left alone.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	scope := input.Scope()
	if err := scope.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	group, err := s.deps.Groups.LatestBuyerGroup(ctx, scope)
	if stderrors.Is(err, store.ErrGroupNotFound) {
		return nil, errors.NewGroupNotFoundError(scope.String())
	}
	if err != nil {
		return nil, errors.NewCandidateSourceError(scope.String(), err)
	}

	out := &Output{BuyerGroupID: group.ID}
	var updates []zoho.RoleUpdate
	seen := make(map[string]struct{})

	for _, m := range group.Members {
		if strings.TrimSpace(m.Email) == "" {
			out.SkippedNoEmail++
			continue
		}
		contacts, err := s.deps.CRM.SearchContacts(ctx, m.Email)
		if err != nil {
			return nil, errors.NewCRMSyncError(err).WithMetadata("personId", m.PersonID)
		}
		contact, ok := pickContact(contacts, m.Email)
		if !ok {
			out.Unmatched++
			continue
		}
		if _, dup := seen[contact.ID]; dup {
			continue
		}
		seen[contact.ID] = struct{}{}
		out.Matched++

		role := m.Role.DisplayName()
		if contact.BuyerGroupRole == role && contact.BuyerGroupConfidence != nil &&
			math.Abs(*contact.BuyerGroupConfidence-m.Confidence) < 0.005 {
			out.Unchanged++
			continue
		}
		updates = append(updates, zoho.RoleUpdate{ContactID: contact.ID, Role: role, Confidence: m.Confidence})
	}

	if len(updates) > 0 {
		results, err := s.deps.CRM.UpdateContactRoles(ctx, updates)
		if err != nil {
			return nil, errors.NewCRMSyncError(err).WithMetadata("buyerGroupId", group.ID)
		}
		var firstFailure string
		for i, r := range results {
			if strings.EqualFold(r.Status, statusSuccess) {
				out.Updated++
				continue
			}
			out.Failed++
			if firstFailure == "" {
				firstFailure = fmt.Sprintf("%s: %s", r.Code, r.Message)
			}
			s.logger.Warn("CRM contact update rejected", map[string]interface{}{
				"contactId": updates[i].ContactID,
				"code":      r.Code,
				"message":   r.Message,
			})
		}
		if out.Updated == 0 {
			return nil, errors.NewCRMSyncError(fmt.Errorf("all %d contact updates rejected, first: %s", out.Failed, firstFailure))
		}
	}

	s.logger.Info("Buyer group synced to CRM", map[string]interface{}{
		"scope":          scope.String(),
		"buyerGroupId":   group.ID,
		"matched":        out.Matched,
		"updated":        out.Updated,
		"unchanged":      out.Unchanged,
		"failed":         out.Failed,
		"unmatched":      out.Unmatched,
		"skippedNoEmail": out.SkippedNoEmail,
	})
	return out, nil
}

// pickContact prefers an exact email match over the search's first hit.
func pickContact(contacts []zoho.Contact, email string) (zoho.Contact, bool) {
	for _, c := range contacts {
		if c.ID != "" && strings.EqualFold(c.Email, email) {
			return c, true
		}
	}
	for _, c := range contacts {
		if c.ID != "" {
			return c, true
		}
	}
	return zoho.Contact{}, false
}
