package synccrm

import (
	"context"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/common/zoho"
	"buyer-group-workers/internal/store"
)

type Input struct {
	WorkspaceID string `json:"workspaceId"`
	CompanyID   string `json:"companyId"`
}

func (in *Input) Scope() buyergroup.Scope {
	return buyergroup.Scope{WorkspaceID: in.WorkspaceID, CompanyID: in.CompanyID}
}

type Output struct {
	BuyerGroupID   string `json:"crmBuyerGroupId"`
	Matched        int    `json:"crmMatched"`
	Updated        int    `json:"crmUpdated"`
	Unchanged      int    `json:"crmUnchanged"`
	Failed         int    `json:"crmFailed"`
	Unmatched      int    `json:"crmUnmatched"`
	SkippedNoEmail int    `json:"crmSkippedNoEmail"`
}

// GroupReader is satisfied by *store.GroupStore.
type GroupReader interface {
	LatestBuyerGroup(ctx context.Context, scope buyergroup.Scope) (*store.StoredGroup, error)
}

// CRM is satisfied by *zoho.CRMClient.
type CRM interface {
	SearchContacts(ctx context.Context, email string) ([]zoho.Contact, error)
	UpdateContactRoles(ctx context.Context, updates []zoho.RoleUpdate) ([]zoho.UpdateResult, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	Groups GroupReader
	CRM    CRM
}
