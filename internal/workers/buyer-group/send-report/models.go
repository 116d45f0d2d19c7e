package sendreport

import (
	"context"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/store"
)

type Input struct {
	WorkspaceID string   `json:"workspaceId"`
	CompanyID   string   `json:"companyId"`
	Recipients  []string `json:"recipients,omitempty"`
}

func (in *Input) Scope() buyergroup.Scope {
	return buyergroup.Scope{WorkspaceID: in.WorkspaceID, CompanyID: in.CompanyID}
}

type Output struct {
	Sent           bool   `json:"reportSent"`
	MessageID      string `json:"reportMessageId"`
	BuyerGroupID   string `json:"reportBuyerGroupId"`
	RecipientCount int    `json:"reportRecipientCount"`
}

// GroupReader is satisfied by *store.GroupStore.
type GroupReader interface {
	LatestBuyerGroup(ctx context.Context, scope buyergroup.Scope) (*store.StoredGroup, error)
}

// Mailer is satisfied by *aws.ReportMailer.
type Mailer interface {
	Send(ctx context.Context, recipients []string, report aws.Report) (string, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	Groups GroupReader
	Mailer Mailer
}
