package requestremediation

import "buyer-group-workers/internal/common/validation"

var inputSchema = validation.MustSchema(`{
	"type": "object",
	"required": ["workspaceId", "companyId"],
	"properties": {` + validation.ScopeProperties + `,
		"invalidReason": {"type": "string"},
		"candidateCount": {"type": "integer", "minimum": 0},
		"buyerGroupId": {"type": "string"}
	}
}`)
