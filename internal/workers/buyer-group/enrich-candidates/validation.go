package enrichcandidates

import "buyer-group-workers/internal/common/validation"

var inputSchema = validation.MustSchema(`{
	"type": "object",
	"required": ["workspaceId", "companyId"],
	"properties": {` + validation.ScopeProperties + `,
		"maxCandidates": {"type": "integer", "minimum": 1}
	}
}`)
