package sendreport

import "buyer-group-workers/internal/common/validation"

var inputSchema = validation.MustSchema(`{
	"type": "object",
	"required": ["workspaceId", "companyId"],
	"properties": {` + validation.ScopeProperties + `,
		"recipients": {"type": "array", "items": {"type": "string", "format": "email"}}
	}
}`)
