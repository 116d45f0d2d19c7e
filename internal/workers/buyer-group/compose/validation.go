package compose

import "buyer-group-workers/internal/common/validation"

var inputSchema = validation.MustSchema(`{
	"type": "object",
	"required": ["workspaceId", "companyId"],
	"properties": {` + validation.ScopeProperties + `,
		"candidates": {"type": "array", "items": ` + validation.CandidateSchema + `},
		"maxTotal": {"type": "integer", "minimum": 1},
		"roleCaps": {"type": "object", "additionalProperties": {"type": "integer", "minimum": 0}},
		"remediate": {"type": "boolean"}
	}
}`)
