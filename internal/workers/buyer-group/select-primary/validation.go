package selectprimary

import "buyer-group-workers/internal/common/validation"

var inputSchema = validation.MustSchema(`{
	"type": "object",
	"required": ["workspaceId", "companyId"],
	"properties": {` + validation.ScopeProperties + `,
		"candidates": {"type": "array", "items": ` + validation.CandidateSchema + `},
		"membersOnly": {"type": "boolean"}
	}
}`)
