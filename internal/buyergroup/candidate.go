// internal/buyergroup/candidate.go
package buyergroup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ExtensionsSchemaVersion is the only CandidateExtensions layout this package reads.
const ExtensionsSchemaVersion = 1

var (
	ErrMalformedCandidate   = errors.New("malformed candidate")
	ErrUnsupportedExtension = errors.New("unsupported candidate extensions version")
)

// Scope identifies the company a buyer group is computed for. Every harness
// passes it explicitly.
type Scope struct {
	WorkspaceID string `json:"workspaceId"`
	CompanyID   string `json:"companyId"`
}

func (s Scope) Validate() error {
	if strings.TrimSpace(s.WorkspaceID) == "" {
		return fmt.Errorf("workspaceId is required")
	}
	if strings.TrimSpace(s.CompanyID) == "" {
		return fmt.Errorf("companyId is required")
	}
	return nil
}

func (s Scope) String() string {
	return s.WorkspaceID + "/" + s.CompanyID
}

// PersonCandidate is one person at the target company.
type PersonCandidate struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	JobTitle string `json:"jobTitle,omitempty"`
	Email    string `json:"email,omitempty"`

	// ExternalDecisionMakerFlag comes from an enrichment provider. A true
	// value is authoritative.
	ExternalDecisionMakerFlag *bool `json:"externalDecisionMakerFlag,omitempty"`

	// SalaryFloor is only used to pick a primary decision maker.
	SalaryFloor *float64 `json:"salaryFloor,omitempty"`

	Extensions CandidateExtensions `json:"extensions"`
}

// IsFlaggedDecisionMaker reports whether the external flag is present and true.
func (c PersonCandidate) IsFlaggedDecisionMaker() bool {
	return c.ExternalDecisionMakerFlag != nil && *c.ExternalDecisionMakerFlag
}

// CandidateExtensions holds attributes added to a person after import.
type CandidateExtensions struct {
	SchemaVersion int          `json:"schemaVersion"`
	Provenance    []Provenance `json:"provenance,omitempty"`
	Promotions    []Promotion  `json:"promotions,omitempty"`
}

// Provenance records where an enriched field value came from.
type Provenance struct {
	Source     string    `json:"source"`
	Field      string    `json:"field"`
	Confidence float64   `json:"confidence,omitempty"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// Promotion records a manual or remediation-driven role change.
type Promotion struct {
	FromRole   Role      `json:"fromRole"`
	ToRole     Role      `json:"toRole"`
	Reason     string    `json:"reason"`
	PromotedAt time.Time `json:"promotedAt"`
}

// DecodeExtensions parses a stored extensions document. Empty input yields
// an empty record at the current version.
func DecodeExtensions(data []byte) (CandidateExtensions, error) {
	ext := CandidateExtensions{SchemaVersion: ExtensionsSchemaVersion}
	if len(data) == 0 || string(data) == "null" || string(data) == "{}" {
		return ext, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ext); err != nil {
		return CandidateExtensions{}, fmt.Errorf("decode candidate extensions: %w", err)
	}
	if ext.SchemaVersion == 0 {
		ext.SchemaVersion = ExtensionsSchemaVersion
	}
	if ext.SchemaVersion != ExtensionsSchemaVersion {
		return CandidateExtensions{}, fmt.Errorf("%w: %d", ErrUnsupportedExtension, ext.SchemaVersion)
	}
	return ext, nil
}

// Encode serializes the record, stamping the current schema version.
func (e CandidateExtensions) Encode() ([]byte, error) {
	e.SchemaVersion = ExtensionsSchemaVersion
	return json.Marshal(e)
}

// AddProvenance replaces any earlier entry for the same source and field.
func (e *CandidateExtensions) AddProvenance(p Provenance) {
	for i := range e.Provenance {
		if e.Provenance[i].Source == p.Source && e.Provenance[i].Field == p.Field {
			e.Provenance[i] = p
			return
		}
	}
	e.Provenance = append(e.Provenance, p)
}

// ValidateCandidate rejects candidates that must not reach the classifier.
func ValidateCandidate(c PersonCandidate) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing id (name %q)", ErrMalformedCandidate, c.FullName)
	}
	return nil
}

// RejectedCandidate pairs a dropped candidate with the reason.
type RejectedCandidate struct {
	Index  int
	Reason string
}

// PartitionCandidates splits input into well-formed candidates and rejects.
// A repeated ID is rejected after its first occurrence.
func PartitionCandidates(candidates []PersonCandidate) ([]PersonCandidate, []RejectedCandidate) {
	valid := make([]PersonCandidate, 0, len(candidates))
	var rejected []RejectedCandidate
	seen := make(map[string]struct{}, len(candidates))

	for i, c := range candidates {
		if err := ValidateCandidate(c); err != nil {
			rejected = append(rejected, RejectedCandidate{Index: i, Reason: err.Error()})
			continue
		}
		if _, dup := seen[c.ID]; dup {
			rejected = append(rejected, RejectedCandidate{
				Index:  i,
				Reason: fmt.Sprintf("%v: duplicate id %s", ErrMalformedCandidate, c.ID),
			})
			continue
		}
		seen[c.ID] = struct{}{}
		valid = append(valid, c)
	}
	return valid, rejected
}
