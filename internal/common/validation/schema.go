// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins all errors into one line for job failure messages.
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled JSON schema for job variables.
type Schema struct {
	schema *gojsonschema.Schema
}

// NewSchema compiles a JSON schema document.
func NewSchema(document string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustSchema is NewSchema for package-level schema literals.
func MustSchema(document string) *Schema {
	s, err := NewSchema(document)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks input against the schema. Errors are sorted by field.
func (s *Schema) Validate(input interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_DOCUMENT"}},
		}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    errorCode(desc.Type()),
		})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })

	return &ValidationResult{Valid: false, Errors: errs}
}

// errorCode maps gojsonschema error types onto stable codes.
func errorCode(kind string) string {
	switch kind {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "invalid_type":
		return "INVALID_TYPE"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "string_gte", "string_lte":
		return "LENGTH_VIOLATION"
	case "number_gte", "number_lte", "number_gt", "number_lt":
		return "RANGE_VIOLATION"
	case "pattern":
		return "PATTERN_MISMATCH"
	}
	return strings.ToUpper(kind)
}

// ScopeProperties is the schema fragment shared by every buyer group task.
const ScopeProperties = `
		"workspaceId": {"type": "string", "minLength": 1},
		"companyId": {"type": "string", "minLength": 1}`

// CandidateSchema describes one inline candidate in job variables.
const CandidateSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"fullName": {"type": "string"},
		"jobTitle": {"type": ["string", "null"]},
		"email": {"type": ["string", "null"]},
		"externalDecisionMakerFlag": {"type": ["boolean", "null"]},
		"salaryFloor": {"type": ["number", "null"], "minimum": 0},
		"extensions": {"type": ["object", "null"]}
	}
}`
