// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeMalformedCandidate ErrorCode = "MALFORMED_CANDIDATE"

	ErrCodeCandidateSourceFailed ErrorCode = "CANDIDATE_SOURCE_FAILED"
	ErrCodeCandidateCacheFailed  ErrorCode = "CANDIDATE_CACHE_FAILED"
	ErrCodePersistenceFailed     ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeIndexFailed           ErrorCode = "INDEX_FAILED"
	ErrCodeGroupNotFound         ErrorCode = "GROUP_NOT_FOUND"

	ErrCodeEnrichmentFailed      ErrorCode = "ENRICHMENT_FAILED"
	ErrCodeEnrichmentRateLimited ErrorCode = "ENRICHMENT_RATE_LIMITED"

	ErrCodeRemediationPublishFailed ErrorCode = "REMEDIATION_PUBLISH_FAILED"
	ErrCodeReportSendFailed         ErrorCode = "REPORT_SEND_FAILED"
	ErrCodeCRMSyncFailed            ErrorCode = "CRM_SYNC_FAILED"

	ErrCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodeEngineRejected    ErrorCode = "ENGINE_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata sets a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As finds the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewInputParsingError is raised when job variables cannot be decoded.
func NewInputParsingError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", errDetails(err), false, err)
}

// NewValidationError wraps schema or business validation failures.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false, nil)
}

// NewMalformedCandidateError reports candidates rejected before classification.
func NewMalformedCandidateError(rejected int, details string) *StandardError {
	return newError(ErrCodeMalformedCandidate, "Malformed candidates rejected", details, false, nil).
		WithMetadata("rejected", rejected)
}

func NewCandidateSourceError(scope string, err error) *StandardError {
	return newError(ErrCodeCandidateSourceFailed, "Failed to load candidates",
		fmt.Sprintf("scope: %s, error: %s", scope, errDetails(err)), true, err)
}

func NewCandidateCacheError(scope string, err error) *StandardError {
	return newError(ErrCodeCandidateCacheFailed, "Candidate cache error",
		fmt.Sprintf("scope: %s, error: %s", scope, errDetails(err)), true, err)
}

func NewPersistenceError(scope string, err error) *StandardError {
	return newError(ErrCodePersistenceFailed, "Failed to persist buyer group",
		fmt.Sprintf("scope: %s, error: %s", scope, errDetails(err)), true, err)
}

func NewIndexError(index string, err error) *StandardError {
	return newError(ErrCodeIndexFailed, "Failed to index buyer group",
		fmt.Sprintf("index: %s, error: %s", index, errDetails(err)), true, err)
}

// NewGroupNotFoundError is a business error: there is nothing to report on yet.
func NewGroupNotFoundError(scope string) *StandardError {
	return newError(ErrCodeGroupNotFound, "No buyer group stored for company",
		fmt.Sprintf("scope: %s", scope), false, nil)
}

func NewEnrichmentError(provider string, err error) *StandardError {
	return newError(ErrCodeEnrichmentFailed, fmt.Sprintf("Enrichment provider '%s' error", provider),
		errDetails(err), true, err)
}

func NewEnrichmentRateLimitedError(provider string) *StandardError {
	return newError(ErrCodeEnrichmentRateLimited, fmt.Sprintf("Enrichment provider '%s' rate limited", provider),
		"", true, nil)
}

func NewRemediationPublishError(err error) *StandardError {
	return newError(ErrCodeRemediationPublishFailed, "Failed to publish remediation request", errDetails(err), true, err)
}

func NewReportSendError(err error) *StandardError {
	return newError(ErrCodeReportSendFailed, "Failed to send buyer group report", errDetails(err), true, err)
}

func NewCRMSyncError(err error) *StandardError {
	return newError(ErrCodeCRMSyncFailed, "Failed to sync roles to CRM", errDetails(err), true, err)
}

// NewEngineError wraps a failed Zeebe command. Transport failures are
// retryable, rejections are not.
func NewEngineError(operation string, retryable bool, err error) *StandardError {
	code := ErrCodeEngineRejected
	if retryable {
		code = ErrCodeEngineUnavailable
	}
	return newError(code, fmt.Sprintf("Zeebe operation '%s' failed", operation), errDetails(err), retryable, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", errDetails(err), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled on
// BPMN boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputParsingFailed:       "INPUT_PARSING_FAILED",
	ErrCodeValidationFailed:         "VALIDATION_FAILED",
	ErrCodeMalformedCandidate:       "MALFORMED_CANDIDATE",
	ErrCodeCandidateSourceFailed:    "CANDIDATE_SOURCE_FAILED",
	ErrCodeCandidateCacheFailed:     "CANDIDATE_CACHE_FAILED",
	ErrCodePersistenceFailed:        "PERSISTENCE_FAILED",
	ErrCodeIndexFailed:              "INDEX_FAILED",
	ErrCodeGroupNotFound:            "GROUP_NOT_FOUND",
	ErrCodeEnrichmentFailed:         "ENRICHMENT_FAILED",
	ErrCodeEnrichmentRateLimited:    "ENRICHMENT_RATE_LIMITED",
	ErrCodeRemediationPublishFailed: "REMEDIATION_PUBLISH_FAILED",
	ErrCodeReportSendFailed:         "REPORT_SEND_FAILED",
	ErrCodeCRMSyncFailed:            "CRM_SYNC_FAILED",
	ErrCodeEngineUnavailable:        "ENGINE_UNAVAILABLE",
	ErrCodeEngineRejected:           "ENGINE_REJECTED",
	ErrCodeInternal:                 "INTERNAL_ERROR",
}

// GetRetryCount returns the recommended retry count for code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCandidateSourceFailed,
		ErrCodePersistenceFailed,
		ErrCodeIndexFailed,
		ErrCodeEnrichmentFailed,
		ErrCodeRemediationPublishFailed,
		ErrCodeReportSendFailed,
		ErrCodeCRMSyncFailed,
		ErrCodeEngineUnavailable:
		return 3

	case ErrCodeCandidateCacheFailed,
		ErrCodeEnrichmentRateLimited:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "MALFORMED"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CANDIDATE") || strings.Contains(codeStr, "PERSISTENCE") || strings.Contains(codeStr, "GROUP"):
		return "DATABASE"
	case strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "ENRICHMENT"):
		return "ENRICHMENT"
	case strings.Contains(codeStr, "REMEDIATION") || strings.Contains(codeStr, "REPORT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CRM"):
		return "CRM"
	case strings.Contains(codeStr, "ENGINE"):
		return "WORKFLOW"
	default:
		return "OTHER"
	}
}
