// internal/common/errors/errors_test.go
package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewPersistenceError("ws-1/acme", fmt.Errorf("connection reset"))
	stdErr.WithMetadata("companyId", "acme")

	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "PERSISTENCE_FAILED", bpmnErr.Code)
	assert.True(t, bpmnErr.Retryable)
	assert.Equal(t, 3, bpmnErr.Retries)
	assert.Contains(t, bpmnErr.Details, "connection reset")

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "PERSISTENCE_FAILED", vars["errorCode"])
	assert.Equal(t, "PERSISTENCE_FAILED", vars["originalErrorCode"])
	assert.Equal(t, "acme", vars["companyId"])
	assert.NotEmpty(t, vars["timestamp"])
}

func TestConvertToBPMNError_NonRetryable(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewValidationError("companyId is required"))

	assert.Equal(t, "VALIDATION_FAILED", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)

	unknown := ConvertToBPMNError(&StandardError{Code: "SOMETHING_ELSE", Retryable: true})
	assert.Equal(t, "SOMETHING_ELSE", unknown.Code)
	assert.Equal(t, 0, unknown.Retries)
}

func TestAsAndNormalize(t *testing.T) {
	cause := fmt.Errorf("redis down")
	stdErr := NewCandidateCacheError("ws/acme", cause)
	wrapped := fmt.Errorf("load: %w", stdErr)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, stdErr, got)
	assert.True(t, HasCode(wrapped, ErrCodeCandidateCacheFailed))
	assert.False(t, HasCode(wrapped, ErrCodeIndexFailed))
	assert.True(t, stderrors.Is(wrapped, cause))

	plain := Normalize(fmt.Errorf("unexpected"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.False(t, plain.Retryable)
	assert.Equal(t, "unexpected", plain.Details)
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeCandidateSourceFailed, 3},
		{ErrCodeCRMSyncFailed, 3},
		{ErrCodeCandidateCacheFailed, 2},
		{ErrCodeEnrichmentRateLimited, 2},
		{ErrCodeValidationFailed, 0},
		{ErrCodeGroupNotFound, 0},
		{ErrCodeMalformedCandidate, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
			assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInputParsingFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeMalformedCandidate))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeCandidateSourceFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeGroupNotFound))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexFailed))
	assert.Equal(t, "ENRICHMENT", GetErrorCategory(ErrCodeEnrichmentRateLimited))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeReportSendFailed))
	assert.Equal(t, "CRM", GetErrorCategory(ErrCodeCRMSyncFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestPlanRetry(t *testing.T) {
	retryable := &BPMNError{Retries: 3}
	business := &BPMNError{Retries: 0}

	outcome, retries := planRetry(retryable, 5)
	assert.Equal(t, OutcomeRetried, outcome)
	assert.Equal(t, 3, retries)

	outcome, retries = planRetry(retryable, 2)
	assert.Equal(t, OutcomeRetried, outcome)
	assert.Equal(t, 1, retries)

	outcome, _ = planRetry(retryable, 1)
	assert.Equal(t, OutcomeThrown, outcome)

	outcome, _ = planRetry(business, 3)
	assert.Equal(t, OutcomeThrown, outcome)
}

func TestMalformedCandidateMetadata(t *testing.T) {
	err := NewMalformedCandidateError(2, "index 1: missing id")

	assert.Equal(t, 2, err.Metadata["rejected"])
	assert.Equal(t, "StandardError[MALFORMED_CANDIDATE]: Malformed candidates rejected", err.Error())
}
