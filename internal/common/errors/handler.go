// internal/common/errors/handler.go
package errors

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler fails jobs with retries for technical errors and throws a
// BPMN error for everything else.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Outcome tells the caller what HandleJobError did with the job.
type Outcome string

const (
	OutcomeRetried Outcome = "retried"
	OutcomeThrown  Outcome = "thrown"
)

// HandleJobError handles any error in a worker job
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) Outcome {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	outcome, retries := planRetry(bpmnErr, job.Retries)
	if outcome == OutcomeRetried {
		if sendErr := h.failJobWithRetries(ctx, client, job, bpmnErr, retries); sendErr != nil {
			h.logger.Error("Failed to send fail command", map[string]interface{}{"jobKey": job.Key, "error": sendErr.Error()})
		}
		return OutcomeRetried
	}

	if sendErr := h.throwBPMNError(ctx, client, job, bpmnErr); sendErr != nil {
		h.logger.Error("Failed to send throw error command", map[string]interface{}{"jobKey": job.Key, "error": sendErr.Error()})
	}
	return OutcomeThrown
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// planRetry decides between failing with retries and throwing. The retries
// left never exceed what the broker still holds for the job.
func planRetry(bpmnErr *BPMNError, jobRetries int32) (Outcome, int) {
	remaining := int(jobRetries) - 1
	if bpmnErr.Retries <= 0 || remaining <= 0 {
		return OutcomeThrown, 0
	}
	if remaining < bpmnErr.Retries {
		return OutcomeRetried, remaining
	}
	return OutcomeRetried, bpmnErr.Retries
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int) error {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message)

	withVars, err := cmd.VariablesFromMap(bpmnErr.ToErrorVariables())
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	_, err = withVars.Send(ctx)
	return err
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) error {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	withVars, err := cmd.VariablesFromMap(bpmnErr.ToErrorVariables())
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	_, err = withVars.Send(ctx)
	return err
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
