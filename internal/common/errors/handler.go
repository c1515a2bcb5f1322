// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler fails or throws a job depending on the error classification.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// JobOutcome records what the handler did with a failed job.
type JobOutcome string

const (
	OutcomeFailed JobOutcome = "failed"
	OutcomeThrown JobOutcome = "thrown"
)

// HandleJobError reports err back to the engine. Retryable codes fail the job so
// Zeebe redelivers it; everything else is thrown as a BPMN error for the model to catch.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) JobOutcome {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	if bpmnErr.Retries > 0 && job.Retries > 1 {
		h.failJob(ctx, client, job, bpmnErr)
		return OutcomeFailed
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
	return OutcomeThrown
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	// job.Retries is what the engine has left; never raise it.
	remaining := int(job.Retries) - 1
	if remaining > bpmnErr.Retries {
		remaining = bpmnErr.Retries
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(remaining)).
		ErrorMessage(bpmnErr.Message)

	var err error
	if vars, ok := encodeVariables(bpmnErr); ok {
		if withVars, varsErr := cmd.VariablesFromString(vars); varsErr == nil {
			_, err = withVars.Send(ctx)
			h.logSendError("fail", job, err)
			return
		}
	}
	_, err = cmd.Send(ctx)
	h.logSendError("fail", job, err)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	var err error
	if vars, ok := encodeVariables(bpmnErr); ok {
		if withVars, varsErr := cmd.VariablesFromString(vars); varsErr == nil {
			_, err = withVars.Send(ctx)
			h.logSendError("throw", job, err)
			return
		}
	}
	_, err = cmd.Send(ctx)
	h.logSendError("throw", job, err)
}

func (h *ErrorHandler) logSendError(command string, job entities.Job, err error) {
	if err == nil {
		return
	}
	h.logger.Error("Failed to send job command", map[string]interface{}{
		"command": command,
		"jobKey":  job.Key,
		"error":   err.Error(),
	})
}

func encodeVariables(bpmnErr *BPMNError) (string, bool) {
	b, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(b), true
}

// GetErrorCategory groups codes for dashboards.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidPreferences, ErrCodeMethodNotAllowed:
		return "client"
	case ErrCodeDataUnavailable:
		return "data"
	case ErrCodeConfigInvalid:
		return "configuration"
	default:
		return "internal"
	}
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
