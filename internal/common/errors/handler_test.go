// internal/common/errors/handler_test.go
package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/camunda/camundatest"
)

type captureLogger struct {
	messages []string
}

func (l *captureLogger) Error(msg string, _ map[string]interface{}) {
	l.messages = append(l.messages, msg)
}

func TestHandleJobError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		jobRetries  int32
		wantOutcome JobOutcome
		wantCode    ErrorCode
		wantRetries int32
	}{
		{
			name:        "invalid preferences are thrown",
			err:         NewInvalidPreferencesError("noise: expected number"),
			jobRetries:  3,
			wantOutcome: OutcomeThrown,
			wantCode:    ErrCodeInvalidPreferences,
		},
		{
			name:        "data unavailable fails with one retry less than the engine has",
			err:         NewDataUnavailableError("csv:data/places.csv", fmt.Errorf("no such file")),
			jobRetries:  3,
			wantOutcome: OutcomeFailed,
			wantCode:    ErrCodeDataUnavailable,
			wantRetries: 2,
		},
		{
			name:        "data unavailable retries are capped",
			err:         NewDataUnavailableError("redis:catalog:places", nil),
			jobRetries:  10,
			wantOutcome: OutcomeFailed,
			wantCode:    ErrCodeDataUnavailable,
			wantRetries: 3,
		},
		{
			name:        "last retry is thrown",
			err:         NewDataUnavailableError("redis:catalog:places", nil),
			jobRetries:  1,
			wantOutcome: OutcomeThrown,
			wantCode:    ErrCodeDataUnavailable,
		},
		{
			name:        "no retries left is thrown",
			err:         NewDataUnavailableError("redis:catalog:places", nil),
			jobRetries:  0,
			wantOutcome: OutcomeThrown,
			wantCode:    ErrCodeDataUnavailable,
		},
		{
			name:        "unclassified errors fail once as internal",
			err:         fmt.Errorf("unexpected"),
			jobRetries:  5,
			wantOutcome: OutcomeFailed,
			wantCode:    ErrCodeInternal,
			wantRetries: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &captureLogger{}
			client := camundatest.NewJobClient()
			job := camundatest.Job(42, tt.jobRetries, "{}")

			outcome := NewErrorHandler(log).HandleJobError(context.Background(), client, job, tt.err)
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Contains(t, log.messages, "Job failed")
			assert.Empty(t, client.Completed())

			var variables string
			switch tt.wantOutcome {
			case OutcomeThrown:
				require.Len(t, client.Thrown(), 1)
				assert.Empty(t, client.Failed())
				thrown := client.Thrown()[0]
				assert.Equal(t, int64(42), thrown.JobKey)
				assert.Equal(t, string(tt.wantCode), thrown.ErrorCode)
				variables = thrown.Variables
			case OutcomeFailed:
				require.Len(t, client.Failed(), 1)
				assert.Empty(t, client.Thrown())
				failed := client.Failed()[0]
				assert.Equal(t, int64(42), failed.JobKey)
				assert.Equal(t, tt.wantRetries, failed.Retries)
				assert.NotEmpty(t, failed.ErrorMessage)
				variables = failed.Variables
			}

			var vars map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(variables), &vars))
			assert.Equal(t, string(tt.wantCode), vars["errorCode"])
		})
	}
}
