// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(message, code, details string) models.ErrorResponse {
	return models.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
		Details: details,
	}
}

// writeError renders a StandardError. Server-side failures keep the generic
// message and carry the classification in code.
func writeError(w http.ResponseWriter, stdErr *errors.StandardError) {
	status := errors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		writeJSON(w, status, errorBody("Internal server error", string(stdErr.Code), stdErr.Message))
		return
	}
	writeJSON(w, status, errorBody(stdErr.Message, string(stdErr.Code), stdErr.Details))
}
