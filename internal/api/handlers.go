// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/metrics"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/validation"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

const (
	maxBodyBytes  = 64 << 10
	transportHTTP = "http"
)

// PreferencesSchema is the accepted request body. Numeric answers may arrive
// as numbers or numeric strings; unknown extra fields are ignored.
var PreferencesSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"district":    map[string]interface{}{"type": []interface{}{"string", "null"}, "maxLength": 64},
		"personality": map[string]interface{}{"enum": []interface{}{"", "unspecified", "introvert", "extrovert", nil}},
		"drinking":    map[string]interface{}{"enum": []interface{}{"", "unspecified", "yes", "no", nil}},
		"active":      numericAnswer,
		"noise":       numericAnswer,
		"romantic":    numericAnswer,
		"budget":      numericAnswer,
		"walk":        numericAnswer,
	},
}

var numericAnswer = map[string]interface{}{"type": []interface{}{"number", "string", "null"}}

var preferencesSchema = validation.MustCompileSchema(PreferencesSchema)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := s.logger.WithFields(map[string]interface{}{"requestId": GetRequestID(ctx)})

	recs, err := s.recommend(r)
	elapsed := time.Since(start)
	if err != nil {
		stdErr := errors.Normalize(err)
		status := "error"
		if errors.IsClientError(stdErr.Code) {
			status = "invalid"
			log.Info("Rejected recommend request", map[string]interface{}{
				"errorCode": string(stdErr.Code),
				"details":   stdErr.Details,
			})
		} else {
			log.Error("Recommend request failed", map[string]interface{}{
				"errorCode": string(stdErr.Code),
				"details":   stdErr.Details,
			})
		}
		s.observe(ctx, status, 0, elapsed)
		writeError(w, stdErr)
		return
	}

	s.observe(ctx, "success", len(recs), elapsed)
	log.Debug("Recommend request served", map[string]interface{}{
		"count":      len(recs),
		"durationMs": elapsed.Milliseconds(),
	})
	writeJSON(w, http.StatusOK, models.RecommendResponse{
		Success:         true,
		Recommendations: recs,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) recommend(r *http.Request) ([]models.Recommendation, error) {
	prefs, err := decodePreferences(r)
	if err != nil {
		return nil, err
	}

	if s.catalog == nil {
		return nil, errors.NewDataUnavailableError("catalog", nil)
	}
	cat, err := s.catalog.Catalog()
	if err != nil {
		return nil, err
	}

	ranked, err := s.matcher.Recommend(cat.Places(), prefs, s.topK)
	if err != nil {
		return nil, err
	}
	return models.ToRecommendations(ranked), nil
}

// decodePreferences reads, schema-checks and decodes the request body.
func decodePreferences(r *http.Request) (*models.Preferences, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.NewInvalidPreferencesError("could not read request body")
	}
	if len(body) > maxBodyBytes {
		return nil, errors.NewInvalidPreferencesError("request body too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.NewInvalidPreferencesError("request body is required")
	}

	result := preferencesSchema.ValidateBytes(body)
	if !result.Valid {
		return nil, errors.NewInvalidPreferencesError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var prefs models.Preferences
	if err := json.Unmarshal(body, &prefs); err != nil {
		return nil, errors.NewInvalidPreferencesError(err.Error())
	}
	prefs.Normalize()
	return &prefs, nil
}

func (s *Server) observe(ctx context.Context, status string, count int, elapsed time.Duration) {
	metrics.RecommendRequests.WithLabelValues(transportHTTP, status).Inc()
	metrics.RecommendDuration.WithLabelValues(transportHTTP).Observe(elapsed.Seconds())
	s.obs.RecordRecommendation(ctx, transportHTTP, status, count, elapsed)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, errors.NewMethodNotAllowedError(r.Method))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
	})
}

// handleReady reports 503 until the catalog is loaded and every dependency answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ready"}

	if s.catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"error":  "catalog not configured",
		})
		return
	}
	cat, err := s.catalog.Catalog()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"error":  errors.Normalize(err).Message,
		})
		return
	}
	body["places"] = cat.Len()
	body["source"] = cat.Source()
	body["loaded_at"] = cat.LoadedAt().Format(time.RFC3339)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, body)
}
