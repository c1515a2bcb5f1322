// internal/workers/places/recommend-places/handler.go
package recommendplaces

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/catalog"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/metrics"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/observability"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/validation"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

const (
	TaskType = "recommend-places"

	transportZeebe = "zeebe"
)

// Recommender ranks a catalog against one preference record.
type Recommender interface {
	Recommend(catalog []models.Place, prefs *models.Preferences, k int) ([]models.ScoredPlace, error)
}

type Handler struct {
	config       *Config
	matcher      Recommender
	catalog      catalog.Provider
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, m Recommender, provider catalog.Provider, obs *observability.Observability, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig(nil)
	}
	if obs == nil {
		obs = observability.Noop()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		matcher:      m,
		catalog:      provider,
		obs:          obs,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	log := h.logger.WithFields(map[string]interface{}{
		"jobKey":        job.Key,
		"workflowKey":   job.ProcessInstanceKey,
		"correlationId": uuid.NewString(),
	})
	log.Info("Processing job", nil)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job.Variables)
	if err != nil {
		stdErr := errors.Normalize(err)
		h.record(ctx, statusFor(stdErr), 0, time.Since(start))
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	h.record(ctx, "success", output.Count, time.Since(start))
	h.completeJob(ctx, client, job, output, log)
}

func (h *Handler) process(ctx context.Context, variables string) (*Output, error) {
	input, err := decodeInput(variables)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

// decodeInput parses and validates the job variables.
func decodeInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidPreferencesError(fmt.Sprintf("parse input: %v", err))
	}
	if err := validation.ValidateStruct(input); err != nil {
		return nil, errors.NewInvalidPreferencesError(err.Error())
	}
	input.Preferences.Normalize()
	return &input, nil
}

// Execute ranks the current catalog. It is the transport-free part of Handle.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Preferences == nil {
		return nil, errors.NewInvalidPreferencesError("preferences are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalError(err)
	}
	if h.catalog == nil {
		return nil, errors.NewDataUnavailableError("catalog", nil)
	}

	cat, err := h.catalog.Catalog()
	if err != nil {
		return nil, err
	}

	ranked, err := h.matcher.Recommend(cat.Places(), input.Preferences, h.limit(input.Limit))
	if err != nil {
		return nil, err
	}

	recs := models.ToRecommendations(ranked)
	return &Output{Recommendations: recs, Count: len(recs)}, nil
}

func (h *Handler) limit(requested int) int {
	switch {
	case requested <= 0:
		return h.config.DefaultLimit
	case requested > h.config.MaxLimit:
		return h.config.MaxLimit
	default:
		return requested
	}
}

func (h *Handler) record(ctx context.Context, status string, count int, elapsed time.Duration) {
	metrics.RecommendRequests.WithLabelValues(transportZeebe, status).Inc()
	metrics.RecommendDuration.WithLabelValues(transportZeebe).Observe(elapsed.Seconds())
	h.obs.RecordRecommendation(ctx, transportZeebe, status, count, elapsed)
}

func statusFor(stdErr *errors.StandardError) string {
	if errors.IsClientError(stdErr.Code) {
		return "invalid"
	}
	return "error"
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("Failed to create complete job command", map[string]interface{}{"error": err})
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("Failed to send complete job command", map[string]interface{}{"error": err})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	log.Info("Job completed", map[string]interface{}{"count": output.Count})
}
