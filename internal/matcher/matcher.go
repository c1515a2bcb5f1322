// Package matcher scores places against one set of preferences and picks the best K.
package matcher

import (
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// Matcher is safe for concurrent use: it holds only the weight table and a logger.
type Matcher struct {
	weights Weights
	logger  logger.Logger
}

// New returns a Matcher. Zero weights fall back to DefaultWeights.
func New(weights Weights, log logger.Logger) *Matcher {
	if weights.IsZero() {
		weights = DefaultWeights()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if !weights.Normalized() {
		log.Warn("Matcher weights do not sum to 1.0; a perfect match scores the sum", map[string]interface{}{
			"sum": weights.Sum(),
		})
	}
	return &Matcher{weights: weights, logger: log}
}

func (m *Matcher) Weights() Weights {
	return m.weights
}

// Recommend scores every place, keeps the top k and attaches a reason to each.
// A nil prefs is the only error; missing answers just lower the scores.
func (m *Matcher) Recommend(catalog []models.Place, prefs *models.Preferences, k int) ([]models.ScoredPlace, error) {
	if prefs == nil {
		return nil, errors.NewInvalidPreferencesError("preferences are required")
	}

	scored := make([]models.ScoredPlace, 0, len(catalog))
	for _, place := range catalog {
		c := m.weights.Breakdown(place, *prefs)
		score := clamp01(c.Total())
		m.logger.Debug("Scored place", map[string]interface{}{
			"placeId":   place.ID,
			"score":     score,
			"breakdown": c.Fields(),
		})
		scored = append(scored, models.ScoredPlace{Place: place, Score: score})
	}

	ranked := TopK(scored, k)
	for i := range ranked {
		ranked[i].Reason = Reason(ranked[i].Place)
	}
	return ranked, nil
}
