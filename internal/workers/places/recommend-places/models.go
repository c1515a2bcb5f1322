// internal/workers/places/recommend-places/models.go
package recommendplaces

import "github.com/ChoeSuBin129/weather-date-mvp/internal/models"

type Input struct {
	Preferences *models.Preferences `json:"preferences" validate:"required"`
	Limit       int                 `json:"limit,omitempty" validate:"gte=0"`
}

type Output struct {
	Recommendations []models.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
}
