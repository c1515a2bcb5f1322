// internal/models/recommendation.go
package models

import "math"

// ScoredPlace is a place with its full-precision score and generated reason.
type ScoredPlace struct {
	Place  Place
	Score  float64
	Reason string
}

// Recommendation is the wire form of a ScoredPlace.
type Recommendation struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	District    string  `json:"district"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	Tags        string  `json:"tags"`
	Indoor      bool    `json:"indoor"`
	BudgetLevel int     `json:"budget_level"`
}

// RecommendResponse is the body returned by the recommend endpoint.
type RecommendResponse struct {
	Success         bool             `json:"success"`
	Recommendations []Recommendation `json:"recommendations"`
	Timestamp       string           `json:"timestamp,omitempty"`
}

// ErrorResponse is the body returned on any failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Round2 rounds a score for display. Ranking always uses the raw value.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToRecommendation converts a ranked result to its wire form.
func (s ScoredPlace) ToRecommendation() Recommendation {
	return Recommendation{
		PlaceID:     s.Place.ID,
		Name:        s.Place.Name,
		Type:        s.Place.Type,
		District:    s.Place.District,
		Score:       Round2(s.Score),
		Reason:      s.Reason,
		Tags:        s.Place.TagString(),
		Indoor:      s.Place.Indoor,
		BudgetLevel: s.Place.BudgetLevel,
	}
}

// ToRecommendations converts a ranked list, always returning a non-nil slice.
func ToRecommendations(ranked []ScoredPlace) []Recommendation {
	out := make([]Recommendation, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.ToRecommendation())
	}
	return out
}
