// internal/matcher/score.go
package matcher

import (
	"math"
	"strings"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// Contributions holds the weighted contribution of each criterion.
type Contributions struct {
	Location    float64 `json:"location"`
	Personality float64 `json:"personality"`
	Drinking    float64 `json:"drinking"`
	Activity    float64 `json:"activity"`
	Noise       float64 `json:"noise"`
	Romantic    float64 `json:"romantic"`
	Budget      float64 `json:"budget"`
	Walk        float64 `json:"walk"`
}

// Total is the unclamped sum of all contributions.
func (c Contributions) Total() float64 {
	return c.Location + c.Personality + c.Drinking + c.Activity +
		c.Noise + c.Romantic + c.Budget + c.Walk
}

// Fields returns the breakdown as log fields.
func (c Contributions) Fields() map[string]interface{} {
	return map[string]interface{}{
		"location":    c.Location,
		"personality": c.Personality,
		"drinking":    c.Drinking,
		"activity":    c.Activity,
		"noise":       c.Noise,
		"romantic":    c.Romantic,
		"budget":      c.Budget,
		"walk":        c.Walk,
	}
}

// Breakdown computes the per-criterion contributions of place against prefs.
// Preference answers for active, noise and romantic are on [0,1]; place levels
// are on 1..LevelMax and divided by LevelMax. A criterion with no answer or no
// place value contributes 0.
func (w Weights) Breakdown(place models.Place, prefs models.Preferences) Contributions {
	var c Contributions

	if prefs.WantsDistrict() && place.District != "" &&
		strings.TrimSpace(place.District) == strings.TrimSpace(prefs.District) {
		c.Location = w.Location
	}

	switch prefs.Personality {
	case models.PersonalityExtrovert:
		if place.ExtrovertFriendly == models.FlagYes {
			c.Personality = w.Personality
		}
	case models.PersonalityIntrovert:
		if place.ExtrovertFriendly == models.FlagNo {
			c.Personality = w.Personality
		}
	}

	switch prefs.Drinking {
	case models.DrinkingYes:
		if place.AlcoholAvailable {
			c.Drinking = w.Drinking
		}
	case models.DrinkingNo:
		if !place.AlcoholAvailable {
			c.Drinking = w.Drinking
		}
	}

	// Places carry no activity attribute; the noise level stands in for it.
	c.Activity = scaled(w.Activity, prefs.Active, place.Noise)
	c.Noise = scaled(w.Noise, prefs.Noise, place.Noise)
	c.Romantic = scaled(w.Romantic, prefs.Romantic, place.Romantic)

	if prefs.Budget.Set && place.BudgetLevel > 0 {
		diff := math.Abs(prefs.Budget.Value - float64(place.BudgetLevel))
		c.Budget = floor(w.Budget * (1 - diff/BudgetSpan))
	}

	if prefs.Walk.Set && place.WalkScore > 0 && place.WalkScore <= prefs.Walk.Value {
		c.Walk = w.Walk
	}

	return c
}

// Score is the clamped weighted similarity of place and prefs, in [0,1].
func (w Weights) Score(place models.Place, prefs models.Preferences) float64 {
	return clamp01(w.Breakdown(place, prefs).Total())
}

// scaled is the graduated-distance contribution for a 0..1 answer against a 1..LevelMax level.
func scaled(weight float64, want models.Number, level int) float64 {
	if !want.Set || level <= 0 {
		return 0
	}
	u := clamp01(want.Value)
	p := clamp01(float64(level) / LevelMax)
	return floor(weight * (1 - math.Abs(u-p)))
}

func floor(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
