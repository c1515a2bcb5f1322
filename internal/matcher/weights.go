// internal/matcher/weights.go
package matcher

import (
	"fmt"
	"math"
)

// Scale constants. Place noise and romantic levels are divided by LevelMax to
// land on the same [0,1] scale as the preference answers; budget distance is
// divided by BudgetSpan.
const (
	LevelMax   = 5.0
	BudgetSpan = 4.0
)

// Weights is the per-criterion weight table. Weights are non-negative and
// expected to sum to 1.0 so that scores read as a fraction of a perfect match.
type Weights struct {
	Location    float64 `mapstructure:"location" json:"location" validate:"gte=0,lte=1"`
	Personality float64 `mapstructure:"personality" json:"personality" validate:"gte=0,lte=1"`
	Drinking    float64 `mapstructure:"drinking" json:"drinking" validate:"gte=0,lte=1"`
	Activity    float64 `mapstructure:"activity" json:"activity" validate:"gte=0,lte=1"`
	Noise       float64 `mapstructure:"noise" json:"noise" validate:"gte=0,lte=1"`
	Romantic    float64 `mapstructure:"romantic" json:"romantic" validate:"gte=0,lte=1"`
	Budget      float64 `mapstructure:"budget" json:"budget" validate:"gte=0,lte=1"`
	Walk        float64 `mapstructure:"walk" json:"walk" validate:"gte=0,lte=1"`
}

// DefaultWeights is the canonical table.
func DefaultWeights() Weights {
	return Weights{
		Location:    0.20,
		Personality: 0.10,
		Drinking:    0.10,
		Activity:    0.05,
		Noise:       0.10,
		Romantic:    0.15,
		Budget:      0.20,
		Walk:        0.10,
	}
}

// Sum returns the total weight, i.e. the score of a perfect match before clamping.
func (w Weights) Sum() float64 {
	return w.Location + w.Personality + w.Drinking + w.Activity +
		w.Noise + w.Romantic + w.Budget + w.Walk
}

// IsZero reports whether no weight was configured.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Check rejects negative weights. A sum other than 1.0 is allowed; callers may warn on it.
func (w Weights) Check() error {
	for name, v := range w.asMap() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	return nil
}

// Normalized reports whether the weights sum to 1.0 within rounding.
func (w Weights) Normalized() bool {
	return math.Abs(w.Sum()-1.0) < 1e-9
}

func (w Weights) asMap() map[string]float64 {
	return map[string]float64{
		"location":    w.Location,
		"personality": w.Personality,
		"drinking":    w.Drinking,
		"activity":    w.Activity,
		"noise":       w.Noise,
		"romantic":    w.Romantic,
		"budget":      w.Budget,
		"walk":        w.Walk,
	}
}
