// internal/models/preferences.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DistrictAny is the survey answer for "no district preference".
const DistrictAny = "any"

type Personality string

const (
	PersonalityUnspecified Personality = ""
	PersonalityIntrovert   Personality = "introvert"
	PersonalityExtrovert   Personality = "extrovert"
)

type Drinking string

const (
	DrinkingUnspecified Drinking = ""
	DrinkingYes         Drinking = "yes"
	DrinkingNo          Drinking = "no"
)

// Number is an optional numeric answer. The survey forms post numbers either
// as JSON numbers or as strings ("3"), and leave unanswered fields empty.
type Number struct {
	Value float64
	Set   bool
}

// Num returns a set Number.
func Num(v float64) Number {
	return Number{Value: v, Set: true}
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			// unanswered or free text: leave unset
			return nil
		}
		*n = Num(v)
		return nil
	default:
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("number: %w", err)
		}
		*n = Num(v)
		return nil
	}
}

// Preferences is one survey submission.
type Preferences struct {
	District    string      `json:"district"`
	Personality Personality `json:"personality" validate:"omitempty,oneof=introvert extrovert unspecified"`
	Drinking    Drinking    `json:"drinking" validate:"omitempty,oneof=yes no unspecified"`
	Active      Number      `json:"active"`
	Noise       Number      `json:"noise"`
	Romantic    Number      `json:"romantic"`
	Budget      Number      `json:"budget"`
	Walk        Number      `json:"walk"`
}

// Normalize trims the district and maps the explicit "unspecified" answers to unset.
func (p *Preferences) Normalize() {
	p.District = strings.TrimSpace(p.District)
	if p.Personality == "unspecified" {
		p.Personality = PersonalityUnspecified
	}
	if p.Drinking == "unspecified" {
		p.Drinking = DrinkingUnspecified
	}
}

// WantsDistrict reports whether a concrete district was chosen.
func (p *Preferences) WantsDistrict() bool {
	d := strings.TrimSpace(p.District)
	return d != "" && !strings.EqualFold(d, DistrictAny)
}
