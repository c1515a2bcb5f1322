// internal/models/place.go
package models

import (
	"encoding/json"
	"strings"
)

// Scale bounds shared by the catalog loaders and the matcher.
const (
	LevelMax  = 5 // noise, romantic
	BudgetMax = 5
)

// Flag is a yes/no attribute that may be unknown in the source data.
type Flag int

const (
	FlagUnknown Flag = iota
	FlagYes
	FlagNo
)

// ParseFlag accepts the spellings found in the place sheets ("yes", "true", "1", ...).
func ParseFlag(s string) Flag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return FlagYes
	case "no", "n", "false", "0":
		return FlagNo
	default:
		return FlagUnknown
	}
}

func (f Flag) String() string {
	switch f {
	case FlagYes:
		return "yes"
	case FlagNo:
		return "no"
	default:
		return "unknown"
	}
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f == FlagUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(f.String())
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*f = ParseFlag(v)
	case bool:
		if v {
			*f = FlagYes
		} else {
			*f = FlagNo
		}
	case float64:
		switch v {
		case 1:
			*f = FlagYes
		case 0:
			*f = FlagNo
		default:
			*f = FlagUnknown
		}
	default:
		*f = FlagUnknown
	}
	return nil
}

// Place is one catalog entry. Scale fields use 0 for "absent".
type Place struct {
	ID                string   `json:"place_id"`
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	District          string   `json:"district"`
	Indoor            bool     `json:"indoor"`
	Noise             int      `json:"noise"`
	Romantic          int      `json:"romantic"`
	BudgetLevel       int      `json:"budget_level"`
	WalkScore         float64  `json:"walk_score"`
	AlcoholAvailable  bool     `json:"alcohol_available"`
	ExtrovertFriendly Flag     `json:"extrovert_friendly"`
	Tags              []string `json:"tags"`
}

// Normalize clamps every scale field into its documented range.
func (p Place) Normalize() Place {
	p.Noise = clampInt(p.Noise, 0, LevelMax)
	p.Romantic = clampInt(p.Romantic, 0, LevelMax)
	p.BudgetLevel = clampInt(p.BudgetLevel, 0, BudgetMax)
	if p.WalkScore < 0 || p.WalkScore != p.WalkScore {
		p.WalkScore = 0
	}
	p.District = strings.TrimSpace(p.District)
	return p
}

// TagString renders tags the way the place sheets store them.
func (p Place) TagString() string {
	return strings.Join(p.Tags, " ")
}

// SplitTags breaks a whitespace separated tag column into keywords.
func SplitTags(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
