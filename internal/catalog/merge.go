// internal/catalog/merge.go
package catalog

import (
	"strconv"
	"strings"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// MergeStats summarizes a Merge.
type MergeStats struct {
	Base       int
	Incoming   int
	Duplicates int
	Total      int
}

// placeDefaults fills the columns a freshly collected sheet does not carry.
var placeDefaults = models.Place{
	Indoor:            true,
	Noise:             3,
	Romantic:          3,
	BudgetLevel:       2,
	WalkScore:         3,
	AlcoholAvailable:  false,
	ExtrovertFriendly: models.FlagYes,
}

var markupReplacer = strings.NewReplacer("<b>", "", "</b>", "")

// Merge appends incoming to base. Search-result markup is stripped from the
// incoming names, columns missing from the incoming header take the sheet
// defaults, and a place whose name and district already appeared earlier is
// dropped. Places without an id get the next free pNNN id.
func Merge(base []models.Place, incoming *Sheet) ([]models.Place, MergeStats) {
	stats := MergeStats{Base: len(base), Incoming: len(incoming.Places)}

	all := make([]models.Place, 0, len(base)+len(incoming.Places))
	all = append(all, base...)
	for _, p := range incoming.Places {
		p.Name = strings.TrimSpace(markupReplacer.Replace(p.Name))
		all = append(all, applyDefaults(p, incoming.Columns))
	}

	type key struct{ name, district string }
	seen := make(map[key]bool, len(all))
	merged := make([]models.Place, 0, len(all))
	next := 0
	for _, p := range all {
		k := key{p.Name, p.District}
		if seen[k] {
			stats.Duplicates++
			continue
		}
		seen[k] = true
		if n, ok := positionalNumber(p.ID); ok && n > next {
			next = n
		}
		merged = append(merged, p)
	}

	for i := range merged {
		if merged[i].ID == "" {
			merged[i].ID = PositionalID(next)
			next++
		}
	}

	stats.Total = len(merged)
	return merged, stats
}

func applyDefaults(p models.Place, columns map[string]bool) models.Place {
	if !columns[ColIndoor] {
		p.Indoor = placeDefaults.Indoor
	}
	if !columns[ColNoise] {
		p.Noise = placeDefaults.Noise
	}
	if !columns[ColRomantic] {
		p.Romantic = placeDefaults.Romantic
	}
	if !columns[ColBudgetLevel] {
		p.BudgetLevel = placeDefaults.BudgetLevel
	}
	if !columns[ColWalkScore] {
		p.WalkScore = placeDefaults.WalkScore
	}
	if !columns[ColAlcoholAvailable] {
		p.AlcoholAvailable = placeDefaults.AlcoholAvailable
	}
	if !columns[ColExtrovertFriendly] {
		p.ExtrovertFriendly = placeDefaults.ExtrovertFriendly
	}
	return p
}

// positionalNumber returns n for an id of the form PositionalID(n-1).
func positionalNumber(id string) (int, bool) {
	if len(id) < 2 || id[0] != 'p' {
		return 0, false
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
