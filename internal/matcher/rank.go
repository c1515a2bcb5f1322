// internal/matcher/rank.go
package matcher

import (
	"sort"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// TopK returns the k highest scores in descending order. Equal scores keep
// their input order. The input slice is not modified.
func TopK(scored []models.ScoredPlace, k int) []models.ScoredPlace {
	if k <= 0 || len(scored) == 0 {
		return []models.ScoredPlace{}
	}

	ranked := make([]models.ScoredPlace, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if k < len(ranked) {
		ranked = ranked[:k:k]
	}
	return ranked
}
