// internal/matcher/reason.go
package matcher

import (
	"strings"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

const (
	ReasonSeparator = " / "
	ReasonFallback  = "균형 잡힌 선택"

	labelRomantic = "로맨틱한 분위기"
	labelAlcohol  = "주류 가능"
	labelQuiet    = "조용한 분위기"
	labelLively   = "활기찬 분위기"
	labelBudget   = "부담 없는 가격"
	labelIndoor   = "실내 공간"
	labelDessert  = "디저트 맛집"
	labelView     = "전망 좋은 곳"
)

var (
	dessertKeywords = []string{"디저트", "베이커리", "케이크", "빵", "dessert", "bakery"}
	viewKeywords    = []string{"전망", "뷰", "야경", "루프탑", "한강", "view", "rooftop"}
)

// reasonRule is one label check. Rules run in slice order.
type reasonRule struct {
	label string
	match func(p models.Place) bool
}

var reasonRules = []reasonRule{
	{labelRomantic, func(p models.Place) bool { return p.Romantic >= 4 }},
	{labelAlcohol, func(p models.Place) bool { return p.AlcoholAvailable }},
	{labelQuiet, func(p models.Place) bool { return p.Noise >= 1 && p.Noise <= 2 }},
	{labelLively, func(p models.Place) bool { return p.Noise >= 4 }},
	{labelBudget, func(p models.Place) bool { return p.BudgetLevel >= 1 && p.BudgetLevel <= 2 }},
	{labelIndoor, func(p models.Place) bool { return p.Indoor }},
	{labelDessert, func(p models.Place) bool { return tagsContain(p.Tags, dessertKeywords) }},
	{labelView, func(p models.Place) bool { return tagsContain(p.Tags, viewKeywords) }},
}

// Reason explains a place from its own attributes. It does not look at the
// preferences or the score.
func Reason(place models.Place) string {
	labels := make([]string, 0, len(reasonRules))
	for _, r := range reasonRules {
		if r.match(place) {
			labels = append(labels, r.label)
		}
	}
	if len(labels) == 0 {
		return ReasonFallback
	}
	return strings.Join(labels, ReasonSeparator)
}

func tagsContain(tags []string, keywords []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
