package scoring

import (
	"cmp"
	"slices"

	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/quality"
)

// Benefit weights.
const (
	successBenefit   = 40.0
	integrityBenefit = 30.0
	qualityBenefit   = 0.3
)

// Benefit scores an outcome's value independently of its cost: 0 for a
// failure, else 40, plus 30 without integrity issues, plus quality × 0.3.
func Benefit(o models.Outcome) float64 {
	if !o.Succeeded {
		return 0
	}
	b := successBenefit
	if !quality.HasIntegrityIssue(o) {
		b += integrityBenefit
	}
	return b + quality.StructuralQuality(o)*qualityBenefit
}

// Recommend buckets a cost/benefit ratio.
func Recommend(ratio float64) models.Recommendation {
	switch {
	case ratio > 5:
		return models.RecommendExcellent
	case ratio > 3:
		return models.RecommendGood
	case ratio > 1:
		return models.RecommendFair
	default:
		return models.RecommendPoor
	}
}

// CostBenefit returns one row per outcome, in input order. Successful rows
// also get a speed rank (1 = fastest) and a quality rank (1 = highest
// structural quality); ties keep input order.
func CostBenefit(outcomes []models.Outcome) []models.CostBenefitRow {
	rows := make([]models.CostBenefitRow, len(outcomes))
	var succeeded []int
	for i, o := range outcomes {
		cost := RelativeCost(o.StrategyID)
		benefit := Benefit(o)
		ratio := benefit / cost
		rows[i] = models.CostBenefitRow{
			StrategyID:     o.StrategyID,
			Family:         Family(o.StrategyID),
			RelativeCost:   cost,
			Benefit:        benefit,
			Ratio:          ratio,
			Recommendation: Recommend(ratio),
		}
		if o.Succeeded {
			succeeded = append(succeeded, i)
		}
	}

	for rank, i := range rankBy(succeeded, func(a, b int) int {
		return cmp.Compare(outcomes[a].ElapsedSeconds, outcomes[b].ElapsedSeconds)
	}) {
		rows[i].SpeedRank = rank + 1
	}
	for rank, i := range rankBy(succeeded, func(a, b int) int {
		return cmp.Compare(quality.StructuralQuality(outcomes[b]), quality.StructuralQuality(outcomes[a]))
	}) {
		rows[i].QualityRank = rank + 1
	}
	return rows
}

// rankBy returns a stably sorted copy of the indices.
func rankBy(indices []int, compare func(a, b int) int) []int {
	sorted := slices.Clone(indices)
	slices.SortStableFunc(sorted, compare)
	return sorted
}
