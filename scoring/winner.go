package scoring

import (
	"fmt"
	"strings"

	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/quality"
)

// Reasons reported when no winner can be chosen.
const (
	ReasonNoResults = "no results"
	ReasonAllFailed = "all failed"
)

// DetermineWinner picks the strategy with the strictly highest composite
// score among successful outcomes.
//
// Each strategy ID is scored once, from its first successful outcome in
// insertion order; later outcomes for the same ID are ignored. Scores are
// reported in first-insertion order and ties go to the earliest strategy.
func DetermineWinner(outcomes []models.Outcome) models.Winner {
	if len(outcomes) == 0 {
		return models.Winner{Reason: ReasonNoResults, Scores: []models.StrategyScore{}}
	}

	var (
		scores  []models.StrategyScore
		scored  []models.Outcome
		bestTot float64
	)
	seen := make(map[string]struct{})
	bestIdx := -1
	for _, o := range outcomes {
		if !o.Succeeded {
			continue
		}
		if _, dup := seen[o.StrategyID]; dup {
			continue
		}
		seen[o.StrategyID] = struct{}{}

		s := CompositeScore(o)
		scores = append(scores, models.StrategyScore{
			StrategyID: o.StrategyID,
			Score:      s.Total(),
			Speed:      s.Speed,
			Integrity:  s.Integrity,
			Quality:    s.Quality,
		})
		scored = append(scored, o)

		if bestIdx < 0 || s.Total() > bestTot {
			bestIdx = len(scores) - 1
			bestTot = s.Total()
		}
	}

	if bestIdx < 0 {
		return models.Winner{Reason: ReasonAllFailed, Scores: []models.StrategyScore{}}
	}

	best := scores[bestIdx]
	return models.Winner{
		StrategyID: best.StrategyID,
		Score:      best.Score,
		Reason:     rationale(best, scored[bestIdx]),
		Scores:     scores,
	}
}

// rationale explains a win from the winning outcome's elapsed time,
// integrity and structural quality.
func rationale(best models.StrategyScore, o models.Outcome) string {
	parts := []string{fmt.Sprintf("Completed in %.2fs", o.ElapsedSeconds)}
	if !quality.HasIntegrityIssue(o) {
		parts = append(parts, "excellent data integrity")
	}
	if q := quality.StructuralQuality(o); q >= highQualityLevel {
		parts = append(parts, fmt.Sprintf("high structural quality (%.0f/100)", q))
	}
	return fmt.Sprintf("%s won with a score of %.1f/100. %s", best.StrategyID, best.Score, strings.Join(parts, ", "))
}
