package scoring

import "github.com/use-agent/duel/models"

// BuildReport runs every scoring view over one race's outcomes. The outcome
// slice is shared with the report, not copied.
func BuildReport(targetURL string, outcomes []models.Outcome) models.RaceReport {
	if outcomes == nil {
		outcomes = []models.Outcome{}
	}
	return models.RaceReport{
		TargetURL:   targetURL,
		Outcomes:    outcomes,
		Comparison:  ComparisonTable(outcomes),
		Winner:      DetermineWinner(outcomes),
		CostBenefit: CostBenefit(outcomes),
		Summary:     SummaryStats(outcomes),
		Agreement:   Agreement(outcomes),
	}
}
