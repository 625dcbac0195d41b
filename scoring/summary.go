package scoring

import (
	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/quality"
)

// SummaryStats aggregates outcomes: counts, mean elapsed time over all
// outcomes (not only successes), total payload and the distinct strategy IDs
// in first-appearance order.
func SummaryStats(outcomes []models.Outcome) models.Summary {
	s := models.Summary{
		TotalCrawls:      len(outcomes),
		StrategiesTested: []string{},
	}
	seen := make(map[string]struct{}, len(outcomes))
	var elapsed float64
	for _, o := range outcomes {
		if o.Succeeded {
			s.SuccessfulCrawls++
		}
		elapsed += o.ElapsedSeconds
		s.TotalPayloadSize += o.PayloadSize
		if _, ok := seen[o.StrategyID]; !ok {
			seen[o.StrategyID] = struct{}{}
			s.StrategiesTested = append(s.StrategiesTested, o.StrategyID)
		}
	}
	if len(outcomes) > 0 {
		s.AvgTimeSeconds = elapsed / float64(len(outcomes))
	}
	return s
}

// ComparisonTable lays outcomes side by side, one row per outcome.
func ComparisonTable(outcomes []models.Outcome) []models.ComparisonRow {
	rows := make([]models.ComparisonRow, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, models.ComparisonRow{
			StrategyID:     o.StrategyID,
			Succeeded:      o.Succeeded,
			ElapsedSeconds: o.ElapsedSeconds,
			StatusCode:     o.StatusCode,
			PayloadKB:      float64(o.PayloadSize) / 1024,
			IntegrityOK:    !quality.HasIntegrityIssue(o),
			QualityScore:   quality.StructuralQuality(o),
			CompositeScore: CompositeScore(o).Total(),
			ErrorMessage:   o.ErrorMessage,
		})
	}
	return rows
}
