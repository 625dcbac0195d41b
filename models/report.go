package models

// ProgressStatus is the lifecycle state of one strategy within a race.
type ProgressStatus string

const (
	StatusWaiting ProgressStatus = "waiting"
	StatusRunning ProgressStatus = "running"
	StatusDone    ProgressStatus = "done"
)

// ProgressEvent is delivered to a race observer. Outcome is set only when
// Status is StatusDone.
type ProgressEvent struct {
	StrategyID string         `json:"strategy_id"`
	Status     ProgressStatus `json:"status"`
	Outcome    *Outcome       `json:"outcome,omitempty"`
}

// StrategyScore is one entry of the winner's score mapping.
type StrategyScore struct {
	StrategyID string  `json:"strategy_id"`
	Score      float64 `json:"score"`
	Speed      float64 `json:"speed"`
	Integrity  float64 `json:"integrity"`
	Quality    float64 `json:"quality"`
}

// Winner is the result of winner determination. StrategyID is "" when there
// is no winner; Reason then says why.
type Winner struct {
	StrategyID string          `json:"strategy_id,omitempty"`
	Score      float64         `json:"score"`
	Reason     string          `json:"reason"`
	Scores     []StrategyScore `json:"scores"`
}

// HasWinner reports whether a winner was selected.
func (w Winner) HasWinner() bool {
	return w.StrategyID != ""
}

// Recommendation buckets a cost/benefit ratio.
type Recommendation string

const (
	RecommendExcellent Recommendation = "excellent"
	RecommendGood      Recommendation = "good"
	RecommendFair      Recommendation = "fair"
	RecommendPoor      Recommendation = "poor"
)

// CostBenefitRow is one outcome's cost/benefit line. SpeedRank and
// QualityRank are 0 for failed outcomes, which are not ranked.
type CostBenefitRow struct {
	StrategyID     string         `json:"strategy_id"`
	Family         string         `json:"family"`
	RelativeCost   float64        `json:"relative_cost"`
	Benefit        float64        `json:"benefit"`
	Ratio          float64        `json:"ratio"`
	SpeedRank      int            `json:"speed_rank,omitempty"`
	QualityRank    int            `json:"quality_rank,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

// Summary aggregates a set of outcomes.
type Summary struct {
	TotalCrawls      int      `json:"total_crawls"`
	SuccessfulCrawls int      `json:"successful_crawls"`
	AvgTimeSeconds   float64  `json:"avg_time_seconds"`
	TotalPayloadSize int      `json:"total_payload_size"`
	StrategiesTested []string `json:"strategies_tested"`
}

// ComparisonRow is one outcome's line in the side-by-side comparison.
type ComparisonRow struct {
	StrategyID     string  `json:"strategy_id"`
	Succeeded      bool    `json:"succeeded"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	StatusCode     int     `json:"status_code,omitempty"`
	PayloadKB      float64 `json:"payload_kb"`
	IntegrityOK    bool    `json:"integrity_ok"`
	QualityScore   float64 `json:"quality_score"`
	CompositeScore float64 `json:"composite_score"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// AgreementPair compares the content of two successful outcomes by SimHash
// Hamming distance (0 = identical, 64 = unrelated). DOMDistance is -1 when
// either side has no raw HTML.
type AgreementPair struct {
	A            string `json:"a"`
	B            string `json:"b"`
	TextDistance int    `json:"text_distance"`
	DOMDistance  int    `json:"dom_distance"`
}

// RaceReport bundles every scoring view of one race.
type RaceReport struct {
	ID             string           `json:"id,omitempty"`
	TargetURL      string           `json:"target_url"`
	Outcomes       []Outcome        `json:"outcomes"`
	Comparison     []ComparisonRow  `json:"comparison"`
	Winner         Winner           `json:"winner"`
	CostBenefit    []CostBenefitRow `json:"cost_benefit"`
	Summary        Summary          `json:"summary"`
	Agreement      []AgreementPair  `json:"agreement,omitempty"`
	PreviousWinner string           `json:"previous_winner,omitempty"`
}
