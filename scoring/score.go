// Package scoring turns race outcomes into comparable, explainable scores:
// a composite score and winner, cost/benefit rows with speed and quality
// ranks, summary statistics and a side-by-side comparison.
//
// Scoring is designed for a single race: where one strategy ID appears more
// than once, winner determination only looks at its first successful outcome.
package scoring

import (
	"strings"

	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/quality"
)

// Composite score weights.
const (
	speedNumerator   = 10.0
	maxSpeedScore    = 30.0
	integrityScore   = 30.0
	qualityWeight    = 0.4
	highQualityLevel = 80.0
)

// Score is a composite score broken into its components.
type Score struct {
	Speed     float64
	Integrity float64
	Quality   float64
}

// Total is the sum of the components.
func (s Score) Total() float64 {
	return s.Speed + s.Integrity + s.Quality
}

// CompositeScore scores one outcome on speed, integrity and structural
// quality. Speed is 10/elapsed capped at 30 (0 when elapsed is 0),
// integrity is 30 or 0, quality is structural quality × 0.4.
func CompositeScore(o models.Outcome) Score {
	var s Score
	if o.ElapsedSeconds > 0 {
		s.Speed = min(speedNumerator/o.ElapsedSeconds, maxSpeedScore)
	}
	if !quality.HasIntegrityIssue(o) {
		s.Integrity = integrityScore
	}
	s.Quality = quality.StructuralQuality(o) * qualityWeight
	return s
}

// Relative cost per strategy family.
var familyCosts = map[string]float64{
	"lightweight": 1,
	"browser":     5,
	"ai-agentic":  10,
}

// defaultFamilyCost applies to families missing from familyCosts.
const defaultFamilyCost = 5.0

// Family returns the strategy family of a strategy ID: the ID itself, or
// the part before the first ':' (so "browser:stealth" is a browser).
func Family(strategyID string) string {
	family, _, _ := strings.Cut(strategyID, ":")
	return family
}

// RelativeCost returns the fixed relative resource cost of a strategy ID's
// family. It is always > 0.
func RelativeCost(strategyID string) float64 {
	if c, ok := familyCosts[Family(strategyID)]; ok {
		return c
	}
	return defaultFamilyCost
}
