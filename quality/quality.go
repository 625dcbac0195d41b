// Package quality derives integrity and structural-quality signals from a
// retrieval outcome. All functions are pure.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/use-agent/duel/models"
)

const (
	// minContentLength is the trimmed rune count below which content is
	// considered truncated.
	minContentLength = 100

	// blockScanLength is how many leading runes are scanned for block pages.
	blockScanLength = 500

	// markupScanLength is how many leading runes are scanned for raw markup.
	markupScanLength = 100
)

// blockStatuses are protocol statuses that signal throttling or bot walls.
var blockStatuses = map[int]struct{}{
	403: {},
	429: {},
	503: {},
}

// blockMarkers are phrases typical of bot-wall pages.
var blockMarkers = []string{"blocked", "captcha"}

// HasIntegrityIssue reports whether the outcome is suspected to be blocked,
// throttled or truncated. It is a heuristic flag, not an error: a successful
// outcome may still be flagged.
func HasIntegrityIssue(o models.Outcome) bool {
	if !o.Succeeded {
		return true
	}
	if _, blocked := blockStatuses[o.StatusCode]; blocked {
		return true
	}
	if !o.HasContent() || utf8.RuneCountInString(strings.TrimSpace(o.Content)) < minContentLength {
		return true
	}
	head := strings.ToLower(prefix(o.Content, blockScanLength))
	for _, marker := range blockMarkers {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

// Structural quality weights.
const (
	baseQuality          = 50.0
	structuredDataBonus  = 20.0
	markdownBonus        = 15.0
	cleanTextBonus       = 15.0
	rawMarkupPenalty     = 10.0
	maxStructuralQuality = 100.0
	minStructuralQuality = 0.0
)

// StructuralQuality scores an outcome in [0, 100] from the capability flags
// its strategy declared, penalizing un-extracted HTML. Failed or empty
// outcomes score 0.
func StructuralQuality(o models.Outcome) float64 {
	if !o.Succeeded || !o.HasContent() {
		return 0
	}

	score := baseQuality
	if o.Attributes.Flag(models.AttrStructuredData) {
		score += structuredDataBonus
	}
	if o.Attributes.Flag(models.AttrMarkdown) {
		score += markdownBonus
	}
	if o.Attributes.Flag(models.AttrCleanText) {
		score += cleanTextBonus
	}
	if strings.Contains(strings.ToLower(prefix(o.Content, markupScanLength)), "<html") {
		score -= rawMarkupPenalty
	}

	return min(maxStructuralQuality, max(minStructuralQuality, score))
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
