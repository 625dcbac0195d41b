package cleaner

import "unicode/utf8"

// EstimateTokens approximates a model token count as runes / 3, at least 1
// for non-empty text. English runs near 4 runes per token and CJK near 1.5,
// so 3 slightly overestimates mixed content.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}
