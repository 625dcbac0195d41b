package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// textOf returns the text of an HTML fragment without script and style
// bodies.
func textOf(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.TrimSpace(doc.Text())
}

// normalizeText trims every line, collapses inner runs of spaces and drops
// blank lines.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
