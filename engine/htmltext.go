package engine

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// extractTitle returns the text of the first <title> element.
func extractTitle(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			if tn, _ := z.TagName(); string(tn) == "title" {
				if z.Next() == html.TextToken {
					return strings.TrimSpace(string(z.Text()))
				}
				return ""
			}
		}
	}
}

// extractVisibleText returns the text inside <body>, skipping script,
// style and noscript, with runs of text joined by single spaces.
func extractVisibleText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	inBody := false
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skip++
			}
		case html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if !inBody || skip > 0 {
				continue
			}
			if t := strings.TrimSpace(string(z.Text())); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
	}
}

var (
	reNoscriptJS = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)
	reEmptyRoot  = regexp.MustCompile(`<div id="(root|app|__next)">\s*</div>`)
)

// needsBrowser guesses whether a statically fetched page is a JavaScript
// shell whose content only appears after rendering.
func needsBrowser(doc, visibleText string) bool {
	if len(visibleText) < 200 {
		return true
	}
	lower := strings.ToLower(doc)
	if reEmptyRoot.MatchString(lower) || reNoscriptJS.MatchString(lower) {
		return true
	}
	return strings.Count(lower, "<script") > 10 && len(visibleText) < 500
}
