package cleaner

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Weights of the block signals. A block is kept when its weighted sum is
// above zero.
const (
	wTextDensity = 3.0
	wLinkDensity = -2.0
	wTag         = 1.5
	wClassID     = 1.0
	wTextLength  = 0.5
)

var (
	contentHints = []string{
		"content", "article", "post", "entry", "body", "main", "text",
	}
	boilerplateHints = []string{
		"sidebar", "ad", "widget", "nav", "menu", "comment", "footer",
		"header", "banner", "popup", "modal", "cookie", "social", "share",
		"related", "recommend", "promo",
	}
)

// blockSignals are the measurements taken from one top-level block.
type blockSignals struct {
	textDensity float64 // visible text / outer HTML length
	linkDensity float64 // anchor text / visible text
	tag         float64 // semantic tag bonus or penalty
	classID     float64 // class/id hint bonus or penalty
	textLength  float64 // log10(text length + 1)
}

func (s blockSignals) score() float64 {
	return s.textDensity*wTextDensity +
		s.linkDensity*wLinkDensity +
		s.tag*wTag +
		s.classID*wClassID +
		s.textLength*wTextLength
}

// prune keeps the direct children of <body> whose signals score above zero.
// Without a <body> the document is returned as is; when nothing scores, the
// whole body is kept.
func prune(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return rawHTML, nil
	}

	var kept []string
	body.Children().Each(func(_ int, el *goquery.Selection) {
		if measure(el).score() <= 0 {
			return
		}
		if h, err := goquery.OuterHtml(el); err == nil {
			kept = append(kept, h)
		}
	})
	if len(kept) == 0 {
		h, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return h, nil
	}
	return strings.Join(kept, "\n"), nil
}

func measure(el *goquery.Selection) blockSignals {
	outer, err := goquery.OuterHtml(el)
	if err != nil || outer == "" {
		return blockSignals{}
	}
	text := strings.TrimSpace(el.Text())

	linkText := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkText += len(strings.TrimSpace(a.Text()))
	})

	s := blockSignals{
		textDensity: float64(len(text)) / float64(len(outer)),
		tag:         tagHint(goquery.NodeName(el)),
		classID:     classIDHint(el),
		textLength:  math.Log10(float64(len(text)) + 1),
	}
	if len(text) > 0 {
		s.linkDensity = float64(linkText) / float64(len(text))
	}
	return s
}

func tagHint(tag string) float64 {
	switch tag {
	case "article", "main", "section":
		return 5
	case "nav", "footer", "aside", "header":
		return -5
	}
	return 0
}

// classIDHint scores class and id once per direction.
func classIDHint(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	attrs := strings.ToLower(class + " " + id)

	var s float64
	if containsAny(attrs, contentHints) {
		s += 3
	}
	if containsAny(attrs, boilerplateHints) {
		s -= 3
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
