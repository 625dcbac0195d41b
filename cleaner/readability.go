package cleaner

import (
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest readability text accepted as the main
// content. Shorter output means readability missed it.
const minContentLength = 50

// readArticle runs Mozilla Readability over rawHTML. It never fails: an
// unparsable URL, a readability error or too little text all yield the
// whole document, with ok=false.
func readArticle(rawHTML, pageURL string) (article readability.Article, ok bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		slog.Warn("readability: invalid page url, using whole document", "url", pageURL, "error", err)
		return rawArticle(rawHTML), false
	}

	article, err = readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		slog.Warn("readability: extraction failed, using whole document", "url", pageURL, "error", err)
		return rawArticle(rawHTML), false
	}
	if n := len(strings.TrimSpace(article.TextContent)); n < minContentLength {
		slog.Debug("readability: content too short, using whole document", "url", pageURL, "length", n)
		fallback := rawArticle(rawHTML)
		fallback.Title = article.Title
		return fallback, false
	}
	return article, true
}

// rawArticle wraps the whole document as an article.
func rawArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: textOf(rawHTML),
	}
}
