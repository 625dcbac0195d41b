// Package cleaner reduces a page to its main content, as Markdown and as
// plain text, for the ai-agentic strategy.
package cleaner

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
)

// Extraction modes.
const (
	ModeReadability = "readability"
	ModePruning     = "pruning"
	ModeAuto        = "auto"
	ModeRaw         = "raw"
)

// Page is the cleaned main content of one document.
type Page struct {
	Title    string
	Byline   string
	Excerpt  string
	Markdown string
	Text     string

	// OriginalTokens and Tokens estimate the size of the raw HTML and of
	// the Markdown.
	OriginalTokens int
	Tokens         int
}

// Cleaner runs extraction then Markdown conversion. The converter is built
// once and shared; Clean is safe for concurrent use.
type Cleaner struct {
	conv     *converter.Converter
	mode     string
	selector string
}

// New creates a Cleaner. mode is one of the Mode constants ("" means auto).
// selector, when set, narrows the document to matching elements first.
func New(mode, selector string) *Cleaner {
	if mode == "" {
		mode = ModeAuto
	}
	return &Cleaner{conv: newMarkdownConverter(), mode: mode, selector: selector}
}

// Clean extracts the main content of rawHTML. pageURL resolves relative
// links. Extraction failures degrade to the whole document; only Markdown
// conversion errors are returned.
func (c *Cleaner) Clean(rawHTML, pageURL string) (*Page, error) {
	original := EstimateTokens(rawHTML)

	if c.selector != "" {
		narrowed, err := selectHTML(rawHTML, c.selector)
		if err != nil {
			return nil, fmt.Errorf("cleaner: css selector %q: %w", c.selector, err)
		}
		rawHTML = narrowed
	}

	article := c.extract(rawHTML, pageURL)
	md, err := toMarkdown(c.conv, article.Content, pageURL)
	if err != nil {
		return nil, fmt.Errorf("cleaner: markdown conversion: %w", err)
	}

	return &Page{
		Title:          article.Title,
		Byline:         article.Byline,
		Excerpt:        article.Excerpt,
		Markdown:       md,
		Text:           normalizeText(article.TextContent),
		OriginalTokens: original,
		Tokens:         EstimateTokens(md),
	}, nil
}

func (c *Cleaner) extract(rawHTML, pageURL string) readability.Article {
	switch c.mode {
	case ModeRaw:
		return rawArticle(rawHTML)
	case ModePruning:
		meta, _ := readArticle(rawHTML, pageURL)
		pruned, err := prune(rawHTML)
		if err != nil {
			slog.Warn("pruning failed, using whole document", "url", pageURL, "error", err)
			pruned = rawHTML
		}
		return withContent(meta, pruned)
	case ModeReadability:
		article, _ := readArticle(rawHTML, pageURL)
		return article
	default:
		return autoExtract(rawHTML, pageURL)
	}
}

// autoExtract runs readability and pruning concurrently and keeps the one
// with more text, unless that one is more than ten times longer than a
// still substantial alternative, which suggests it kept boilerplate.
func autoExtract(rawHTML, pageURL string) readability.Article {
	var (
		article  readability.Article
		pruned   string
		pruneErr error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		article, _ = readArticle(rawHTML, pageURL)
	}()
	go func() {
		defer wg.Done()
		pruned, pruneErr = prune(rawHTML)
	}()
	wg.Wait()

	if pruneErr != nil {
		slog.Warn("auto: pruning failed, using readability", "url", pageURL, "error", pruneErr)
		return article
	}

	readText := strings.TrimSpace(article.TextContent)
	prunedText := textOf(pruned)
	if pickReadability(len(readText), len(prunedText)) {
		return article
	}
	out := withContent(article, pruned)
	out.TextContent = prunedText
	return out
}

func pickReadability(readLen, prunedLen int) bool {
	if readLen >= prunedLen {
		return !(prunedLen > minContentLength && readLen > 10*prunedLen)
	}
	return readLen > minContentLength && prunedLen > 10*readLen
}

// withContent keeps meta's metadata with different content.
func withContent(meta readability.Article, content string) readability.Article {
	return readability.Article{
		Title:       meta.Title,
		Byline:      meta.Byline,
		Excerpt:     meta.Excerpt,
		SiteName:    meta.SiteName,
		Language:    meta.Language,
		Content:     content,
		TextContent: textOf(content),
	}
}
