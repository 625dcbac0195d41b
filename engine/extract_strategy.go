package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/use-agent/duel/models"
)

const defaultExtractTimeout = 60 * time.Second

// CleanedPage is the main content of a page after cleaning.
type CleanedPage struct {
	Markdown string
	Text     string
	Title    string
	Tokens   int
}

// CleanFunc reduces raw HTML to its main content.
type CleanFunc func(rawHTML, pageURL string) (*CleanedPage, error)

// StructureFunc asks a language model to turn cleaned content into JSON.
type StructureFunc func(ctx context.Context, markdown, pageURL string) (json.RawMessage, error)

// ExtractStrategy is the ai-agentic strategy: fetch, clean to Markdown and
// plain text, then extract structured JSON with a language model.
//
// Without a StructureFunc (no API key configured) every attempt fails
// before any network I/O. When the model fails after cleaning succeeded,
// the outcome is still a success: it carries the Markdown and a partial
// failure message, but no structured data.
type ExtractStrategy struct {
	fetch     FetchFunc
	clean     CleanFunc
	structure StructureFunc
	timeout   time.Duration
}

// NewExtractStrategy creates an ExtractStrategy. timeout bounds the whole
// pipeline; a non-positive value uses 60s.
func NewExtractStrategy(fetch FetchFunc, clean CleanFunc, structure StructureFunc, timeout time.Duration) *ExtractStrategy {
	if timeout <= 0 {
		timeout = defaultExtractTimeout
	}
	return &ExtractStrategy{fetch: fetch, clean: clean, structure: structure, timeout: timeout}
}

// Attempt implements Strategy.
func (s *ExtractStrategy) Attempt(ctx context.Context, targetURL string, id models.Identity) models.Outcome {
	start := time.Now()
	fail := func(status int, err error) models.Outcome {
		return models.FailedOutcome(targetURL, StrategyAIAgentic, time.Since(start), status, err)
	}

	if s.structure == nil {
		return fail(0, models.NewDuelError(models.ErrCodeLLMAuthFailure, "llm api key not configured", nil))
	}
	if s.fetch == nil || s.clean == nil {
		return fail(0, models.NewDuelError(models.ErrCodeInternal, "extract pipeline not configured", nil))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.fetch(ctx, &FetchRequest{URL: targetURL, Identity: id, Timeout: s.timeout})
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode
		}
		return fail(status, err)
	}

	page, err := s.clean(res.HTML, res.FinalURL)
	if err != nil {
		return fail(res.StatusCode, models.NewDuelError(models.ErrCodeExtraction, "cleaning failed", err))
	}
	if page == nil || page.Markdown == "" {
		return fail(res.StatusCode, models.NewDuelError(models.ErrCodeExtraction, "no main content found", nil))
	}

	attrs := models.Attributes{
		models.AttrStructuredData:  false,
		models.AttrMarkdown:        true,
		models.AttrCleanText:       page.Text != "",
		models.AttrTextContent:     page.Text,
		models.AttrTitle:           page.Title,
		models.AttrFinalURL:        res.FinalURL,
		models.AttrEstimatedTokens: page.Tokens,
	}
	var msg string
	if structured, err := s.extract(ctx, page.Markdown, res.FinalURL); err != nil {
		msg = fmt.Sprintf("structured extraction failed: %v", err)
	} else {
		attrs[models.AttrStructuredData] = true
		attrs[models.AttrStructured] = structured
	}

	return models.NewOutcome(models.OutcomeParams{
		TargetURL:    targetURL,
		StrategyID:   StrategyAIAgentic,
		Succeeded:    true,
		Elapsed:      time.Since(start),
		StatusCode:   res.StatusCode,
		Content:      page.Markdown,
		ErrorMessage: msg,
		Attributes:   attrs,
	})
}

// extract runs the model and decodes its JSON so the outcome holds plain
// values rather than raw bytes.
func (s *ExtractStrategy) extract(ctx context.Context, markdown, pageURL string) (any, error) {
	data, err := s.structure(ctx, markdown, pageURL)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	return v, nil
}
