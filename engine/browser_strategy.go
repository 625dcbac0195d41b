package engine

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/duel/models"
)

const defaultBrowserTimeout = 30 * time.Second

// BrowserStrategy renders the page in a headless browser through an
// injected FetchFunc (the rod scraper). The stealth variant injects the
// anti-detection script before navigation and races as "browser:stealth".
type BrowserStrategy struct {
	id      string
	render  FetchFunc
	stealth bool
	timeout time.Duration
}

// NewBrowserStrategy creates a BrowserStrategy. A non-positive timeout
// uses 30s.
func NewBrowserStrategy(render FetchFunc, stealth bool, timeout time.Duration) *BrowserStrategy {
	id := StrategyBrowser
	if stealth {
		id = StrategyBrowserStealth
	}
	if timeout <= 0 {
		timeout = defaultBrowserTimeout
	}
	return &BrowserStrategy{id: id, render: render, stealth: stealth, timeout: timeout}
}

// ID returns the strategy ID this instance races under.
func (s *BrowserStrategy) ID() string { return s.id }

// Attempt implements Strategy. A render succeeds on a 2xx status, or on an
// unknown status (0) when HTML came back.
func (s *BrowserStrategy) Attempt(ctx context.Context, targetURL string, id models.Identity) models.Outcome {
	start := time.Now()
	if s.render == nil {
		return models.FailedOutcome(targetURL, s.id, 0, 0,
			models.NewDuelError(models.ErrCodeBrowserCrash, "browser renderer not configured", nil))
	}

	res, err := s.render(ctx, &FetchRequest{
		URL:      targetURL,
		Identity: id,
		Timeout:  s.timeout,
		Stealth:  s.stealth,
	})
	elapsed := time.Since(start)
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode
		}
		return models.FailedOutcome(targetURL, s.id, elapsed, status, err)
	}
	if res == nil {
		return models.FailedOutcome(targetURL, s.id, elapsed, 0, errors.New("renderer returned no page"))
	}

	ok := (res.StatusCode >= 200 && res.StatusCode <= 299) || (res.StatusCode == 0 && res.HTML != "")
	var msg string
	if !ok {
		msg = models.NewDuelError(models.ErrCodeNavigation, "page rendered with a non-success status", nil).Error()
	}

	text := res.Text
	if text == "" {
		text = extractVisibleText(res.HTML)
	}
	title := res.Title
	if title == "" {
		title = extractTitle(res.HTML)
	}

	return models.NewOutcome(models.OutcomeParams{
		TargetURL:    targetURL,
		StrategyID:   s.id,
		Succeeded:    ok,
		Elapsed:      elapsed,
		StatusCode:   res.StatusCode,
		Content:      res.HTML,
		ErrorMessage: msg,
		Attributes: models.Attributes{
			models.AttrStructuredData: false,
			models.AttrMarkdown:       false,
			models.AttrCleanText:      false,
			models.AttrRawHTML:        res.HTML,
			models.AttrTextContent:    text,
			models.AttrTitle:          title,
			models.AttrFinalURL:       res.FinalURL,
		},
	})
}
