package engine

import (
	"context"
	"time"

	"github.com/use-agent/duel/models"
)

// Strategy IDs of the built-in strategies. The part before ':' names the
// strategy family used for cost accounting.
const (
	StrategyLightweight    = "lightweight"
	StrategyBrowser        = "browser"
	StrategyBrowserStealth = "browser:stealth"
	StrategyAIAgentic      = "ai-agentic"
)

// Strategy is one way of retrieving a URL.
//
// Attempt must fail closed: transport errors, timeouts and bad statuses are
// reported as an Outcome with Succeeded=false, never as a panic. Each
// strategy bounds its own run time; the orchestrator imposes no deadline.
type Strategy interface {
	Attempt(ctx context.Context, targetURL string, id models.Identity) models.Outcome
}

// Entry pairs a strategy with the ID it races under.
type Entry struct {
	ID       string
	Strategy Strategy
}

// IdentitySupplier hands out per-attempt network identities. Both methods
// are called concurrently from race goroutines.
type IdentitySupplier interface {
	Random() models.Identity
	Next() models.Identity
}

// FetchRequest describes one page retrieval by a transport.
type FetchRequest struct {
	URL      string
	Identity models.Identity
	Timeout  time.Duration
	Stealth  bool
}

// FetchResult is what a transport retrieved. StatusCode is 0 when the
// transport cannot observe it.
type FetchResult struct {
	HTML        string
	Title       string
	Text        string
	StatusCode  int
	FinalURL    string
	ContentType string
	Redirects   int
}

// FetchFunc retrieves a page. The rod scraper is injected as a FetchFunc
// from main to avoid an import cycle (engine/ -> scraper/).
type FetchFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)
