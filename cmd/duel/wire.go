package main

import (
	"io"
	"log/slog"

	"github.com/use-agent/duel/cleaner"
	"github.com/use-agent/duel/config"
	"github.com/use-agent/duel/engine"
	"github.com/use-agent/duel/identity"
	"github.com/use-agent/duel/llm"
	"github.com/use-agent/duel/scraper"
)

// app is the wired set of strategies shared by the serve and race commands.
type app struct {
	cfg          *config.Config
	registry     *engine.Registry
	orchestrator *engine.Orchestrator
	scraper      *scraper.Scraper // nil when the browser is disabled
}

// newApp builds the strategy registry from configuration. Registration
// order is the default dispatch order: lightweight, browser,
// browser:stealth, ai-agentic.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: engine.NewRegistry()}

	httpStrategy := engine.NewHTTPStrategy(cfg.Strategy.HTTPTimeout)
	a.registry.Register(engine.StrategyLightweight, httpStrategy)

	if cfg.Browser.Enabled {
		sc, err := scraper.NewScraper(cfg.Browser)
		if err != nil {
			return nil, err
		}
		a.scraper = sc
		for _, stealth := range []bool{false, true} {
			s := engine.NewBrowserStrategy(sc.Render, stealth, cfg.Strategy.BrowserTimeout)
			a.registry.Register(s.ID(), s)
		}
	}

	cl := cleaner.New(cfg.Strategy.ExtractMode, cfg.Strategy.ExtractSelector)
	clean := func(rawHTML, pageURL string) (*engine.CleanedPage, error) {
		p, err := cl.Clean(rawHTML, pageURL)
		if err != nil {
			return nil, err
		}
		return &engine.CleanedPage{Markdown: p.Markdown, Text: p.Text, Title: p.Title, Tokens: p.Tokens}, nil
	}
	var structure engine.StructureFunc
	if cfg.LLM.APIKey != "" {
		structure = llm.NewClient(cfg.LLM, nil).Structure
	} else {
		slog.Warn("DUEL_LLM_API_KEY not set, ai-agentic attempts will fail")
	}
	a.registry.Register(engine.StrategyAIAgentic,
		engine.NewExtractStrategy(httpStrategy.Fetch, clean, structure, cfg.Strategy.ExtractTimeout))

	supplier := identity.New(cfg.Identity.UserAgents, cfg.Identity.Proxies)
	a.orchestrator = engine.NewOrchestrator(supplier, cfg.Identity.Mode, cfg.Race.ObserverGrace)

	slog.Info("strategies registered",
		"strategies", a.registry.IDs(),
		"proxies", supplier.Proxies(),
		"identity_mode", cfg.Identity.Mode,
	)
	return a, nil
}

// Close shuts the browser down.
func (a *app) Close() {
	if a.scraper != nil {
		a.scraper.Close()
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
