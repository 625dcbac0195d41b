// Package scraper owns the headless browser behind the browser strategies:
// launch, the reusable tab pool, per-attempt identity and rendering.
package scraper

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/use-agent/duel/config"
	"github.com/use-agent/duel/models"
)

// Scraper manages the shared browser lifecycle and the page pool.
// It is safe for concurrent use.
type Scraper struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	health      *healthTracker
	activePages atomic.Int32
	ephemeral   atomic.Int32
	startTime   time.Time
}

// NewScraper launches a headless browser and initialises the page pool.
func NewScraper(cfg config.BrowserConfig) (*Scraper, error) {
	controlURL, err := newLauncher(cfg, "").Launch()
	if err != nil {
		return nil, models.NewDuelError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewDuelError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	slog.Info("page pool created", "maxPages", cfg.MaxPages)
	return &Scraper{
		browser:   browser,
		pagePool:  rod.NewPagePool(cfg.MaxPages),
		cfg:       cfg,
		health:    newHealthTracker(cfg.PageMaxUses, cfg.PageMaxAge),
		startTime: time.Now(),
	}, nil
}

// newLauncher configures Chromium with automation tells removed. proxy is
// passed to --proxy-server when set.
func newLauncher(cfg config.BrowserConfig, proxy string) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if proxy != "" {
		l = l.Proxy(proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// Stats returns a snapshot of the pool's current state. Tabs in ephemeral
// proxy browsers count as active.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.cfg.MaxPages,
		ActivePages: int(s.activePages.Load() + s.ephemeral.Load()),
	}
}

// Uptime is the time since the browser was launched.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		s.health.forget(p)
		_ = p.Close()
	})
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("scraper shutdown complete")
}
