package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/duel/engine"
	"github.com/use-agent/duel/identity"
	"github.com/use-agent/duel/models"
)

const defaultRenderTimeout = 30 * time.Second

// Render loads req.URL in a browser tab and returns the rendered page. It
// has the engine.FetchFunc signature and is injected into the browser
// strategies from main.
//
// Without a proxy the tab comes from the shared pool. Chromium applies
// proxies per process, so an identity with a proxy gets its own short-lived
// browser.
func (s *Scraper) Render(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if req.Identity.Proxy != "" {
		return s.renderEphemeral(ctx, req)
	}

	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		p, err := s.browser.Page(proto.TargetCreateTarget{})
		if err == nil {
			s.health.track(p)
		}
		return p, err
	})
	if err != nil {
		s.pagePool.Put(nil)
		return nil, models.NewDuelError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}

	res, err := s.render(ctx, page, req, true)

	// Blank the tab with the original, context-free page so cleanup works
	// after the request context expired.
	if navErr := page.Navigate("about:blank"); navErr != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
	}
	s.release(page, err == nil)
	return res, err
}

// renderEphemeral launches a dedicated browser behind the identity's proxy.
func (s *Scraper) renderEphemeral(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	s.ephemeral.Add(1)
	defer s.ephemeral.Add(-1)

	server, user, pass, err := splitProxy(req.Identity.Proxy)
	if err != nil {
		return nil, models.NewDuelError(models.ErrCodeNavigation, "invalid proxy", err)
	}

	l := newLauncher(s.cfg, server).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewDuelError(models.ErrCodeBrowserCrash, "failed to launch proxy browser", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewDuelError(models.ErrCodeBrowserCrash, "failed to connect to proxy browser", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			l.Kill()
		}
	}()

	if user != "" {
		wait := browser.HandleAuth(user, pass)
		go func() { _ = wait() }()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewDuelError(models.ErrCodeBrowserCrash, "failed to open tab", err)
	}
	// Proxy auth uses the Fetch domain, which request hijacking would fight.
	return s.render(ctx, page, req, user == "")
}

// render runs one page load:
//
//  1. identity      – user agent override and extra headers
//  2. stealth       – anti-detection script (before navigation)
//  3. hijack        – block heavy resources and ads (before navigation)
//  4. navigate      – bound to ctx
//  5. wait          – DOM stable
//  6. extract       – HTML, title, visible text, status, final URL
func (s *Scraper) render(ctx context.Context, page *rod.Page, req *engine.FetchRequest, hijack bool) (*engine.FetchResult, error) {
	applyIdentity(page, req)

	if req.Stealth {
		remove, err := page.EvalOnNewDocument(stealth.JS)
		if err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		} else {
			defer func() { _ = remove() }()
		}
	}

	if hijack {
		if router := setupHijack(page, newResourceFilter(s.cfg.BlockedResourceTypes, s.cfg.BlockAds)); router != nil {
			defer func() { _ = router.Stop() }()
		}
	}

	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	res := &engine.FetchResult{
		HTML:       rawHTML,
		Title:      evalString(p, `() => document.title`),
		Text:       evalString(p, `() => document.body ? document.body.innerText : ""`),
		StatusCode: navigationStatus(p),
		FinalURL:   evalString(p, `() => window.location.href`),
	}
	if res.FinalURL == "" {
		res.FinalURL = req.URL
	}
	return res, nil
}

// navigationStatus reads the document's HTTP status from the Navigation
// Timing entry. Listening for Network events instead would clash with the
// Fetch domain used by hijacking. 0 when unavailable.
func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders
// (map[string]gson.JSON).
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// splitProxy separates credentials from a proxy URL, since Chromium's
// --proxy-server takes none.
func splitProxy(raw string) (server, user, pass string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", err
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("proxy %q has no host", raw)
	}
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	scheme := u.Scheme
	if scheme == "socks5h" {
		scheme = "socks5"
	}
	return scheme + "://" + u.Host, user, pass, nil
}

// categorizeError maps rod errors to coded errors.
func categorizeError(err error, msg string) *models.DuelError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewDuelError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewDuelError(models.ErrCodeTimeout, "render canceled", err)
	default:
		return models.NewDuelError(models.ErrCodeNavigation, msg, err)
	}
}

// applyIdentity sets the user agent and extra headers of req's identity on
// a tab. Failures are logged; the load proceeds with browser defaults.
func applyIdentity(c proto.Client, req *engine.FetchRequest) {
	ua := req.Identity.UserAgent
	if ua == "" {
		ua = identity.DefaultUserAgents[0]
	}
	if err := (proto.NetworkSetUserAgentOverride{UserAgent: ua}).Call(c); err != nil {
		slog.Warn("user agent override failed", "url", req.URL, "error", err)
	}
	headers := map[string]string{
		"Accept-Language": identity.Headers(req.Identity)["Accept-Language"],
	}
	if u, err := url.Parse(req.URL); err == nil {
		headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}).Call(c); err != nil {
		slog.Warn("extra headers failed", "url", req.URL, "error", err)
	}
}
