package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"

	"github.com/use-agent/duel/identity"
	"github.com/use-agent/duel/models"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxBodyBytes       = 10 << 20
	maxRedirects       = 10
)

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1, since http.Transport cannot speak h2 over a utls connection.
// nil when the spec could not be generated.
var chromeH1Spec *tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = &spec
}

// HTTPStrategy is the lightweight strategy: one GET with browser-like
// headers and a Chrome TLS fingerprint, no JavaScript.
//
// Clients are kept per proxy so connections are reused across attempts.
// SOCKS5 proxies keep the Chrome fingerprint end to end; behind an HTTP
// proxy the tunnelled TLS handshake to the target is Go's own.
type HTTPStrategy struct {
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*http.Client // proxy URL ("" = direct) -> client
}

// NewHTTPStrategy creates an HTTPStrategy with a per-attempt timeout.
// A non-positive timeout uses 30s.
func NewHTTPStrategy(timeout time.Duration) *HTTPStrategy {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPStrategy{
		timeout: timeout,
		clients: make(map[string]*http.Client),
	}
}

// Attempt implements Strategy. It succeeds on any 2xx status. A non-2xx
// response is a failure that still carries the body and status code.
func (s *HTTPStrategy) Attempt(ctx context.Context, targetURL string, id models.Identity) models.Outcome {
	start := time.Now()
	res, err := s.Fetch(ctx, &FetchRequest{URL: targetURL, Identity: id})
	elapsed := time.Since(start)
	if res == nil {
		return models.FailedOutcome(targetURL, StrategyLightweight, elapsed, 0, err)
	}

	var msg string
	if err != nil {
		msg = err.Error()
	}
	return models.NewOutcome(models.OutcomeParams{
		TargetURL:    targetURL,
		StrategyID:   StrategyLightweight,
		Succeeded:    err == nil,
		Elapsed:      elapsed,
		StatusCode:   res.StatusCode,
		Content:      res.HTML,
		ErrorMessage: msg,
		Attributes: models.Attributes{
			models.AttrStructuredData: false,
			models.AttrMarkdown:       false,
			models.AttrCleanText:      false,
			models.AttrRawHTML:        res.HTML,
			models.AttrTextContent:    res.Text,
			models.AttrTitle:          res.Title,
			models.AttrFinalURL:       res.FinalURL,
			models.AttrContentType:    res.ContentType,
			models.AttrRedirects:      res.Redirects,
			models.AttrNeedsBrowser:   needsBrowser(res.HTML, res.Text),
		},
	})
}

// Fetch performs the GET. It returns a nil result on transport failure, and
// a result together with an error for a non-2xx status. The ExtractStrategy
// uses Fetch as its page source.
func (s *HTTPStrategy) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := s.client(req.Identity.Proxy)
	if err != nil {
		return nil, models.NewDuelError(models.ErrCodeFetch, "invalid proxy", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http_strategy: build request: %w", err)
	}
	id := req.Identity
	if id.UserAgent == "" {
		id.UserAgent = identity.DefaultUserAgents[0]
	}
	for k, v := range identity.Headers(id) {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewDuelError(models.ErrCodeTimeout, fmt.Sprintf("request timed out after %s", timeout), err)
		}
		return nil, models.NewDuelError(models.ErrCodeFetch, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewDuelError(models.ErrCodeTimeout, "timed out reading body", err)
		}
		return nil, models.NewDuelError(models.ErrCodeFetch, "read body", err)
	}

	html := string(body)
	res := &FetchResult{
		HTML:        html,
		Title:       extractTitle(html),
		Text:        extractVisibleText(html),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Redirects:   countRedirects(resp),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, models.NewDuelError(models.ErrCodeFetch, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}
	return res, nil
}

func (s *HTTPStrategy) client(proxyURL string) (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[proxyURL]; ok {
		return c, nil
	}
	c, err := newChromeClient(proxyURL)
	if err != nil {
		return nil, err
	}
	s.clients[proxyURL] = c
	return c, nil
}

// newChromeClient builds a client whose TLS connections use the Chrome
// ClientHello. proxyURL may be "", http(s)://, socks5:// or socks5h://.
func newChromeClient(proxyURL string) (*http.Client, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	dial := dialer.DialContext
	transport := &http.Transport{
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("http_strategy: parse proxy: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			d, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("http_strategy: socks proxy: %w", err)
			}
			cd, ok := d.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("http_strategy: socks dialer does not support contexts")
			}
			dial = cd.DialContext
		default:
			return nil, fmt.Errorf("http_strategy: unsupported proxy scheme %q", u.Scheme)
		}
	}

	transport.DialContext = dial
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		host, _, _ := net.SplitHostPort(addr)
		var tlsConn *tls.UConn
		if chromeH1Spec != nil {
			tlsConn = tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_strategy: apply tls spec: %w", err)
			}
		} else {
			tlsConn = tls.UClient(conn, &tls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}, tls.HelloGolang)
		}
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}, nil
}

// countRedirects walks the chain of responses that led to resp.
func countRedirects(resp *http.Response) int {
	n := 0
	for r := resp.Request; r != nil && r.Response != nil; r = r.Response.Request {
		n++
	}
	return n
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
