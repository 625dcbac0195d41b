// Package identity supplies the per-attempt network identity (user agent and
// optional proxy) handed to each strategy in a race.
package identity

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/use-agent/duel/models"
)

// DefaultUserAgents is used when no custom user agents are configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.5",
}

// Supplier hands out identities. Random and Next are safe for concurrent use;
// Next advances a shared round-robin cursor over the proxy list.
type Supplier struct {
	userAgents []string
	proxies    []string
	cursor     atomic.Uint64
}

// New creates a Supplier. An empty userAgents list falls back to
// DefaultUserAgents; an empty proxies list means direct connections.
func New(userAgents, proxies []string) *Supplier {
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	return &Supplier{
		userAgents: append([]string(nil), userAgents...),
		proxies:    append([]string(nil), proxies...),
	}
}

// Random returns a random user agent and a random proxy, if any.
func (s *Supplier) Random() models.Identity {
	id := models.Identity{UserAgent: pick(s.userAgents)}
	if len(s.proxies) > 0 {
		id.Proxy = pick(s.proxies)
	}
	return id
}

// Next returns a random user agent and the next proxy in rotation.
func (s *Supplier) Next() models.Identity {
	id := models.Identity{UserAgent: pick(s.userAgents)}
	if n := uint64(len(s.proxies)); n > 0 {
		id.Proxy = s.proxies[(s.cursor.Add(1)-1)%n]
	}
	return id
}

// Proxies returns the number of configured proxies.
func (s *Supplier) Proxies() int {
	return len(s.proxies)
}

// Headers returns browser-like request headers for id, with a randomized
// Accept-Language. Accept-Encoding is "identity" because bodies are read
// uncompressed.
func Headers(id models.Identity) map[string]string {
	return map[string]string{
		"User-Agent":                id.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           pick(acceptLanguages),
		"Accept-Encoding":           "identity",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
}

func pick(list []string) string {
	return list[rand.IntN(len(list))]
}
