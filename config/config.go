package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Strategy  StrategyConfig
	LLM       LLMConfig
	Identity  IdentityConfig
	Race      RaceConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance behind the browser
// strategies.
type BrowserConfig struct {
	// Enabled registers the browser and browser:stealth strategies.
	Enabled bool // default: true

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types to block while rendering.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking domains.
	BlockAds bool // default: true

	// PageMaxUses and PageMaxAge retire pooled tabs.
	PageMaxUses int           // default: 50
	PageMaxAge  time.Duration // default: 50m
}

// StrategyConfig holds the per-strategy timeouts. Each strategy bounds its
// own attempt; races have no overall deadline.
type StrategyConfig struct {
	HTTPTimeout    time.Duration // default: 30s
	BrowserTimeout time.Duration // default: 30s
	ExtractTimeout time.Duration // default: 60s

	// ExtractMode is the cleaning mode of the ai-agentic strategy:
	// "readability", "pruning" or "auto". default: "auto"
	ExtractMode string

	// ExtractSelector optionally narrows cleaning to a CSS selector.
	ExtractSelector string
}

// LLMConfig configures the OpenAI-compatible model used by the ai-agentic
// strategy. An empty APIKey makes that strategy fail closed.
type LLMConfig struct {
	APIKey  string
	Model   string // default: "gpt-4o-mini"
	BaseURL string // default: "https://api.openai.com/v1"
}

// IdentityConfig controls per-attempt identities.
type IdentityConfig struct {
	// UserAgents overrides the built-in user agent list.
	UserAgents []string

	// Proxies is the proxy pool (http, https, socks5 URLs).
	Proxies []string

	// Mode is "random" or "rotate". default: "random"
	Mode string
}

// RaceConfig controls race bookkeeping.
type RaceConfig struct {
	// ObserverGrace bounds the wait for a slow progress observer.
	ObserverGrace time.Duration // default: 2s

	// WinnerTTL is how long a domain's last winner is remembered.
	WinnerTTL time.Duration // default: 24h

	// ReportTTL is how long completed reports stay retrievable by ID.
	ReportTTL time.Duration // default: 1h
}

// CacheConfig controls the race report cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached reports.
	MaxEntries int // default: 1000
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("DUEL_HOST", "0.0.0.0"),
			Port: envIntOr("DUEL_PORT", 8080),
			Mode: envOr("DUEL_MODE", "release"),
		},
		Browser: BrowserConfig{
			Enabled:              envBoolOr("DUEL_BROWSER_ENABLED", true),
			Headless:             envBoolOr("DUEL_HEADLESS", true),
			MaxPages:             envIntOr("DUEL_MAX_PAGES", 10),
			NoSandbox:            envBoolOr("DUEL_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("DUEL_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("DUEL_BLOCKED_RESOURCES", []string{"Image", "Font", "Media"}),
			BlockAds:             envBoolOr("DUEL_BLOCK_ADS", true),
			PageMaxUses:          envIntOr("DUEL_PAGE_MAX_USES", 50),
			PageMaxAge:           envDurationOr("DUEL_PAGE_MAX_AGE", 50*time.Minute),
		},
		Strategy: StrategyConfig{
			HTTPTimeout:     envDurationOr("DUEL_HTTP_TIMEOUT", 30*time.Second),
			BrowserTimeout:  envDurationOr("DUEL_BROWSER_TIMEOUT", 30*time.Second),
			ExtractTimeout:  envDurationOr("DUEL_EXTRACT_TIMEOUT", 60*time.Second),
			ExtractMode:     envOr("DUEL_EXTRACT_MODE", "auto"),
			ExtractSelector: os.Getenv("DUEL_EXTRACT_SELECTOR"),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("DUEL_LLM_API_KEY"),
			Model:   envOr("DUEL_LLM_MODEL", "gpt-4o-mini"),
			BaseURL: envOr("DUEL_LLM_BASE_URL", "https://api.openai.com/v1"),
		},
		Identity: IdentityConfig{
			UserAgents: envSliceOr("DUEL_USER_AGENTS", nil),
			Proxies:    envSliceOr("DUEL_PROXIES", nil),
			Mode:       envOr("DUEL_IDENTITY_MODE", "random"),
		},
		Race: RaceConfig{
			ObserverGrace: envDurationOr("DUEL_OBSERVER_GRACE", 2*time.Second),
			WinnerTTL:     envDurationOr("DUEL_WINNER_TTL", 24*time.Hour),
			ReportTTL:     envDurationOr("DUEL_REPORT_TTL", time.Hour),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("DUEL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("DUEL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("DUEL_RATE_RPS", 1.0),
			Burst:             envIntOr("DUEL_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("DUEL_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("DUEL_LOG_LEVEL", "info"),
			Format: envOr("DUEL_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
