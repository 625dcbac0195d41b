package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DUEL_PORT", "DUEL_PROXIES", "DUEL_IDENTITY_MODE", "DUEL_OBSERVER_GRACE", "DUEL_LLM_API_KEY"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Identity.Mode != "random" || cfg.Identity.Proxies != nil {
		t.Errorf("Identity = %+v", cfg.Identity)
	}
	if cfg.Race.ObserverGrace != 2*time.Second {
		t.Errorf("ObserverGrace = %v, want 2s", cfg.Race.ObserverGrace)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.LLM.APIKey)
	}
	if diff := cmp.Diff([]string{"Image", "Font", "Media"}, cfg.Browser.BlockedResourceTypes); diff != "" {
		t.Errorf("BlockedResourceTypes (-want +got):\n%s", diff)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DUEL_PORT", "9090")
	t.Setenv("DUEL_PROXIES", "http://a:1, socks5://b:2 ,,")
	t.Setenv("DUEL_IDENTITY_MODE", "rotate")
	t.Setenv("DUEL_OBSERVER_GRACE", "500ms")
	t.Setenv("DUEL_RATE_RPS", "2.5")
	t.Setenv("DUEL_BROWSER_ENABLED", "false")

	cfg := Load()
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if diff := cmp.Diff([]string{"http://a:1", "socks5://b:2"}, cfg.Identity.Proxies); diff != "" {
		t.Errorf("Proxies (-want +got):\n%s", diff)
	}
	if cfg.Identity.Mode != "rotate" {
		t.Errorf("Mode = %q", cfg.Identity.Mode)
	}
	if cfg.Race.ObserverGrace != 500*time.Millisecond {
		t.Errorf("ObserverGrace = %v", cfg.Race.ObserverGrace)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Browser.Enabled {
		t.Error("Browser.Enabled = true, want false")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DUEL_PORT", "not-a-number")
	t.Setenv("DUEL_HEADLESS", "maybe")
	t.Setenv("DUEL_HTTP_TIMEOUT", "soon")

	cfg := Load()
	if cfg.Server.Port != 8080 || !cfg.Browser.Headless || cfg.Strategy.HTTPTimeout != 30*time.Second {
		t.Errorf("invalid values did not fall back: port=%d headless=%v timeout=%v",
			cfg.Server.Port, cfg.Browser.Headless, cfg.Strategy.HTTPTimeout)
	}
}
