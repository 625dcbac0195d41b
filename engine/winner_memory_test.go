package engine

import (
	"testing"
	"time"
)

func newTestWinnerMemory(t *testing.T, ttl time.Duration) (*WinnerMemory, *time.Time) {
	t.Helper()
	wm := NewWinnerMemory(ttl)
	t.Cleanup(wm.Stop)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	wm.now = func() time.Time { return now }
	return wm, &now
}

func TestWinnerMemory_PerDomain(t *testing.T) {
	wm, _ := newTestWinnerMemory(t, time.Hour)

	wm.Set("https://Example.com/a", "browser")
	if got := wm.Get("http://example.com/other?q=1"); got != "browser" {
		t.Errorf("Get = %q, want browser", got)
	}
	if got := wm.Get("https://example.org/"); got != "" {
		t.Errorf("unrelated domain = %q", got)
	}

	wm.Set("https://example.com/b", "lightweight")
	if got := wm.Get("https://example.com/"); got != "lightweight" {
		t.Errorf("Get after overwrite = %q", got)
	}

	wm.Set("https://example.com/", "")
	if got := wm.Get("https://example.com/"); got != "" {
		t.Errorf("empty winner should forget the domain, got %q", got)
	}
}

func TestWinnerMemory_Expiry(t *testing.T) {
	wm, now := newTestWinnerMemory(t, time.Hour)
	wm.Set("https://a.com", "browser")
	wm.Set("https://b.com", "lightweight")

	*now = now.Add(59 * time.Minute)
	if wm.Get("https://a.com") != "browser" {
		t.Error("entry expired early")
	}

	*now = now.Add(2 * time.Minute)
	if got := wm.Get("https://a.com"); got != "" {
		t.Errorf("expired entry returned %q", got)
	}

	wm.prune()
	n := 0
	wm.store.Range(func(any, any) bool { n++; return true })
	if n != 0 {
		t.Errorf("%d entries survived pruning", n)
	}
	wm.Stop()
}

func TestDomain(t *testing.T) {
	tests := map[string]string{
		"https://WWW.Example.com:8443/x": "www.example.com",
		"http://example.com":             "example.com",
		"not a url":                      "not a url",
	}
	for in, want := range tests {
		if got := Domain(in); got != want {
			t.Errorf("Domain(%q) = %q, want %q", in, got, want)
		}
	}
}
