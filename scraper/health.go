package scraper

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-rod/rod"
)

// Tab health scoring: a success lowers the error score by 0.5 (min 0), a
// failure raises it by 1. A tab is retired once any of these holds:
//   - error score >= 3
//   - used maxUses times
//   - older than maxAge
const (
	healthSuccessCredit  = 0.5
	healthFailurePenalty = 1.0
	healthRetireScore    = 3.0
)

type tabHealth struct {
	errScore float64
	uses     int
	created  time.Time
}

func (h *tabHealth) record(ok bool) {
	h.uses++
	if ok {
		h.errScore = math.Max(0, h.errScore-healthSuccessCredit)
	} else {
		h.errScore += healthFailurePenalty
	}
}

// healthTracker keeps tabHealth per pooled tab. Generic over the key so
// the scoring can be tested without a browser.
type healthTracker struct {
	mu      sync.Mutex
	tabs    map[any]*tabHealth
	maxUses int
	maxAge  time.Duration
	now     func() time.Time
}

func newHealthTracker(maxUses int, maxAge time.Duration) *healthTracker {
	if maxUses <= 0 {
		maxUses = 50
	}
	if maxAge <= 0 {
		maxAge = 50 * time.Minute
	}
	return &healthTracker{
		tabs:    make(map[any]*tabHealth),
		maxUses: maxUses,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// report records one render on tab and reports whether the tab should be
// retired instead of returned to the pool. A retired tab is forgotten.
func (t *healthTracker) report(tab any, ok bool) (retire bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, found := t.tabs[tab]
	if !found {
		h = &tabHealth{created: t.now()}
		t.tabs[tab] = h
	}
	h.record(ok)
	retire = h.errScore >= healthRetireScore ||
		h.uses >= t.maxUses ||
		t.now().Sub(h.created) >= t.maxAge
	if retire {
		delete(t.tabs, tab)
	}
	return retire
}

// track starts the age clock of a new tab.
func (t *healthTracker) track(tab any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tabs[tab] = &tabHealth{created: t.now()}
}

func (t *healthTracker) forget(tab any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tabs, tab)
}

// release returns page to the pool, or closes it and frees its pool slot
// when its health says so.
func (s *Scraper) release(page *rod.Page, ok bool) {
	if s.health.report(page, ok) {
		slog.Debug("retiring browser tab", "succeeded", ok)
		_ = page.Close()
		s.pagePool.Put(nil)
		return
	}
	s.pagePool.Put(page)
}
