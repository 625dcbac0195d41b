package engine

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// winnerEntry is the last winning strategy for a domain.
type winnerEntry struct {
	strategyID string
	expiresAt  time.Time
}

// WinnerMemory remembers which strategy won the latest race per domain.
// Entries expire after the configured TTL and are pruned hourly.
type WinnerMemory struct {
	store sync.Map // domain (string) -> *winnerEntry
	ttl   time.Duration
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

// NewWinnerMemory creates a WinnerMemory with the given TTL and starts the
// background pruning goroutine. Call Stop to end it.
func NewWinnerMemory(ttl time.Duration) *WinnerMemory {
	wm := &WinnerMemory{
		ttl:  ttl,
		now:  time.Now,
		done: make(chan struct{}),
	}
	go wm.cleanupLoop()
	return wm
}

// Get returns the remembered winner for the URL's domain, or "".
func (wm *WinnerMemory) Get(rawURL string) string {
	domain := Domain(rawURL)
	val, ok := wm.store.Load(domain)
	if !ok {
		return ""
	}
	entry := val.(*winnerEntry)
	if wm.now().After(entry.expiresAt) {
		wm.store.Delete(domain)
		return ""
	}
	return entry.strategyID
}

// Set records the winner of a race against rawURL. An empty strategyID
// forgets the domain, so an all-failed race clears a stale winner.
func (wm *WinnerMemory) Set(rawURL, strategyID string) {
	domain := Domain(rawURL)
	if strategyID == "" {
		wm.store.Delete(domain)
		return
	}
	wm.store.Store(domain, &winnerEntry{
		strategyID: strategyID,
		expiresAt:  wm.now().Add(wm.ttl),
	})
}

// Stop terminates the background cleanup goroutine. It is safe to call
// more than once.
func (wm *WinnerMemory) Stop() {
	wm.once.Do(func() { close(wm.done) })
}

func (wm *WinnerMemory) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-wm.done:
			return
		case <-ticker.C:
			wm.prune()
		}
	}
}

func (wm *WinnerMemory) prune() {
	now := wm.now()
	wm.store.Range(func(key, value any) bool {
		if now.After(value.(*winnerEntry).expiresAt) {
			wm.store.Delete(key)
		}
		return true
	})
}

// Domain returns the lower-cased host name of rawURL, or rawURL itself when
// it does not parse.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
