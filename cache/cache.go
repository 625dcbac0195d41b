// Package cache keeps recent race reports so a caller can trade freshness
// for not racing the same URL again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/duel/models"
)

// maxRetention bounds how long any report is kept, whatever max age a
// caller asks for.
const maxRetention = time.Hour

type entry struct {
	report    *models.RaceReport
	createdAt time.Time
}

// Cache is an in-memory report cache. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	once       sync.Once
}

// New creates a Cache holding at most maxEntries reports and starts a
// goroutine that drops reports older than an hour every 5 minutes.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key identifies a race by target URL, strategy list (order matters, it
// is the dispatch order) and identity mode.
func Key(url string, strategies []string, identityMode string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(strategies, ",")))
	h.Write([]byte{0})
	h.Write([]byte(identityMode))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a report younger than maxAge. maxAge <= 0 never hits.
func (c *Cache) Get(key string, maxAge time.Duration) (*models.RaceReport, bool) {
	if maxAge <= 0 {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.createdAt) > maxAge {
		return nil, false
	}
	return e.report, true
}

// Set stores a report, evicting the oldest one when full.
func (c *Cache) Set(key string, report *models.RaceReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}
	c.store[key] = &entry{report: report, createdAt: c.now()}
}

// Len returns the number of cached reports.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the cleanup goroutine.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictOlderThan(maxRetention)
		}
	}
}

func (c *Cache) evictOlderThan(age time.Duration) {
	cutoff := c.now().Add(-age)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
