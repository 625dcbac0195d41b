package handler

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/duel/models"
)

type storedReport struct {
	report    *models.RaceReport
	createdAt time.Time
}

// ReportStore keeps completed race reports retrievable by ID for a TTL.
type ReportStore struct {
	reports sync.Map // race ID -> *storedReport
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewReportStore creates a ReportStore and starts a goroutine that expires
// reports every 5 minutes. Call Stop to end it.
func NewReportStore(ttl time.Duration) *ReportStore {
	rs := &ReportStore{ttl: ttl, done: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-rs.done:
				return
			case <-ticker.C:
				rs.expire(time.Now())
			}
		}
	}()
	return rs
}

// Save stores a report under its ID.
func (rs *ReportStore) Save(r *models.RaceReport) {
	rs.reports.Store(r.ID, &storedReport{report: r, createdAt: time.Now()})
}

// Load returns a stored report that has not expired.
func (rs *ReportStore) Load(id string) (*models.RaceReport, bool) {
	v, ok := rs.reports.Load(id)
	if !ok {
		return nil, false
	}
	sr := v.(*storedReport)
	if time.Since(sr.createdAt) > rs.ttl {
		rs.reports.Delete(id)
		return nil, false
	}
	return sr.report, true
}

// Stop ends the expiry goroutine.
func (rs *ReportStore) Stop() {
	rs.once.Do(func() { close(rs.done) })
}

func (rs *ReportStore) expire(now time.Time) {
	cutoff := now.Add(-rs.ttl)
	rs.reports.Range(func(key, value any) bool {
		if value.(*storedReport).createdAt.Before(cutoff) {
			rs.reports.Delete(key)
		}
		return true
	})
}

// randomID generates a short random hex string for race IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
