package scoring

import (
	"slices"
	"sync"

	"github.com/use-agent/duel/models"
)

// Store is an append-only, insertion-ordered collection of outcomes.
// It performs no deduplication. It is safe for concurrent use, so several
// races may feed one store; Report still scores the contents as a single
// race, so winner determination sees only the first success per strategy.
type Store struct {
	mu       sync.Mutex
	outcomes []models.Outcome
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add appends one outcome.
func (s *Store) Add(o models.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
}

// AddAll appends outcomes in order.
func (s *Store) AddAll(outcomes ...models.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcomes...)
}

// Outcomes returns a snapshot of the stored outcomes in insertion order.
func (s *Store) Outcomes() []models.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.outcomes)
}

// Len returns the number of stored outcomes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

// Report scores the stored outcomes as one race against targetURL.
func (s *Store) Report(targetURL string) models.RaceReport {
	return BuildReport(targetURL, s.Outcomes())
}

// Clear drops every stored outcome. Call it between independent races.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = nil
}
