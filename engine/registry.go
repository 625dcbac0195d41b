package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/use-agent/duel/models"
)

// Registry maps strategy IDs to strategies. Registration order is the
// default dispatch order.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	order      []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds or replaces a strategy.
func (r *Registry) Register(id string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[id]; !ok {
		r.order = append(r.order, id)
	}
	r.strategies[id] = s
}

// IDs returns the registered IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Select resolves ids to race entries, keeping their order. It rejects an
// empty selection, unknown IDs and repeated IDs.
func (r *Registry) Select(ids []string) ([]Entry, error) {
	if len(ids) == 0 {
		return nil, models.NewDuelError(models.ErrCodeNoStrategies, "no strategies selected", nil)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s, ok := r.strategies[id]
		if !ok {
			return nil, models.NewDuelError(models.ErrCodeUnknownStrategy,
				fmt.Sprintf("unknown strategy %q (available: %v)", id, r.order), nil)
		}
		if _, dup := seen[id]; dup {
			return nil, models.NewDuelError(models.ErrCodeDuplicateStrategy,
				fmt.Sprintf("strategy %q listed more than once", id), nil)
		}
		seen[id] = struct{}{}
		entries = append(entries, Entry{ID: id, Strategy: s})
	}
	return entries, nil
}
