package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/duel/models"
)

// DefaultObserverGrace bounds how long Run waits for a slow observer after
// the last strategy has reported.
const DefaultObserverGrace = 2 * time.Second

// Observer receives race progress. Calls are serialized on one goroutine,
// so an Observer needs no locking of its own, but it should return quickly.
// Once Run has given up waiting for a slow observer, undelivered events are
// dropped; only the call already in progress may still finish after Run
// returns.
type Observer func(models.ProgressEvent)

// Result is one strategy's outcome in dispatch order.
type Result struct {
	StrategyID string         `json:"strategy_id"`
	Outcome    models.Outcome `json:"outcome"`
}

// Orchestrator races strategies against one URL.
//
// Every strategy runs to completion: there is no race deadline, no
// cancellation when a sibling fails or wins, and no retry. Strategies run
// under a context detached from the caller's cancellation; each strategy's
// own timeout is the only bound.
type Orchestrator struct {
	supplier      IdentitySupplier
	mode          string
	observerGrace time.Duration
}

// NewOrchestrator creates an Orchestrator. mode is models.IdentityModeRandom
// or models.IdentityModeRotate; anything else means random. A non-positive
// observerGrace uses DefaultObserverGrace. supplier may be nil, in which
// case strategies get an empty identity.
func NewOrchestrator(supplier IdentitySupplier, mode string, observerGrace time.Duration) *Orchestrator {
	if observerGrace <= 0 {
		observerGrace = DefaultObserverGrace
	}
	return &Orchestrator{
		supplier:      supplier,
		mode:          mode,
		observerGrace: observerGrace,
	}
}

// WithMode returns a copy of o that obtains identities in the given mode.
// An empty mode keeps the current one.
func (o *Orchestrator) WithMode(mode string) *Orchestrator {
	c := *o
	if mode != "" {
		c.mode = mode
	}
	return &c
}

// Mode returns the identity mode.
func (o *Orchestrator) Mode() string { return o.mode }

// Run dispatches every entry concurrently against targetURL and returns one
// Result per entry in dispatch order, whatever the completion order.
//
// Only input validation produces an error: a malformed URL, a nil strategy
// or a duplicate entry ID. Zero entries yields an empty result and no error.
// observer may be nil.
func (o *Orchestrator) Run(ctx context.Context, targetURL string, entries []Entry, observer Observer) ([]Result, error) {
	if err := ValidateURL(targetURL); err != nil {
		return nil, err
	}
	if err := validateEntries(entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []Result{}, nil
	}

	// waiting + running + done per entry.
	n := newNotifier(observer, 3*len(entries))
	for _, e := range entries {
		n.send(models.ProgressEvent{StrategyID: e.ID, Status: models.StatusWaiting})
	}

	type indexed struct {
		i       int
		outcome models.Outcome
	}
	results := make(chan indexed, len(entries))
	runCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.send(models.ProgressEvent{StrategyID: e.ID, Status: models.StatusRunning})
			results <- indexed{i: i, outcome: o.attempt(runCtx, targetURL, e)}
		}()
	}

	out := make([]Result, len(entries))
	for range len(entries) {
		r := <-results
		out[r.i] = Result{StrategyID: entries[r.i].ID, Outcome: r.outcome}
		done := r.outcome
		n.send(models.ProgressEvent{StrategyID: entries[r.i].ID, Status: models.StatusDone, Outcome: &done})
		slog.Debug("strategy finished",
			"strategy", entries[r.i].ID, "url", targetURL,
			"succeeded", r.outcome.Succeeded, "elapsed", r.outcome.ElapsedSeconds,
		)
	}
	wg.Wait()

	if !n.finish(o.observerGrace) {
		slog.Warn("race observer still busy, returning without it",
			"url", targetURL, "grace", o.observerGrace)
	}
	return out, nil
}

// Outcomes strips the strategy IDs from results.
func Outcomes(results []Result) []models.Outcome {
	out := make([]models.Outcome, len(results))
	for i, r := range results {
		out[i] = r.Outcome
	}
	return out
}

// attempt runs one strategy with a fresh identity. A panic inside the
// strategy becomes a failed outcome.
func (o *Orchestrator) attempt(ctx context.Context, targetURL string, e Entry) (out models.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy panicked",
				"strategy", e.ID, "url", targetURL, "panic", r, "stack", string(debug.Stack()))
			out = models.FailedOutcome(targetURL, e.ID, time.Since(start), 0, fmt.Errorf("strategy panicked: %v", r))
		}
	}()

	id := o.identity()
	slog.Debug("strategy starting", "strategy", e.ID, "url", targetURL, "proxy", id.Proxy != "")
	out = e.Strategy.Attempt(ctx, targetURL, id)
	out.StrategyID = e.ID
	return out
}

func (o *Orchestrator) identity() models.Identity {
	if o.supplier == nil {
		return models.Identity{}
	}
	if o.mode == models.IdentityModeRotate {
		return o.supplier.Next()
	}
	return o.supplier.Random()
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return models.NewDuelError(models.ErrCodeInvalidURL, fmt.Sprintf("malformed url %q", raw), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.NewDuelError(models.ErrCodeInvalidURL, fmt.Sprintf("unsupported url scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return models.NewDuelError(models.ErrCodeInvalidURL, fmt.Sprintf("url %q has no host", raw), nil)
	}
	return nil
}

func validateEntries(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Strategy == nil {
			return models.NewDuelError(models.ErrCodeInvalidInput, fmt.Sprintf("strategy %q is nil", e.ID), nil)
		}
		if _, dup := seen[e.ID]; dup {
			return models.NewDuelError(models.ErrCodeDuplicateStrategy, fmt.Sprintf("strategy %q listed more than once", e.ID), nil)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// notifier serializes observer calls on its own goroutine so that a slow
// observer never stalls the race. The event buffer holds every event of a
// race, so send never blocks.
type notifier struct {
	events    chan models.ProgressEvent
	done      chan struct{}
	abandoned atomic.Bool
}

func newNotifier(observer Observer, capacity int) *notifier {
	if observer == nil {
		return nil
	}
	n := &notifier{
		events: make(chan models.ProgressEvent, capacity),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(n.done)
		for ev := range n.events {
			if n.abandoned.Load() {
				continue
			}
			deliver(observer, ev)
		}
	}()
	return n
}

func (n *notifier) send(ev models.ProgressEvent) {
	if n == nil {
		return
	}
	n.events <- ev
}

// finish closes the event stream and waits up to grace for delivery to
// drain. It reports whether the observer caught up in time; if not, the
// remaining events are discarded.
func (n *notifier) finish(grace time.Duration) bool {
	if n == nil {
		return true
	}
	close(n.events)
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-n.done:
		return true
	case <-t.C:
		n.abandoned.Store(true)
		return false
	}
}

func deliver(observer Observer, ev models.ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("race observer panicked", "strategy", ev.StrategyID, "panic", r)
		}
	}()
	observer(ev)
}
