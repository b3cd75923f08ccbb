// Package progress provides a lightweight tracker that keeps aggregated
// application counters (received, deciding, finalized, …) for one service
// instance.  The tracker lives in the runtime – every component that receives
// it can atomically update the counters via the Delta helper without
// requiring a global registry.

package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the router or
// dispatcher.  The fields are signed and therefore can be either positive
// (increment) or negative (decrement).
type Delta struct {
	Applications     int
	Deciding         int
	AwaitingEvidence int
	AwaitingHuman    int
	Finalized        int
	Approved         int
	Rejected         int
	Failed           int
}

// Progress keeps aggregated application counters.  It is safe for concurrent
// use.
type Progress struct {
	// Identification – informative only, filled when the service starts.
	Service   string
	StartedAt time.Time

	// Counters – modified via Update().
	Applications     int
	Deciding         int
	AwaitingEvidence int
	AwaitingHuman    int
	Finalized        int
	Approved         int
	Rejected         int
	Failed           int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta to the tracker.  It is safe to call from
// multiple goroutines.  If an onChange callback has been registered it will
// be invoked with a copy of the updated tracker outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.Applications += d.Applications
	p.Deciding += d.Deciding
	p.AwaitingEvidence += d.AwaitingEvidence
	p.AwaitingHuman += d.AwaitingHuman
	p.Finalized += d.Finalized
	p.Approved += d.Approved
	p.Rejected += d.Rejected
	p.Failed += d.Failed

	snapshot := *p
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback that is invoked after every successful
// Update.  Passing nil disables the callback.  Only one callback can be
// active; subsequent calls overwrite the previous value.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both.
func WithNewTracker(ctx context.Context, service string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		Service:   service,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext returns the tracker embedded in ctx, or nil.
func FromContext(ctx context.Context) *Progress {
	if ctx == nil {
		return nil
	}
	if tr, ok := ctx.Value(trackerKey).(*Progress); ok {
		return tr
	}
	return nil
}
