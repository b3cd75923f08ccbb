package loanflow

import (
	"context"

	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/progress"
	"github.com/homelend/loanflow/service/approval"
	"github.com/homelend/loanflow/service/dispatcher"
	"github.com/homelend/loanflow/service/router"
)

// Runtime represents the loan processing runtime. It is the surface client
// code talks to once the engine is assembled.
type Runtime struct {
	router     *router.Service
	dispatcher *dispatcher.Service
	approval   approval.Service
	tracker    *progress.Progress
}

// Start starts the signal dispatcher workers.
func (r *Runtime) Start(ctx context.Context) error {
	return r.dispatcher.Start(ctx)
}

// Shutdown stops the dispatcher and waits for in-flight signals.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.dispatcher.Shutdown()
	return nil
}

// StartOrUpdate creates a new application instance or, when the
// application already exists, reports its current state without
// re-processing. Validation failures leave no durable state behind.
func (r *Runtime) StartOrUpdate(ctx context.Context, app *model.Application) (*router.UpdateResult, error) {
	return r.router.StartOrUpdate(ctx, app)
}

// SupplyBankAccount attaches bank-statement evidence to an application
// that asked for it and resumes the decision loop.
func (r *Runtime) SupplyBankAccount(ctx context.Context, applicationID, accountNumber string) (*router.UpdateResult, error) {
	return r.router.SupplyBankAccount(ctx, applicationID, accountNumber)
}

// Signal enqueues a human decision for asynchronous delivery. The decision
// is applied by the dispatcher; use AwaitFinal to observe the outcome.
func (r *Runtime) Signal(ctx context.Context, signal *router.Signal) error {
	return r.router.Signal(ctx, signal)
}

// ApplyDecision applies a human decision synchronously, bypassing the
// signal queue. Used by in-process callers such as the approval HTTP
// endpoint.
func (r *Runtime) ApplyDecision(ctx context.Context, signal *router.Signal) (*router.UpdateResult, error) {
	return r.router.ApplyDecision(ctx, signal)
}

// Status reports the current state of an application. It never blocks,
// even while the application awaits a human decision.
func (r *Runtime) Status(ctx context.Context, applicationID string) (*router.StatusResult, error) {
	return r.router.Status(ctx, applicationID)
}

// Replay rebuilds an application from its command history and returns the
// reconstructed state. The live instance is left untouched.
func (r *Runtime) Replay(ctx context.Context, applicationID string) (*router.StatusResult, error) {
	return r.router.Replay(ctx, applicationID)
}

// Pending lists applications waiting for a human decision.
func (r *Runtime) Pending(ctx context.Context) ([]*approval.Request, error) {
	return r.router.Pending(ctx)
}

// AwaitFinal blocks until the application reaches a terminal state or ctx
// expires.
func (r *Runtime) AwaitFinal(ctx context.Context, applicationID string) (*router.StatusResult, error) {
	return r.router.AwaitFinal(ctx, applicationID)
}

// Progress returns a point-in-time copy of the runtime counters.
func (r *Runtime) Progress() progress.Progress {
	return r.tracker.Snapshot()
}

// Router exposes the underlying command router, mostly for tests and
// protocol adapters.
func (r *Runtime) Router() *router.Service {
	return r.router
}
