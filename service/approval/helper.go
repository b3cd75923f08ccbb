package approval

import (
	"context"
	"time"
)

// DecisionFunc inspects a pending request and returns the verdict to apply.
type DecisionFunc func(request *Request) (approved bool, reason string)

// AutoDecide polls the pending list and resolves every request through fn
// until ctx ends or the returned stop function is called. It backs unattended
// environments and test fixtures where no reviewer is available.
func AutoDecide(ctx context.Context, service Service, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				pending, err := service.ListPending(ctx)
				if err != nil {
					continue
				}
				for _, request := range pending {
					approved, reason := fn(request)
					_, _ = service.Decide(ctx, request.ID, approved, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// ApproveAll resolves every pending request as approved.
func ApproveAll(ctx context.Context, service Service, interval time.Duration) func() {
	return AutoDecide(ctx, service, func(*Request) (bool, string) { return true, "" }, interval)
}

// RejectAll resolves every pending request as rejected with the given reason.
func RejectAll(ctx context.Context, service Service, reason string, interval time.Duration) func() {
	return AutoDecide(ctx, service, func(*Request) (bool, string) { return false, reason }, interval)
}
