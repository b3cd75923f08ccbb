package approval

import (
	"context"

	"github.com/homelend/loanflow/service/messaging"
)

// Service defines the approval service interface.
type Service interface {
	// RequestApproval registers a pending human decision for an application.
	// Re-submission for the same application is idempotent.
	RequestApproval(ctx context.Context, r *Request) error

	// ListPending returns requests that have no decision yet.
	ListPending(ctx context.Context) ([]*Request, error)

	// Decide records a reviewer decision. A later decision for the same
	// application overwrites an unconsumed one.
	Decide(ctx context.Context, id string, approved bool, reason string) (*Decision, error)

	// Await blocks until a decision exists for the application or ctx ends.
	Await(ctx context.Context, id string) (*Decision, error)

	Queue() messaging.Queue[Event]
}
