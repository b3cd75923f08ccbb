package policy

import (
	"context"
	"strings"

	"github.com/homelend/loanflow/model"
)

// Escalation modes recognised by the workflow.
const (
	ModeDirect   = "direct"   // finalize straight from the agent recommendation (default)
	ModeEscalate = "escalate" // every terminal recommendation needs a human decision
)

// Policy represents the escalation settings for a workflow run.
//
//   - Mode controls the high-level behaviour (direct / escalate).
//   - EscalateAbove forces escalation in direct mode when the loan-to-value
//     ratio exceeds the threshold.
//
// A nil *Policy means "finalize directly" and is therefore the zero-cost
// default.
type Policy struct {
	Mode          string  `json:"mode,omitempty" yaml:"mode,omitempty"`
	EscalateAbove float64 `json:"escalateAbove,omitempty" yaml:"escalateAbove,omitempty"`
}

// RequiresEscalation reports whether a terminal recommendation must be held
// for a human decision. Non-terminal recommendations never escalate; they ask
// the borrower for more evidence instead.
func (p *Policy) RequiresEscalation(app *model.Application, rec *model.Recommendation) bool {
	if p == nil || rec == nil || !rec.Terminal() {
		return false
	}
	switch strings.ToLower(p.Mode) {
	case ModeEscalate:
		return true
	case ModeDirect, "":
		if p.EscalateAbove > 0 && app != nil && app.LoanToValueRatio() > p.EscalateAbove {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts (*Policy, ok).
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
