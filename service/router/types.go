package router

import (
	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/runtime/instance"
)

// Signal carries an out-of-band human decision toward its application.
type Signal struct {
	ApplicationID string `json:"applicationId"`
	Decision      string `json:"decision"`
	Reason        string `json:"reason,omitempty"`
}

// Update statuses reported to callers.
const (
	StatusAwaitingHumanDecision = "awaiting_human_decision"
	StatusFinalized             = "finalized"
)

// UpdateResult is the envelope returned from mutating commands.
type UpdateResult struct {
	ApplicationID     string                `json:"application_id"`
	Status            string                `json:"status"`
	Decision          *model.Recommendation `json:"decision,omitempty"`
	FinalResult       *model.FinalResult    `json:"final_result,omitempty"`
	BankAccountNumber string                `json:"bank_account_number,omitempty"`
	ApprovalURL       string                `json:"approval_url,omitempty"`
}

// StatusResult is the envelope returned from the status query. It is derived
// from a snapshot and never observes partially applied commands.
type StatusResult struct {
	ApplicationID string                `json:"application_id"`
	Phase         string                `json:"phase"`
	Decision      *model.Recommendation `json:"decision,omitempty"`
	FinalResult   *model.FinalResult    `json:"final_result,omitempty"`
}

func statusResultOf(snapshot *instance.Snapshot) *StatusResult {
	return &StatusResult{
		ApplicationID: snapshot.ApplicationID,
		Phase:         snapshot.Phase,
		Decision:      snapshot.Recommendation,
		FinalResult:   snapshot.FinalResult,
	}
}
