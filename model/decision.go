package model

import (
	"fmt"

	"github.com/homelend/loanflow/internal/clock"
	"time"
)

// Recommendation kinds authored by the decision agent.
const (
	RecommendationApprove = "approve"
	RecommendationReview  = "review"
	RecommendationDecline = "decline"
)

// Recommendation is the agent-authored underwriting recommendation.
type Recommendation struct {
	Recommendation      string   `json:"recommendation"`
	ApprovedAmount      *float64 `json:"approvedAmount,omitempty"`
	RiskFactors         []string `json:"riskFactors,omitempty"`
	RequestedDocs       []string `json:"requestedDocs,omitempty"`
	AdditionalQuestions []string `json:"additionalQuestions,omitempty"`
	Summary             string   `json:"summary,omitempty"`
}

// Terminal reports whether the recommendation ends the automated decision
// loop. Only review keeps the loop open.
func (r *Recommendation) Terminal() bool {
	if r == nil {
		return false
	}
	return r.Recommendation == RecommendationApprove || r.Recommendation == RecommendationDecline
}

// Validate rejects recommendations outside the closed kind set.
func (r *Recommendation) Validate() error {
	switch r.Recommendation {
	case RecommendationApprove, RecommendationReview, RecommendationDecline:
		return nil
	}
	return fmt.Errorf("unsupported recommendation: %q", r.Recommendation)
}

// Final result statuses.
const (
	FinalApproved = "approved"
	FinalRejected = "rejected"
)

// FinalResult is produced once a human decision has been folded into the
// conversation. Immutable once set on an instance.
type FinalResult struct {
	Status         string   `json:"status"`
	Reason         string   `json:"reason,omitempty"`
	ApprovedAmount *float64 `json:"approvedAmount,omitempty"`
}

// Human decision choices delivered out-of-band via the approval link.
const (
	HumanApprove = "approve"
	HumanReject  = "reject"
)

// HumanDecision records the reviewer's choice for an escalated application.
type HumanDecision struct {
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// NewHumanDecision normalises and validates a reviewer choice.
func NewHumanDecision(decision, reason string) (*HumanDecision, error) {
	switch decision {
	case HumanApprove, HumanReject:
	default:
		return nil, fmt.Errorf("unsupported human decision: %q", decision)
	}
	return &HumanDecision{Decision: decision, Reason: reason, DecidedAt: clock.Now()}, nil
}
