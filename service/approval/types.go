package approval

import (
	"time"
)

// Event envelope published on the approval queue.
type Event struct {
	Topic   string
	Data    interface{}       // *Request | *Decision
	Headers map[string]string `json:"headers,omitempty"`
}

// Standard event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicDecisionCreated = "decision.created"
)

// Request represents an application awaiting a human decision.
type Request struct {
	ID            string                 `json:"id"` // application ID, primary key
	ApplicantName string                 `json:"applicantName,omitempty"`
	Summary       string                 `json:"summary,omitempty"`
	RiskFactors   []string               `json:"riskFactors,omitempty"`
	ApprovalURL   string                 `json:"approvalURL,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	ExpiresAt     *time.Time             `json:"expiresAt,omitempty"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
}

// Decision represents a reviewer decision.
type Decision struct {
	ID        string    `json:"id"` // same as request.ID
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
