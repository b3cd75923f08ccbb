package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/homelend/loanflow/service/activity/notify"
	"github.com/homelend/loanflow/service/router"
)

// Decider applies out-of-band human decisions.
type Decider interface {
	ApplyDecision(ctx context.Context, signal *router.Signal) (*router.UpdateResult, error)
}

// ApprovalHandler serves the approval links embedded in escalation
// notifications. Without a decision parameter it renders approve/reject
// links; with one it applies the decision and reports the result.
type ApprovalHandler struct {
	decider Decider
	tokens  *notify.TokenService
}

// NewApprovalHandler creates the handler. tokens may be nil, in which case
// links are accepted without verification.
func NewApprovalHandler(decider Decider, tokens *notify.TokenService) *ApprovalHandler {
	return &ApprovalHandler{decider: decider, tokens: tokens}
}

func (h *ApprovalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	applicationID := query.Get("applicationId")
	token := query.Get("token")
	if applicationID == "" {
		http.Error(w, "missing applicationId", http.StatusBadRequest)
		return
	}
	if h.tokens != nil {
		subject, err := h.tokens.Verify(r.Context(), token)
		if err != nil || subject != applicationID {
			http.Error(w, "invalid or expired approval link", http.StatusForbidden)
			return
		}
	}

	decision := query.Get("decision")
	if decision == "" {
		h.renderForm(w, applicationID, token)
		return
	}

	result, err := h.decider.ApplyDecision(r.Context(), &router.Signal{
		ApplicationID: applicationID,
		Decision:      decision,
		Reason:        query.Get("reason"),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if router.IsNotFound(err) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *ApprovalHandler) renderForm(w http.ResponseWriter, applicationID, token string) {
	link := func(decision string) string {
		values := url.Values{"applicationId": {applicationID}, "decision": {decision}}
		if token != "" {
			values.Set("token", token)
		}
		return "/approvals?" + values.Encode()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body><h1>Loan application %s</h1>`+
		`<p><a href=%q>Approve</a> | <a href=%q>Reject</a></p></body></html>`,
		html.EscapeString(applicationID), link("approve"), link("reject"))
}

// MountApprovalHandler registers the approval endpoint on the mux.
func MountApprovalHandler(mux *http.ServeMux, decider Decider, tokens *notify.TokenService) {
	mux.Handle("/approvals", NewApprovalHandler(decider, tokens))
}
