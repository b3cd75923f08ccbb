package machine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/policy"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/homelend/loanflow/service/activity/agent"
	"github.com/homelend/loanflow/service/activity/bank"
	"github.com/homelend/loanflow/service/activity/notify"
	"github.com/homelend/loanflow/service/event"
	"github.com/homelend/loanflow/service/invoker"
)

// Activity action names resolved against the action registry.
const (
	actionDecide    = "agent.decide"
	actionStatement = "bank.fetchStatement"
	actionEscalate  = "notify.escalation"
)

// Observer is notified after every durable transition, with the event type
// from the event package vocabulary.
type Observer func(inst *instance.Instance, eventType string)

// Machine folds commands into workflow instances.
type Machine struct {
	invoker  *invoker.Service
	policy   *policy.Policy
	observer Observer
}

// Option customises the machine.
type Option func(*Machine)

// WithPolicy installs the escalation policy.
func WithPolicy(p *policy.Policy) Option {
	return func(m *Machine) {
		m.policy = p
	}
}

// WithObserver installs a transition observer.
func WithObserver(observer Observer) Option {
	return func(m *Machine) {
		m.observer = observer
	}
}

// New creates a machine on top of the activity invoker.
func New(invokerService *invoker.Service, opts ...Option) *Machine {
	m := &Machine{invoker: invokerService}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Session creates an execution session for a recorded command.
func (m *Machine) Session(inst *instance.Instance, commandSeq int) *invoker.Session {
	return m.invoker.Session(inst, commandSeq)
}

// Outcome summarises how far one command drove the workflow.
type Outcome struct {
	Recommendation *model.Recommendation `json:"decision,omitempty"`
	Escalated      bool                  `json:"escalated,omitempty"`
	ApprovalURL    string                `json:"approvalURL,omitempty"`
	Final          *model.FinalResult    `json:"finalResult,omitempty"`
}

// StartProcessing runs the first underwriting turn for an application.
func (m *Machine) StartProcessing(ctx context.Context, session *invoker.Session, inst *instance.Instance) (*Outcome, error) {
	if inst.GetPhase() == instance.PhaseCreated {
		m.transitionAs(inst, instance.PhaseDeciding, event.TypeApplicationReceived)
	} else {
		m.transition(inst, instance.PhaseDeciding)
	}
	if inst.Conversation.Len() == 0 {
		inst.Conversation.Append(model.RoleSystem, systemPrompt)
		inst.Conversation.Append(model.RoleUser, applicationMessage(inst.Application))
	}
	return m.decide(ctx, session, inst)
}

// FoldBankEvidence verifies the supplied account and runs another agent turn
// with the statement folded into the conversation. The evidence message only
// becomes durable once the decision turn succeeds, so a retried command does
// not duplicate it.
func (m *Machine) FoldBankEvidence(ctx context.Context, session *invoker.Session, inst *instance.Instance, accountNumber string) (*Outcome, error) {
	m.transition(inst, instance.PhaseDeciding)

	statement := &bank.FetchOutput{}
	if err := session.Invoke(ctx, actionStatement, &bank.FetchInput{AccountNumber: accountNumber}, statement); err != nil {
		return nil, err
	}
	evidence := model.Message{Role: model.RoleUser, Content: evidenceMessage(accountNumber, statement)}
	return m.decide(ctx, session, inst, evidence)
}

// FoldHumanDecision finalizes an escalated application from the reviewer
// decision. It involves no activities and is deterministic by construction.
func (m *Machine) FoldHumanDecision(inst *instance.Instance, decision *model.HumanDecision) (*Outcome, error) {
	if decision == nil {
		return nil, fmt.Errorf("human decision is required")
	}
	inst.Conversation.Append(model.RoleUser, decisionMessage(decision))

	result := &model.FinalResult{Reason: decision.Reason}
	if decision.Decision == model.HumanApprove {
		result.Status = model.FinalApproved
		if rec := inst.Recommendation; rec != nil {
			result.ApprovedAmount = approvedAmount(rec, inst.Application)
		}
	} else {
		result.Status = model.FinalRejected
	}
	m.finalize(inst, result)
	return &Outcome{Recommendation: inst.Recommendation, Final: result}, nil
}

// decide runs one agent turn and folds the recommendation into the instance.
// Pending messages ride along in the agent input and are appended to the
// durable conversation only after the turn succeeds.
func (m *Machine) decide(ctx context.Context, session *invoker.Session, inst *instance.Instance, pending ...model.Message) (*Outcome, error) {
	messages := append([]model.Message(nil), inst.Conversation.Messages...)
	messages = append(messages, pending...)
	input := &agent.DecideInput{
		ApplicationID: inst.ID,
		System:        systemPrompt,
		Messages:      messages,
	}
	output := &agent.DecideOutput{}
	if err := session.Invoke(ctx, actionDecide, input, output); err != nil {
		return nil, err
	}
	for _, message := range pending {
		inst.Conversation.Append(message.Role, message.Content)
	}
	return m.fold(ctx, session, inst, output.Recommendation)
}

func (m *Machine) fold(ctx context.Context, session *invoker.Session, inst *instance.Instance, rec *model.Recommendation) (*Outcome, error) {
	if rec == nil {
		return nil, fmt.Errorf("agent returned no recommendation")
	}
	inst.SetRecommendation(rec)
	inst.Conversation.Append(model.RoleAgent, recommendationMessage(rec))
	outcome := &Outcome{Recommendation: rec}

	switch {
	case !rec.Terminal():
		m.transition(inst, instance.PhaseAwaitingEvidence)

	case m.policy.RequiresEscalation(inst.Application, rec):
		escalation := &notify.EscalationOutput{}
		err := session.Invoke(ctx, actionEscalate, &notify.EscalationInput{
			ApplicationID: inst.ID,
			ApplicantName: inst.Application.ApplicantName,
			Summary:       rec.Summary,
			RiskFactors:   rec.RiskFactors,
		}, escalation)
		if err != nil {
			// the reviewer can still find the application via the pending
			// list, so a lost notification does not block escalation
			escalation = &notify.EscalationOutput{Error: err.Error()}
		}
		m.transitionAs(inst, instance.PhaseAwaitingHumanDecision, event.TypeEscalated)
		outcome.Escalated = true
		outcome.ApprovalURL = escalation.ApprovalURL

	default:
		result := finalResultOf(rec, inst.Application)
		m.finalize(inst, result)
		outcome.Final = result
	}
	return outcome, nil
}

func (m *Machine) finalize(inst *instance.Instance, result *model.FinalResult) {
	inst.SetFinalResult(result)
	m.transitionAs(inst, instance.PhaseFinalized, event.TypeFinalized)
}

func (m *Machine) transition(inst *instance.Instance, phase string) {
	m.transitionAs(inst, phase, event.TypePhaseChanged)
}

func (m *Machine) transitionAs(inst *instance.Instance, phase, eventType string) {
	if inst.GetPhase() == phase {
		return
	}
	if inst.SetPhase(phase) {
		m.observe(inst, eventType)
	}
}

func (m *Machine) observe(inst *instance.Instance, eventType string) {
	if m.observer != nil {
		m.observer(inst, eventType)
	}
}

// finalResultOf derives the final outcome from a terminal recommendation.
func finalResultOf(rec *model.Recommendation, app *model.Application) *model.FinalResult {
	if rec.Recommendation == model.RecommendationApprove {
		return &model.FinalResult{
			Status:         model.FinalApproved,
			Reason:         rec.Summary,
			ApprovedAmount: approvedAmount(rec, app),
		}
	}
	return &model.FinalResult{
		Status: model.FinalRejected,
		Reason: rec.Summary,
	}
}

func approvedAmount(rec *model.Recommendation, app *model.Application) *float64 {
	if rec.ApprovedAmount != nil {
		amount := *rec.ApprovedAmount
		return &amount
	}
	if app == nil {
		return nil
	}
	amount := app.RequestedLoanAmount
	return &amount
}

// Replay rebuilds an instance from its persisted history alone. Every
// activity call must be covered by the journal; reaching out to a live
// collaborator during replay is an error.
func (m *Machine) Replay(ctx context.Context, inst *instance.Instance) (*instance.Instance, error) {
	history := inst.History()
	// replay must not re-emit events
	replayer := &Machine{invoker: m.invoker, policy: m.policy}
	for _, cmd := range history.Commands {
		session := replayer.invoker.ReplaySession(history, cmd.Seq)
		var err error
		switch cmd.Kind {
		case instance.CommandStartProcessing:
			_, err = replayer.StartProcessing(ctx, session, history)
		case instance.CommandSupplyBankAccount:
			payload := struct {
				AccountNumber string `json:"accountNumber"`
			}{}
			if err = json.Unmarshal(cmd.Payload, &payload); err != nil {
				return nil, fmt.Errorf("command %d has malformed payload: %w", cmd.Seq, err)
			}
			_, err = replayer.FoldBankEvidence(ctx, session, history, payload.AccountNumber)
		case instance.CommandHumanDecision:
			decision := &model.HumanDecision{}
			if err = json.Unmarshal(cmd.Payload, decision); err != nil {
				return nil, fmt.Errorf("command %d has malformed payload: %w", cmd.Seq, err)
			}
			_, err = replayer.FoldHumanDecision(history, decision)
		default:
			return nil, fmt.Errorf("command %d has unknown kind %q", cmd.Seq, cmd.Kind)
		}
		if err != nil {
			// a journaled failure reproduces the original outcome; anything
			// else means the history cannot be replayed
			var invocation *invoker.Error
			if errors.As(err, &invocation) {
				continue
			}
			return nil, err
		}
	}
	return history, nil
}
