package router

import (
	"context"
	"errors"
	"sync"

	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/progress"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/homelend/loanflow/runtime/machine"
	approval "github.com/homelend/loanflow/service/approval"
	"github.com/homelend/loanflow/service/dao"
	"github.com/homelend/loanflow/service/messaging"
	"github.com/homelend/loanflow/tracing"
)

// Service routes commands, signals and queries to workflow instances.
type Service struct {
	dao      dao.Service[string, instance.Instance]
	machine  *machine.Machine
	approval approval.Service
	signals  messaging.Queue[Signal]
	progress *progress.Progress

	// per-application command locks; queries never take them
	locks sync.Map

	// finalization broadcast channels, closed once an application finalizes
	finalMux sync.Mutex
	finals   map[string]chan struct{}
}

// New creates a router.
func New(instanceDAO dao.Service[string, instance.Instance], m *machine.Machine, approvalService approval.Service, signals messaging.Queue[Signal], opts ...Option) *Service {
	s := &Service{
		dao:      instanceDAO,
		machine:  m,
		approval: approvalService,
		signals:  signals,
		finals:   make(map[string]chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// lock returns the per-application command mutex.
func (s *Service) lock(id string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// StartOrUpdate validates the application and starts processing. Submitting
// an already known application does not re-run anything unless the previous
// attempt failed mid-flight: then the same command re-drives the decision
// turn from the last good state.
func (s *Service) StartOrUpdate(ctx context.Context, app *model.Application) (*UpdateResult, error) {
	if err := app.Validate(); err != nil {
		// validation failures never create durable state
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "router.startOrUpdate", "internal")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	mutex := s.lock(app.ID)
	mutex.Lock()
	defer mutex.Unlock()

	existing, loadErr := s.load(ctx, app.ID)
	if loadErr != nil && !IsNotFound(loadErr) {
		err = loadErr
		return nil, err
	}
	if existing != nil {
		if !restartable(existing) {
			return s.resultOf(existing), nil
		}
		var result *UpdateResult
		result, err = s.startProcessing(ctx, existing, app)
		return result, err
	}

	inst := instance.New(app)
	if err = s.save(ctx, inst); err != nil {
		return nil, err
	}
	s.progress.Update(progress.Delta{Applications: 1, Deciding: 1})

	var result *UpdateResult
	result, err = s.startProcessing(ctx, inst, app)
	return result, err
}

// startProcessing records a startProcessing command and runs the first
// decision turn; the caller holds the lock.
func (s *Service) startProcessing(ctx context.Context, inst *instance.Instance, app *model.Application) (*UpdateResult, error) {
	seq, err := inst.RecordCommand(instance.CommandStartProcessing, app)
	if err != nil {
		return nil, err
	}
	if err = s.save(ctx, inst); err != nil {
		return nil, err
	}

	outcome, runErr := s.machine.StartProcessing(ctx, s.machine.Session(inst, seq), inst)
	if saveErr := s.save(ctx, inst); saveErr != nil && runErr == nil {
		runErr = saveErr
	}
	if runErr != nil {
		s.progress.Update(progress.Delta{Failed: 1})
		return nil, runErr
	}
	return s.applyOutcome(ctx, inst, outcome, ""), nil
}

// restartable reports whether a re-submission should re-drive processing. An
// instance only rests in the deciding phase when a prior command failed
// mid-flight; re-recording startProcessing retries the decision turn under a
// fresh call-site sequence. A failed evidence command is retried through
// SupplyBankAccount instead.
func restartable(inst *instance.Instance) bool {
	if inst.GetPhase() != instance.PhaseDeciding {
		return false
	}
	last := inst.LastCommand()
	return last == nil || last.Kind == instance.CommandStartProcessing
}

// SupplyBankAccount folds borrower-supplied bank evidence into the decision
// loop and runs another agent turn.
func (s *Service) SupplyBankAccount(ctx context.Context, applicationID, accountNumber string) (*UpdateResult, error) {
	ctx, span := tracing.StartSpan(ctx, "router.supplyBankAccount", "internal")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	mutex := s.lock(applicationID)
	mutex.Lock()
	defer mutex.Unlock()

	inst, loadErr := s.load(ctx, applicationID)
	if loadErr != nil {
		err = loadErr
		return nil, err
	}
	switch inst.GetPhase() {
	case instance.PhaseFinalized, instance.PhaseAwaitingHumanDecision:
		err = &ConflictError{ApplicationID: applicationID, Phase: inst.GetPhase()}
		return nil, err
	}

	seq, recordErr := inst.RecordCommand(instance.CommandSupplyBankAccount, map[string]string{"accountNumber": accountNumber})
	if recordErr != nil {
		err = recordErr
		return nil, err
	}
	if err = s.save(ctx, inst); err != nil {
		return nil, err
	}

	outcome, runErr := s.machine.FoldBankEvidence(ctx, s.machine.Session(inst, seq), inst, accountNumber)
	if saveErr := s.save(ctx, inst); saveErr != nil && runErr == nil {
		runErr = saveErr
	}
	if runErr != nil {
		s.progress.Update(progress.Delta{Failed: 1})
		err = runErr
		return nil, err
	}
	return s.applyOutcome(ctx, inst, outcome, accountNumber), nil
}

// Signal publishes a human decision toward its application. Delivery is
// asynchronous; the dispatcher applies it.
func (s *Service) Signal(ctx context.Context, signal *Signal) error {
	if _, err := model.NewHumanDecision(signal.Decision, signal.Reason); err != nil {
		return err
	}
	return s.signals.Publish(ctx, signal)
}

// ApplyDecision folds a human decision into its application. A decision for
// an application that is not suspended yet stays buffered; a later decision
// overwrites an unconsumed one; decisions after finalization are ignored.
func (s *Service) ApplyDecision(ctx context.Context, signal *Signal) (*UpdateResult, error) {
	decision, err := model.NewHumanDecision(signal.Decision, signal.Reason)
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "router.applyDecision", "internal")
	defer func() { tracing.EndSpan(span, err) }()

	mutex := s.lock(signal.ApplicationID)
	mutex.Lock()
	defer mutex.Unlock()

	inst, loadErr := s.load(ctx, signal.ApplicationID)
	if loadErr != nil {
		err = loadErr
		return nil, err
	}

	if !inst.BufferDecision(decision) {
		// already finalized – the decision is dropped on the floor
		return s.resultOf(inst), nil
	}
	if err = s.save(ctx, inst); err != nil {
		return nil, err
	}
	if s.approval != nil {
		_, _ = s.approval.Decide(ctx, signal.ApplicationID, decision.Decision == model.HumanApprove, decision.Reason)
	}

	if inst.GetPhase() != instance.PhaseAwaitingHumanDecision {
		// not suspended yet – consumed once the application escalates
		return s.resultOf(inst), nil
	}
	return s.consumeDecision(ctx, inst)
}

// consumeDecision folds the buffered decision; the caller holds the lock.
func (s *Service) consumeDecision(ctx context.Context, inst *instance.Instance) (*UpdateResult, error) {
	decision := inst.TakeDecision()
	if decision == nil {
		return s.resultOf(inst), nil
	}
	if _, err := inst.RecordCommand(instance.CommandHumanDecision, decision); err != nil {
		return nil, err
	}
	outcome, err := s.machine.FoldHumanDecision(inst, decision)
	if err != nil {
		return nil, err
	}
	if err = s.save(ctx, inst); err != nil {
		return nil, err
	}
	if s.approval != nil {
		// keep the approval record in sync so the request leaves the pending list
		_, _ = s.approval.Decide(ctx, inst.ID, decision.Decision == model.HumanApprove, decision.Reason)
	}
	// applyOutcome records the finalization side effects
	return s.applyOutcome(ctx, inst, outcome, ""), nil
}

// Status answers the status query from a snapshot; it never blocks on
// in-flight commands. A query for an unknown application returns an empty
// snapshot rather than an error; a failing substrate is still an error.
func (s *Service) Status(ctx context.Context, applicationID string) (*StatusResult, error) {
	inst, err := s.load(ctx, applicationID)
	if err != nil {
		if IsNotFound(err) {
			return &StatusResult{ApplicationID: applicationID}, nil
		}
		return nil, err
	}
	return statusResultOf(inst.Snapshot()), nil
}

// Replay rebuilds an application from its persisted history and returns the
// rebuilt snapshot. It is an audit operation; the live instance stays
// untouched.
func (s *Service) Replay(ctx context.Context, applicationID string) (*StatusResult, error) {
	inst, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	rebuilt, err := s.machine.Replay(ctx, inst)
	if err != nil {
		return nil, err
	}
	return statusResultOf(rebuilt.Snapshot()), nil
}

// Pending lists applications awaiting a human decision.
func (s *Service) Pending(ctx context.Context) ([]*approval.Request, error) {
	if s.approval == nil {
		return nil, nil
	}
	return s.approval.ListPending(ctx)
}

// AwaitFinal blocks until the application finalizes or ctx ends. The wait is
// unbounded by design: a human decision may arrive days later.
func (s *Service) AwaitFinal(ctx context.Context, applicationID string) (*StatusResult, error) {
	inst, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if inst.GetPhase() == instance.PhaseFinalized {
		return statusResultOf(inst.Snapshot()), nil
	}
	waiter := s.finalWaiter(applicationID)
	// re-check after registering so a finalization in between is not missed
	if recheck, reErr := s.load(ctx, applicationID); reErr == nil && recheck.GetPhase() == instance.PhaseFinalized {
		return statusResultOf(recheck.Snapshot()), nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-waiter:
	}
	return s.Status(ctx, applicationID)
}

// applyOutcome registers escalations and finalization side effects and
// shapes the caller-facing result.
func (s *Service) applyOutcome(ctx context.Context, inst *instance.Instance, outcome *machine.Outcome, accountNumber string) *UpdateResult {
	result := &UpdateResult{
		ApplicationID:     inst.ID,
		Decision:          outcome.Recommendation,
		FinalResult:       outcome.Final,
		BankAccountNumber: accountNumber,
		ApprovalURL:       outcome.ApprovalURL,
	}
	switch {
	case outcome.Escalated:
		result.Status = StatusAwaitingHumanDecision
		s.progress.Update(progress.Delta{AwaitingHuman: 1})
		if s.approval != nil {
			_ = s.approval.RequestApproval(ctx, &approval.Request{
				ID:            inst.ID,
				ApplicantName: inst.Application.ApplicantName,
				Summary:       outcome.Recommendation.Summary,
				RiskFactors:   outcome.Recommendation.RiskFactors,
				ApprovalURL:   outcome.ApprovalURL,
			})
		}
		// a decision signalled before the escalation is consumed right away
		if followUp, err := s.consumeDecision(ctx, inst); err == nil && followUp.FinalResult != nil {
			followUp.ApprovalURL = outcome.ApprovalURL
			return followUp
		}
	case outcome.Final != nil:
		result.Status = "decision_" + outcome.Recommendation.Recommendation
		s.finalized(inst)
	default:
		result.Status = "decision_" + outcome.Recommendation.Recommendation
	}
	return result
}

// finalized records the terminal outcome and wakes waiters.
func (s *Service) finalized(inst *instance.Instance) {
	if inst.GetPhase() != instance.PhaseFinalized {
		return
	}
	delta := progress.Delta{Finalized: 1}
	if result := inst.FinalResult; result != nil {
		if result.Status == model.FinalApproved {
			delta.Approved = 1
		} else {
			delta.Rejected = 1
		}
	}
	s.progress.Update(delta)

	s.finalMux.Lock()
	defer s.finalMux.Unlock()
	if waiter, ok := s.finals[inst.ID]; ok {
		close(waiter)
		delete(s.finals, inst.ID)
	}
}

func (s *Service) finalWaiter(id string) chan struct{} {
	s.finalMux.Lock()
	defer s.finalMux.Unlock()
	waiter, ok := s.finals[id]
	if !ok {
		waiter = make(chan struct{})
		s.finals[id] = waiter
	}
	return waiter
}

// load resolves an instance, mapping absence to NotFoundError and substrate
// failures to TransportError so callers can tell them apart.
func (s *Service) load(ctx context.Context, id string) (*instance.Instance, error) {
	inst, err := s.dao.Load(ctx, id)
	switch {
	case errors.Is(err, dao.ErrNotFound):
		return nil, &NotFoundError{ApplicationID: id}
	case err != nil:
		return nil, &TransportError{Op: "load", Err: err}
	case inst == nil:
		return nil, &NotFoundError{ApplicationID: id}
	}
	return inst, nil
}

// save persists an instance, wrapping substrate failures as TransportError.
func (s *Service) save(ctx context.Context, inst *instance.Instance) error {
	if err := s.dao.Save(ctx, inst); err != nil {
		return &TransportError{Op: "save", Err: err}
	}
	return nil
}

// resultOf shapes the current durable state as an update result, used for
// idempotent re-submissions.
func (s *Service) resultOf(inst *instance.Instance) *UpdateResult {
	snapshot := inst.Snapshot()
	result := &UpdateResult{
		ApplicationID: snapshot.ApplicationID,
		Decision:      snapshot.Recommendation,
		FinalResult:   snapshot.FinalResult,
	}
	switch {
	case snapshot.Phase == instance.PhaseAwaitingHumanDecision:
		result.Status = StatusAwaitingHumanDecision
	case snapshot.Phase == instance.PhaseFinalized:
		result.Status = StatusFinalized
		if snapshot.Recommendation != nil {
			result.Status = "decision_" + snapshot.Recommendation.Recommendation
		}
	case snapshot.Recommendation != nil:
		result.Status = "decision_" + snapshot.Recommendation.Recommendation
	default:
		result.Status = snapshot.Phase
	}
	return result
}
