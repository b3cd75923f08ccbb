package instance

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/homelend/loanflow/internal/clock"
	"github.com/homelend/loanflow/model"
)

// Instance represents the durable workflow record of one loan application.
type Instance struct {
	ID              string                `json:"id"`
	SCN             int                   `json:"scn"`
	Phase           string                `json:"phase"`
	Application     *model.Application    `json:"application"`
	Recommendation  *model.Recommendation `json:"recommendation,omitempty"`
	FinalResult     *model.FinalResult    `json:"finalResult,omitempty"`
	PendingDecision *model.HumanDecision  `json:"pendingDecision,omitempty"`
	Conversation    *model.Conversation   `json:"conversation"`
	Commands        []*CommandRecord      `json:"commands,omitempty"`
	Journal         []*ActivityRecord     `json:"journal,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	FinalizedAt     *time.Time            `json:"finalizedAt,omitempty"`
	mu              sync.RWMutex
}

// New creates a workflow instance for the supplied application.
func New(app *model.Application) *Instance {
	now := clock.Now()
	return &Instance{
		ID:           app.ID,
		Phase:        PhaseCreated,
		Application:  app,
		Conversation: &model.Conversation{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// touch bumps the state change number; callers must hold the write lock.
func (i *Instance) touch() {
	i.SCN++
	i.UpdatedAt = clock.Now()
}

// RecordCommand appends a command to the log and returns its sequence number.
func (i *Instance) RecordCommand(kind string, payload interface{}) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	seq := len(i.Commands)
	i.Commands = append(i.Commands, &CommandRecord{
		Seq:        seq,
		Kind:       kind,
		Payload:    data,
		ReceivedAt: clock.Now(),
	})
	i.touch()
	return seq, nil
}

// LastCommand returns the most recent command record, or nil.
func (i *Instance) LastCommand() *CommandRecord {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(i.Commands) == 0 {
		return nil
	}
	return i.Commands[len(i.Commands)-1]
}

// JournalRecord returns the recorded activity for a call-site, or nil.
func (i *Instance) JournalRecord(commandSeq, index int) *ActivityRecord {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, record := range i.Journal {
		if record.CommandSeq == commandSeq && record.Index == index {
			return record
		}
	}
	return nil
}

// AppendActivity journals a completed activity call.
func (i *Instance) AppendActivity(record *ActivityRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	record.RecordedAt = clock.Now()
	i.Journal = append(i.Journal, record)
	i.touch()
}

// SetPhase transitions the instance; illegal moves are rejected.
func (i *Instance) SetPhase(phase string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Phase == phase {
		return true
	}
	if !CanTransition(i.Phase, phase) {
		return false
	}
	i.Phase = phase
	if phase == PhaseFinalized {
		now := clock.Now()
		i.FinalizedAt = &now
	}
	i.touch()
	return true
}

// GetPhase returns the current phase.
func (i *Instance) GetPhase() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.Phase
}

// SetRecommendation records the latest agent recommendation.
func (i *Instance) SetRecommendation(rec *model.Recommendation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Recommendation = rec
	i.touch()
}

// SetFinalResult records the final result; it is immutable once set.
func (i *Instance) SetFinalResult(result *model.FinalResult) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.FinalResult != nil {
		return false
	}
	i.FinalResult = result
	i.touch()
	return true
}

// BufferDecision stores a human decision in the single pending slot. A later
// decision overwrites an unconsumed one; once the instance is finalized the
// decision is ignored.
func (i *Instance) BufferDecision(decision *model.HumanDecision) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Phase == PhaseFinalized {
		return false
	}
	i.PendingDecision = decision
	i.touch()
	return true
}

// TakeDecision consumes the buffered human decision, if any.
func (i *Instance) TakeDecision() *model.HumanDecision {
	i.mu.Lock()
	defer i.mu.Unlock()
	decision := i.PendingDecision
	if decision != nil {
		i.PendingDecision = nil
		i.touch()
	}
	return decision
}

// Snapshot is a read-only view of the instance safe to hand to queries while
// an update is in flight.
type Snapshot struct {
	ApplicationID  string                `json:"applicationId"`
	Phase          string                `json:"phase"`
	SCN            int                   `json:"scn"`
	Application    *model.Application    `json:"application,omitempty"`
	Recommendation *model.Recommendation `json:"decision,omitempty"`
	FinalResult    *model.FinalResult    `json:"finalResult,omitempty"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Snapshot captures the current state without blocking writers for long.
func (i *Instance) Snapshot() *Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := &Snapshot{
		ApplicationID: i.ID,
		Phase:         i.Phase,
		SCN:           i.SCN,
		Application:   i.Application,
		UpdatedAt:     i.UpdatedAt,
	}
	if i.Recommendation != nil {
		rec := *i.Recommendation
		out.Recommendation = &rec
	}
	if i.FinalResult != nil {
		result := *i.FinalResult
		out.FinalResult = &result
	}
	return out
}

// Clone creates a deep copy so that the caller can mutate it without
// affecting the original record. The application is immutable and shared.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := &Instance{
		ID:          i.ID,
		SCN:         i.SCN,
		Phase:       i.Phase,
		Application: i.Application,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
	if i.Recommendation != nil {
		rec := *i.Recommendation
		out.Recommendation = &rec
	}
	if i.FinalResult != nil {
		result := *i.FinalResult
		out.FinalResult = &result
	}
	if i.PendingDecision != nil {
		decision := *i.PendingDecision
		out.PendingDecision = &decision
	}
	out.Conversation = i.Conversation.Clone()
	if len(i.Commands) > 0 {
		out.Commands = make([]*CommandRecord, len(i.Commands))
		for idx, cmd := range i.Commands {
			cp := *cmd
			out.Commands[idx] = &cp
		}
	}
	if len(i.Journal) > 0 {
		out.Journal = make([]*ActivityRecord, len(i.Journal))
		for idx, record := range i.Journal {
			cp := *record
			out.Journal[idx] = &cp
		}
	}
	if i.FinalizedAt != nil {
		ts := *i.FinalizedAt
		out.FinalizedAt = &ts
	}
	return out
}

// History creates a fresh instance seeded with only the persisted history
// (application, command log and journal) so that replay can re-derive the
// remaining state from scratch.
func (i *Instance) History() *Instance {
	clone := i.Clone()
	out := New(clone.Application)
	out.CreatedAt = clone.CreatedAt
	out.Commands = clone.Commands
	out.Journal = clone.Journal
	return out
}
