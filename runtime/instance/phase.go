package instance

// Workflow phase constants.
const (
	PhaseCreated               = "created"
	PhaseDeciding              = "deciding"
	PhaseAwaitingEvidence      = "awaitingEvidence"
	PhaseAwaitingHumanDecision = "awaitingHumanDecision"
	PhaseFinalized             = "finalized"
)

// transitions lists the legal phase moves; Finalized is terminal.
var transitions = map[string][]string{
	PhaseCreated:               {PhaseDeciding},
	PhaseDeciding:              {PhaseAwaitingEvidence, PhaseAwaitingHumanDecision, PhaseFinalized},
	PhaseAwaitingEvidence:      {PhaseDeciding},
	PhaseAwaitingHumanDecision: {PhaseFinalized},
	PhaseFinalized:             {},
}

// CanTransition reports whether moving from one phase to another is legal.
func CanTransition(from, to string) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the phase ends the workflow.
func IsTerminal(phase string) bool {
	return phase == PhaseFinalized
}
