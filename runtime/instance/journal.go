package instance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Command kinds recorded in the per-instance command log.
const (
	CommandStartProcessing   = "startProcessing"
	CommandSupplyBankAccount = "supplyBankAccount"
	CommandHumanDecision     = "humanDecision"
)

// CommandRecord captures one mutating command in arrival order. The sequence
// number doubles as the replay cursor for the activity journal.
type CommandRecord struct {
	Seq        int             `json:"seq"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// ActivityRecord is the journal entry of a single external call. For a given
// (command sequence, call-site index) the same outcome – result or failure –
// is returned on every replay; a new distinct call-site may re-invoke.
type ActivityRecord struct {
	CommandSeq int             `json:"commandSeq"`
	Index      int             `json:"index"`
	Action     string          `json:"action"`
	InputHash  string          `json:"inputHash"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Permanent  bool            `json:"permanent,omitempty"`
	Attempts   int             `json:"attempts"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// HashInput produces a stable digest of an activity input used to detect
// non-deterministic replays.
func HashInput(input interface{}) string {
	data, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
