package event

import "time"

// Context identifies where in the application lifecycle an event originated.
type Context struct {
	ApplicationID string `json:"applicationID"`
	Phase         string `json:"phase"`
	EventType     string `json:"eventType"`
	TimeTakenMs   int    `json:"timeTakenMs,omitempty"`
}

// Event types emitted by the runtime.
const (
	TypeApplicationReceived = "application.received"
	TypePhaseChanged        = "phase.changed"
	TypeEscalated           = "application.escalated"
	TypeFinalized           = "application.finalized"
)

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
