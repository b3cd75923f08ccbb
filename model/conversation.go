package model

// Message roles exchanged between the orchestrator and the decision agent.
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleAgent  = "agent"
)

// Message is a single conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the append-only message history owned by exactly one
// workflow instance. It is replayed from the durable record, never
// recomputed.
type Conversation struct {
	Messages []Message `json:"messages,omitempty"`
}

// Append adds a message and returns the conversation for chaining.
func (c *Conversation) Append(role, content string) *Conversation {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
	return c
}

// Len returns the number of recorded messages.
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}

// Clone returns an independent copy so that snapshots handed to queries
// cannot observe later appends.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := &Conversation{}
	if len(c.Messages) > 0 {
		out.Messages = append([]Message(nil), c.Messages...)
	}
	return out
}
