// ABOUTME: Transcript is the ordered, append-only record of one conversation
// ABOUTME: Messages are role-tagged values; the system prompt is never stored here

package conversation

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single conversational turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage returns a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Transcript is an ordered sequence of messages. The zero value is an empty
// transcript ready for use. It is not safe for concurrent use.
type Transcript struct {
	messages []Message
}

// Append adds m to the end of the transcript.
func (t *Transcript) Append(m Message) {
	t.messages = append(t.messages, m)
}

// Messages returns a copy of the transcript in chronological order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of stored messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Reset empties the transcript. Calling it on an empty transcript is a no-op.
func (t *Transcript) Reset() {
	t.messages = nil
}
