// ABOUTME: Adapter interface shared by the hosted and local chat backends
// ABOUTME: Adapters never return errors; failure is reported as an absent reply

package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2389/ideation-gateway/internal/conversation"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 30 * time.Second

// Kind identifies a backend.
type Kind string

const (
	KindHosted Kind = "hosted"
	KindLocal  Kind = "local"
)

// Backend returns the public name front ends use for the kind.
func (k Kind) Backend() string {
	switch k {
	case KindHosted:
		return "openai"
	case KindLocal:
		return "ollama"
	}
	return string(k)
}

// ParseKind accepts both the kind names and the backend names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hosted", "openai":
		return KindHosted, nil
	case "local", "ollama":
		return KindLocal, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Adapter translates a conversation into one backend's request format,
// performs the call, and extracts the reply text.
type Adapter interface {
	Kind() Kind
	Model() string

	// Available reports whether the adapter can be called at all.
	Available() bool

	// Call returns the assistant reply and true, or "" and false when the
	// backend could not produce one. history excludes the system message.
	Call(ctx context.Context, history []conversation.Message, systemPrompt, userMessage string) (string, bool)
}

// buildMessages lays out the envelope: system, history in order, new user turn.
func buildMessages(history []conversation.Message, systemPrompt, userMessage string) []conversation.Message {
	msgs := make([]conversation.Message, 0, len(history)+2)
	msgs = append(msgs, conversation.SystemMessage(systemPrompt))
	msgs = append(msgs, history...)
	msgs = append(msgs, conversation.UserMessage(userMessage))
	return msgs
}
