// ABOUTME: Gateway client that owns a transcript and picks a backend per turn
// ABOUTME: Record first, then act: the user turn is stored before any backend call

package ideation

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/ideation-gateway/internal/conversation"
	"github.com/2389/ideation-gateway/internal/provider"
)

// FallbackReply is returned when no backend produced a reply.
const FallbackReply = "Sorry, I couldn't get a response from any AI service."

// PromptSource supplies the system prompt for a turn.
type PromptSource interface {
	SystemPrompt() string
}

// Options configures a Client.
type Options struct {
	Hosted provider.Adapter
	Local  provider.Adapter
	Prompt PromptSource

	// Preferred is the initial provider selection. Defaults to hosted.
	Preferred provider.Kind

	// SessionID tags attempts reported to observers.
	SessionID string

	Logger    *slog.Logger
	Observers []Observer
}

// Reply is the outcome of one Submit.
type Reply struct {
	// Text is the assistant reply, or FallbackReply when Answered is false.
	Text string

	// Provider is the backend that answered. Empty when Answered is false.
	Provider provider.Kind

	Answered bool
}

// ActiveConfig describes the current provider selection for front ends.
type ActiveConfig struct {
	CurrentProvider provider.Kind
	HostedAvailable bool
	LocalAvailable  bool
	HostedModel     string
	LocalModel      string
}

// Client forwards user messages to a backend and keeps the running transcript.
//
// A Client has a single owner and is not safe for concurrent use. Callers
// sharing one across goroutines must serialize access (see package session).
type Client struct {
	hosted    provider.Adapter
	local     provider.Adapter
	prompt    PromptSource
	preferred provider.Kind
	sessionID string
	observers []Observer
	logger    *slog.Logger

	transcript conversation.Transcript
}

// New creates a Client with an empty transcript.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Preferred == "" {
		opts.Preferred = provider.KindHosted
	}
	if opts.Prompt == nil {
		opts.Prompt = staticPrompt("")
	}

	logger := opts.Logger.With("component", "ideation")
	if opts.SessionID != "" {
		logger = logger.With("session_id", opts.SessionID)
	}

	return &Client{
		hosted:    opts.Hosted,
		local:     opts.Local,
		prompt:    opts.Prompt,
		preferred: opts.Preferred,
		sessionID: opts.SessionID,
		observers: opts.Observers,
		logger:    logger,
	}
}

// Submit records userMessage, asks the backends in policy order, and records
// the first reply. When every backend is absent it returns FallbackReply and
// leaves the user turn unanswered in the transcript.
func (c *Client) Submit(ctx context.Context, userMessage string) Reply {
	history := c.transcript.Messages()
	c.transcript.Append(conversation.UserMessage(userMessage))

	systemPrompt := c.prompt.SystemPrompt()

	for _, adapter := range c.order() {
		if !adapter.Available() {
			c.observe(adapter, OutcomeSkipped, 0)
			continue
		}

		start := time.Now()
		text, ok := adapter.Call(ctx, history, systemPrompt, userMessage)
		elapsed := time.Since(start)

		if !ok {
			c.observe(adapter, OutcomeAbsent, elapsed)
			c.logger.Debug("provider produced no reply, trying next", "provider", adapter.Kind())
			continue
		}

		c.observe(adapter, OutcomeOK, elapsed)
		c.transcript.Append(conversation.AssistantMessage(text))
		c.logger.Debug("turn answered",
			"provider", adapter.Kind(),
			"duration", elapsed,
			"transcript_len", c.transcript.Len())
		return Reply{Text: text, Provider: adapter.Kind(), Answered: true}
	}

	c.logger.Warn("no provider answered", "preferred", c.preferred)
	return Reply{Text: FallbackReply}
}

// order resolves which adapters to try. Local is the universal fallback;
// hosted is only ever tried first, and only when preferred.
func (c *Client) order() []provider.Adapter {
	var out []provider.Adapter
	if c.preferred == provider.KindHosted && c.hosted != nil {
		out = append(out, c.hosted)
	}
	if c.local != nil {
		out = append(out, c.local)
	}
	return out
}

// Reset clears the transcript. Provider selection is untouched.
func (c *Client) Reset() {
	c.transcript.Reset()
	c.logger.Debug("transcript reset")
}

// SetPreferredProvider changes which backend the next Submit tries first.
func (c *Client) SetPreferredProvider(k provider.Kind) {
	c.preferred = k
}

// PreferredProvider returns the current provider selection.
func (c *Client) PreferredProvider() provider.Kind {
	return c.preferred
}

// Transcript returns a snapshot of the stored messages.
func (c *Client) Transcript() []conversation.Message {
	return c.transcript.Messages()
}

// ActiveConfig reports the current selection and backend availability.
func (c *Client) ActiveConfig() ActiveConfig {
	cfg := ActiveConfig{CurrentProvider: c.preferred}
	if c.hosted != nil {
		cfg.HostedAvailable = c.hosted.Available()
		cfg.HostedModel = c.hosted.Model()
	}
	if c.local != nil {
		cfg.LocalAvailable = c.local.Available()
		cfg.LocalModel = c.local.Model()
	}
	return cfg
}

type staticPrompt string

func (s staticPrompt) SystemPrompt() string { return string(s) }
