// ABOUTME: Hosted backend adapter speaking the OpenAI chat completions API
// ABOUTME: Requires an API key; without one it short-circuits to an absent reply

package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/2389/ideation-gateway/internal/conversation"
)

// DefaultHostedBaseURL is the public OpenAI API root.
const DefaultHostedBaseURL = "https://api.openai.com/v1"

// hostedTemperature is sent with every completion request.
const hostedTemperature = 0.7

// HostedConfig configures a Hosted adapter.
type HostedConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Hosted calls a credentialed chat completions endpoint.
type Hosted struct {
	client  openai.Client
	apiKey  string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewHosted creates a Hosted adapter. An empty APIKey yields an adapter that
// is never called over the network.
func NewHosted(cfg HostedConfig) *Hosted {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHostedBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		// One attempt per turn; fallback to the local backend is the retry.
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Hosted{
		client:  openai.NewClient(opts...),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With("provider", KindHosted.Backend(), "model", cfg.Model),
	}
}

func (h *Hosted) Kind() Kind      { return KindHosted }
func (h *Hosted) Model() string   { return h.model }
func (h *Hosted) Available() bool { return h.apiKey != "" }

// Call sends the conversation and returns choices[0].message.content.
func (h *Hosted) Call(ctx context.Context, history []conversation.Message, systemPrompt, userMessage string) (string, bool) {
	if !h.Available() {
		h.logger.Debug("hosted provider skipped: no API key configured")
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	completion, err := h.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(h.model),
		Messages:    toOpenAIMessages(buildMessages(history, systemPrompt, userMessage)),
		Temperature: openai.Float(hostedTemperature),
	})
	if err != nil {
		h.logFailure(err, start)
		return "", false
	}

	if len(completion.Choices) == 0 {
		h.logFailure(errors.New("response has no choices"), start)
		return "", false
	}

	content := completion.Choices[0].Message.Content
	if content == "" {
		h.logFailure(errors.New("empty reply"), start)
		return "", false
	}

	h.logger.Debug("hosted reply received", "duration", time.Since(start))
	return content, true
}

func (h *Hosted) logFailure(err error, start time.Time) {
	h.logger.Warn("hosted provider call failed", "error", err, "duration", time.Since(start))
}

func toOpenAIMessages(msgs []conversation.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case conversation.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case conversation.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
