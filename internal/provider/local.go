// ABOUTME: Local backend adapter speaking the Ollama /api/chat protocol
// ABOUTME: Non-streaming JSON request/response over plain net/http

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/ideation-gateway/internal/conversation"
)

// DefaultLocalBaseURL is where a stock Ollama install listens.
const DefaultLocalBaseURL = "http://localhost:11434"

// maxErrorBody caps how much of a failed response is copied into the log.
const maxErrorBody = 512

// LocalConfig configures a Local adapter.
type LocalConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Local calls a self-hosted Ollama server. It needs no credential and is
// always considered available.
type Local struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// localChatRequest is the body of POST /api/chat.
type localChatRequest struct {
	Model    string                 `json:"model"`
	Messages []conversation.Message `json:"messages"`
	Stream   bool                   `json:"stream"`
}

// localChatResponse is the subset of the /api/chat reply we read.
type localChatResponse struct {
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// NewLocal creates a Local adapter.
func NewLocal(cfg LocalConfig) *Local {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLocalBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Local{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With("provider", KindLocal.Backend(), "model", cfg.Model),
	}
}

func (l *Local) Kind() Kind      { return KindLocal }
func (l *Local) Model() string   { return l.model }
func (l *Local) Available() bool { return true }

// Call posts the conversation to {base}/api/chat and returns message.content.
func (l *Local) Call(ctx context.Context, history []conversation.Message, systemPrompt, userMessage string) (string, bool) {
	start := time.Now()
	content, err := l.chat(ctx, buildMessages(history, systemPrompt, userMessage))
	if err != nil {
		l.logger.Warn("local provider call failed", "error", err, "duration", time.Since(start))
		return "", false
	}
	l.logger.Debug("local reply received", "duration", time.Since(start))
	return content, true
}

func (l *Local) chat(ctx context.Context, msgs []conversation.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	body, err := json.Marshal(localChatRequest{
		Model:    l.model,
		Messages: msgs,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Message == nil {
		return "", errors.New("response has no message")
	}
	if out.Message.Content == "" {
		return "", errors.New("empty reply")
	}
	return out.Message.Content, nil
}
