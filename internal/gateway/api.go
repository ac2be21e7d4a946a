// ABOUTME: HTTP API handlers for the ideation chat endpoints.
// ABOUTME: Provides chat, reset, history, config, and health routes as JSON.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2389/ideation-gateway/internal/conversation"
	"github.com/2389/ideation-gateway/internal/ideation"
	"github.com/2389/ideation-gateway/internal/provider"
	"github.com/2389/ideation-gateway/internal/store"
)

// Fixed response texts and limits
const (
	rootMessage         = "Ideation Gateway is running"
	serviceName         = "ideation-gateway"
	chatResetResponse   = "Conversation history has been reset. How can I help you with your product ideation?"
	resetSuccessReply   = "Conversation history has been reset successfully"
	modelAuto           = "auto"
	modelNone           = "none"
	maxRequestBodySize  = 1 << 20
	defaultAttemptLimit = 100
	maxAttemptLimit     = 1000
)

// ChatRequest is the JSON request body for POST /api/ideation/chat.
type ChatRequest struct {
	Message           string `json:"message"`
	Model             string `json:"model,omitempty"` // auto, openai, ollama
	ResetConversation bool   `json:"reset_conversation,omitempty"`
	ConversationID    string `json:"conversation_id,omitempty"`
}

// ChatResponse is the JSON response for POST /api/ideation/chat.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	ModelUsed      string `json:"model_used"` // openai, ollama, none, or auto after a reset
}

// ResetRequest is the optional JSON request body for POST /api/ideation/reset.
type ResetRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

// ResetResponse is the JSON response for POST /api/ideation/reset.
type ResetResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// HistoryResponse is the JSON response for GET /api/ideation/history.
type HistoryResponse struct {
	ConversationHistory []conversation.Message `json:"conversation_history"`
	TotalMessages       int                    `json:"total_messages"`
}

// ConfigResponse is the JSON response for GET /api/ideation/config.
type ConfigResponse struct {
	OpenAIAvailable bool   `json:"openai_available"`
	OllamaAvailable bool   `json:"ollama_available"`
	CurrentModel    string `json:"current_model"`
	OpenAIModel     string `json:"openai_model"`
	OllamaModel     string `json:"ollama_model"`
}

// AttemptView is one ledger entry as returned by the attempts endpoints.
type AttemptView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Outcome        string    `json:"outcome"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// AttemptStatsView summarizes a conversation's attempts.
type AttemptStatsView struct {
	Total         int64   `json:"total"`
	Answered      int64   `json:"answered"`
	Absent        int64   `json:"absent"`
	Skipped       int64   `json:"skipped"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// AttemptsResponse is the JSON response for GET /api/ideation/attempts.
type AttemptsResponse struct {
	ConversationID string           `json:"conversation_id"`
	Attempts       []AttemptView    `json:"attempts"`
	Stats          AttemptStatsView `json:"stats"`
}

// handleRoot handles GET / requests.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

// handleHealth returns 200 if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

// pinger is implemented by ledgers that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleReady returns 200 when the call ledger (if any) is reachable.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := g.ledger.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			g.logger.Warn("ledger not ready", "error", err)
			g.sendJSONError(w, http.StatusServiceUnavailable, "ledger unavailable")
			return
		}
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
}

// handleChat handles POST /api/ideation/chat requests.
// A reset request clears the conversation and returns without calling a backend.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := parseChatRequest(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ResetConversation {
		id := g.sessions.Do(req.ConversationID, func(c *ideation.Client) {
			c.Reset()
		})
		g.writeJSON(w, http.StatusOK, ChatResponse{
			Response:       chatResetResponse,
			ConversationID: id,
			ModelUsed:      modelAuto,
		})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		g.sendJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	kind, explicit, err := parseModel(req.Model)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var reply ideation.Reply
	id := g.sessions.Do(req.ConversationID, func(c *ideation.Client) {
		if explicit {
			c.SetPreferredProvider(kind)
		}
		reply = c.Submit(r.Context(), req.Message)
	})

	modelUsed := modelNone
	if reply.Answered {
		modelUsed = reply.Provider.Backend()
	}
	if g.metrics != nil {
		g.metrics.ObserveTurn(modelUsed)
	}

	g.logger.Debug("chat turn complete", "session_id", id, "model_used", modelUsed)
	g.writeJSON(w, http.StatusOK, ChatResponse{
		Response:       reply.Text,
		ConversationID: id,
		ModelUsed:      modelUsed,
	})
}

// handleReset handles POST /api/ideation/reset requests.
// Resetting an unknown conversation succeeds without creating one.
func (g *Gateway) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id := req.ConversationID
	if id == "" {
		id = r.URL.Query().Get("conversation_id")
	}

	g.sessions.Peek(id, func(c *ideation.Client) {
		c.Reset()
	})

	g.writeJSON(w, http.StatusOK, ResetResponse{Message: resetSuccessReply, Success: true})
}

// handleHistory handles GET /api/ideation/history requests.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := []conversation.Message{}
	g.sessions.Peek(r.URL.Query().Get("conversation_id"), func(c *ideation.Client) {
		history = c.Transcript()
	})

	g.writeJSON(w, http.StatusOK, HistoryResponse{
		ConversationHistory: history,
		TotalMessages:       len(history),
	})
}

// handleConfig handles GET /api/ideation/config requests.
// Unknown conversations report the configured defaults.
func (g *Gateway) handleConfig(w http.ResponseWriter, r *http.Request) {
	var active ideation.ActiveConfig
	found := g.sessions.Peek(r.URL.Query().Get("conversation_id"), func(c *ideation.Client) {
		active = c.ActiveConfig()
	})
	if !found {
		active = g.newClient("").ActiveConfig()
	}

	g.writeJSON(w, http.StatusOK, ConfigResponse{
		OpenAIAvailable: active.HostedAvailable,
		OllamaAvailable: active.LocalAvailable,
		CurrentModel:    active.CurrentProvider.Backend(),
		OpenAIModel:     active.HostedModel,
		OllamaModel:     active.LocalModel,
	})
}

// handleAttempts handles GET /api/ideation/attempts requests.
// Returns the conversation's provider attempts from the call ledger with totals.
func (g *Gateway) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if g.ledger == nil {
		g.sendJSONError(w, http.StatusNotFound, "call ledger is not enabled")
		return
	}

	id := r.URL.Query().Get("conversation_id")
	if id == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	limit := defaultAttemptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAttemptLimit)
	}

	recs, err := g.ledger.ListSessionAttempts(r.Context(), id, limit)
	if err != nil {
		g.logger.Error("listing attempts", "session_id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to read call ledger")
		return
	}

	stats, err := g.ledger.GetAttemptStats(r.Context(), store.AttemptFilter{SessionID: &id})
	if err != nil {
		g.logger.Error("computing attempt stats", "session_id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to read call ledger")
		return
	}

	views := make([]AttemptView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, toAttemptView(rec))
	}

	g.writeJSON(w, http.StatusOK, AttemptsResponse{
		ConversationID: id,
		Attempts:       views,
		Stats: AttemptStatsView{
			Total:         stats.Total,
			Answered:      stats.Answered,
			Absent:        stats.Absent,
			Skipped:       stats.Skipped,
			AvgDurationMS: stats.AvgDurationMS,
		},
	})
}

// handleAttempt handles GET /api/ideation/attempts/{id} requests.
func (g *Gateway) handleAttempt(w http.ResponseWriter, r *http.Request) {
	if g.ledger == nil {
		g.sendJSONError(w, http.StatusNotFound, "call ledger is not enabled")
		return
	}

	rec, err := g.ledger.GetAttempt(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "attempt not found")
		return
	}
	if err != nil {
		g.logger.Error("reading attempt", "id", r.PathValue("id"), "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to read call ledger")
		return
	}

	g.writeJSON(w, http.StatusOK, toAttemptView(rec))
}

func toAttemptView(rec *store.AttemptRecord) AttemptView {
	return AttemptView{
		ID:             rec.ID,
		ConversationID: rec.SessionID,
		Provider:       rec.Provider,
		Model:          rec.Model,
		Outcome:        rec.Outcome,
		DurationMS:     rec.DurationMS,
		CreatedAt:      rec.CreatedAt,
	}
}

// parseChatRequest decodes a ChatRequest. Validation of the message happens
// after reset handling, since a reset needs no message.
func parseChatRequest(r io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	return &req, nil
}

// parseModel maps the request's model field to a provider. explicit is false
// for "auto" or an empty value, which leave the current selection alone.
func parseModel(model string) (kind provider.Kind, explicit bool, err error) {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" || m == modelAuto {
		return "", false, nil
	}
	kind, err = provider.ParseKind(m)
	if err != nil {
		return "", false, errors.New("model must be one of auto, openai, ollama")
	}
	return kind, true, nil
}

// writeJSON writes v as a JSON response with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, map[string]string{"error": message})
}
