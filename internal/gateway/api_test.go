// ABOUTME: Tests for the ideation HTTP API handlers.
// ABOUTME: Drives the full handler chain with fake backends via httptest.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ideation-gateway/internal/config"
	"github.com/2389/ideation-gateway/internal/conversation"
	"github.com/2389/ideation-gateway/internal/ideation"
	"github.com/2389/ideation-gateway/internal/provider"
	"github.com/2389/ideation-gateway/internal/store"
)

// fakeBackend implements provider.Adapter with a canned reply.
type fakeBackend struct {
	kind      provider.Kind
	model     string
	available bool

	mu    sync.Mutex
	reply string
	calls int
	users []string
}

func (f *fakeBackend) Kind() provider.Kind { return f.kind }
func (f *fakeBackend) Model() string       { return f.model }
func (f *fakeBackend) Available() bool     { return f.available }

func (f *fakeBackend) Call(_ context.Context, _ []conversation.Message, _ string, user string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.users = append(f.users, user)
	return f.reply, f.reply != ""
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticPrompt string

func (s staticPrompt) SystemPrompt() string { return string(s) }

type testEnv struct {
	gw     *Gateway
	server *httptest.Server
	hosted *fakeBackend
	local  *fakeBackend
	ledger *store.MockStore
}

func newTestGateway(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	t.Setenv("IDEATION_DB_PATH", "")

	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}

	env := &testEnv{
		hosted: &fakeBackend{kind: provider.KindHosted, model: "gpt-test", available: true, reply: "hosted reply"},
		local:  &fakeBackend{kind: provider.KindLocal, model: "llama-test", available: true, reply: "local reply"},
		ledger: store.NewMockStore(),
	}

	gw, err := NewWithDeps(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Hosted: env.hosted,
		Local:  env.local,
		Prompt: staticPrompt("be helpful"),
		Ledger: env.ledger,
	})
	require.NoError(t, err)
	env.gw = gw
	env.server = httptest.NewServer(gw.Handler())
	t.Cleanup(func() {
		env.server.Close()
		gw.sessions.Close()
	})
	return env
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) chat(t *testing.T, req ChatRequest) ChatResponse {
	t.Helper()
	resp := e.postJSON(t, "/api/ideation/chat", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[ChatResponse](t, resp)
}

func TestHandleRoot(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]string{"message": "Ideation Gateway is running"}, decode[map[string]string](t, resp))
}

func TestHandleHealth(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "healthy", "service": "ideation-gateway"}, decode[map[string]string](t, resp))
}

func TestHandleReady(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleChat_HostedAnswers(t *testing.T) {
	env := newTestGateway(t)

	out := env.chat(t, ChatRequest{Message: "An app for dog walkers"})

	assert.Equal(t, "hosted reply", out.Response)
	assert.Equal(t, "openai", out.ModelUsed)
	assert.NotEmpty(t, out.ConversationID)
	assert.Equal(t, 1, env.hosted.callCount())
	assert.Equal(t, 0, env.local.callCount())
}

func TestHandleChat_FallsBackToLocal(t *testing.T) {
	env := newTestGateway(t)
	env.hosted.reply = ""

	out := env.chat(t, ChatRequest{Message: "hello"})

	assert.Equal(t, "local reply", out.Response)
	assert.Equal(t, "ollama", out.ModelUsed)
}

func TestHandleChat_TotalFailure(t *testing.T) {
	env := newTestGateway(t)
	env.hosted.reply = ""
	env.local.reply = ""

	out := env.chat(t, ChatRequest{Message: "hello"})

	assert.Equal(t, ideation.FallbackReply, out.Response)
	assert.Equal(t, "none", out.ModelUsed)

	// The unanswered user turn stays in the history
	hist := decode[HistoryResponse](t, env.get(t, "/api/ideation/history?conversation_id="+out.ConversationID))
	assert.Equal(t, 1, hist.TotalMessages)
	assert.Equal(t, conversation.UserMessage("hello"), hist.ConversationHistory[0])
}

func TestHandleChat_ModelSelection(t *testing.T) {
	env := newTestGateway(t)

	first := env.chat(t, ChatRequest{Message: "one", Model: "ollama"})
	assert.Equal(t, "ollama", first.ModelUsed)
	assert.Equal(t, 0, env.hosted.callCount())

	// auto keeps the previous selection for this conversation
	second := env.chat(t, ChatRequest{Message: "two", Model: "auto", ConversationID: first.ConversationID})
	assert.Equal(t, "ollama", second.ModelUsed)
	assert.Equal(t, 0, env.hosted.callCount())

	third := env.chat(t, ChatRequest{Message: "three", Model: "openai", ConversationID: first.ConversationID})
	assert.Equal(t, "openai", third.ModelUsed)
	assert.Equal(t, 1, env.hosted.callCount())
}

func TestHandleChat_ModelSelectionIsPerConversation(t *testing.T) {
	env := newTestGateway(t)

	env.chat(t, ChatRequest{Message: "one", Model: "ollama", ConversationID: "a"})
	out := env.chat(t, ChatRequest{Message: "two", ConversationID: "b"})

	assert.Equal(t, "openai", out.ModelUsed)
}

func TestHandleChat_BlankMessage(t *testing.T) {
	env := newTestGateway(t)

	for _, msg := range []string{"", "   ", "\n\t"} {
		resp := env.postJSON(t, "/api/ideation/chat", ChatRequest{Message: msg})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "message is required", decode[map[string]string](t, resp)["error"])
	}
	assert.Equal(t, 0, env.hosted.callCount())
	assert.Equal(t, 0, env.local.callCount())
}

func TestHandleChat_UnknownModel(t *testing.T) {
	env := newTestGateway(t)

	resp := env.postJSON(t, "/api/ideation/chat", ChatRequest{Message: "hi", Model: "claude"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "model must be one of")
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	env := newTestGateway(t)

	resp, err := http.Post(env.server.URL+"/api/ideation/chat", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON body", decode[map[string]string](t, resp)["error"])
}

func TestHandleChat_WrongMethod(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/api/ideation/chat")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleChat_ResetConversation(t *testing.T) {
	env := newTestGateway(t)

	first := env.chat(t, ChatRequest{Message: "remember me"})
	out := env.chat(t, ChatRequest{ResetConversation: true, ConversationID: first.ConversationID})

	assert.Equal(t, "Conversation history has been reset. How can I help you with your product ideation?", out.Response)
	assert.Equal(t, "auto", out.ModelUsed)
	assert.Equal(t, first.ConversationID, out.ConversationID)
	assert.Equal(t, 1, env.hosted.callCount(), "reset must not call a backend")

	hist := decode[HistoryResponse](t, env.get(t, "/api/ideation/history?conversation_id="+first.ConversationID))
	assert.Equal(t, 0, hist.TotalMessages)
}

func TestHandleChat_ConversationContinues(t *testing.T) {
	env := newTestGateway(t)

	first := env.chat(t, ChatRequest{Message: "one"})
	second := env.chat(t, ChatRequest{Message: "two", ConversationID: first.ConversationID})
	assert.Equal(t, first.ConversationID, second.ConversationID)

	hist := decode[HistoryResponse](t, env.get(t, "/api/ideation/history?conversation_id="+first.ConversationID))
	assert.Equal(t, 4, hist.TotalMessages)
	assert.Equal(t, []conversation.Message{
		conversation.UserMessage("one"),
		conversation.AssistantMessage("hosted reply"),
		conversation.UserMessage("two"),
		conversation.AssistantMessage("hosted reply"),
	}, hist.ConversationHistory)
}

func TestHandleChat_SeparateConversations(t *testing.T) {
	env := newTestGateway(t)

	a := env.chat(t, ChatRequest{Message: "one"})
	b := env.chat(t, ChatRequest{Message: "two"})
	assert.NotEqual(t, a.ConversationID, b.ConversationID)

	hist := decode[HistoryResponse](t, env.get(t, "/api/ideation/history?conversation_id="+a.ConversationID))
	assert.Equal(t, 2, hist.TotalMessages)
}

func TestHandleChat_SharedMode(t *testing.T) {
	env := newTestGateway(t, func(c *config.Config) { c.Sessions.Mode = config.SessionModeShared })

	a := env.chat(t, ChatRequest{Message: "one"})
	b := env.chat(t, ChatRequest{Message: "two", ConversationID: "ignored"})
	assert.Equal(t, "shared", a.ConversationID)
	assert.Equal(t, "shared", b.ConversationID)

	hist := decode[HistoryResponse](t, env.get(t, "/api/ideation/history"))
	assert.Equal(t, 4, hist.TotalMessages)
}

func TestHandleChat_PreferLocalConfig(t *testing.T) {
	env := newTestGateway(t, func(c *config.Config) { c.Providers.PreferLocal = true })

	out := env.chat(t, ChatRequest{Message: "hi"})
	assert.Equal(t, "ollama", out.ModelUsed)
	assert.Equal(t, 0, env.hosted.callCount())
}

func TestHandleChat_RecordsAttempts(t *testing.T) {
	env := newTestGateway(t)
	env.hosted.reply = ""

	out := env.chat(t, ChatRequest{Message: "hi"})

	recs, err := env.ledger.ListSessionAttempts(context.Background(), out.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "hosted", recs[0].Provider)
	assert.Equal(t, store.OutcomeAbsent, recs[0].Outcome)
	assert.Equal(t, "local", recs[1].Provider)
	assert.Equal(t, store.OutcomeOK, recs[1].Outcome)
}

func TestHandleReset(t *testing.T) {
	env := newTestGateway(t)
	first := env.chat(t, ChatRequest{Message: "one"})

	resp := env.postJSON(t, "/api/ideation/reset", ResetRequest{ConversationID: first.ConversationID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ResetResponse{Message: "Conversation history has been reset successfully", Success: true}, decode[ResetResponse](t, resp))

	hist := decode[HistoryResponse](t, env.get(t, "/api/ideation/history?conversation_id="+first.ConversationID))
	assert.Equal(t, 0, hist.TotalMessages)
}

func TestHandleReset_EmptyBodyAndUnknownConversation(t *testing.T) {
	env := newTestGateway(t)

	resp, err := http.Post(env.server.URL+"/api/ideation/reset?conversation_id=nobody", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[ResetResponse](t, resp).Success)
	assert.Equal(t, 0, env.gw.sessions.Len(), "reset must not create a conversation")
}

func TestHandleHistory_UnknownConversation(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/api/ideation/history?conversation_id=missing")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["conversation_history"]))
	assert.JSONEq(t, `0`, string(raw["total_messages"]))
}

func TestHandleConfig(t *testing.T) {
	env := newTestGateway(t)
	env.hosted.available = false

	out := decode[ConfigResponse](t, env.get(t, "/api/ideation/config"))
	assert.Equal(t, ConfigResponse{
		OpenAIAvailable: false,
		OllamaAvailable: true,
		CurrentModel:    "openai",
		OpenAIModel:     "gpt-test",
		OllamaModel:     "llama-test",
	}, out)
}

func TestHandleConfig_ReflectsConversationSelection(t *testing.T) {
	env := newTestGateway(t)
	first := env.chat(t, ChatRequest{Message: "hi", Model: "ollama"})

	out := decode[ConfigResponse](t, env.get(t, "/api/ideation/config?conversation_id="+first.ConversationID))
	assert.Equal(t, "ollama", out.CurrentModel)

	fresh := decode[ConfigResponse](t, env.get(t, "/api/ideation/config"))
	assert.Equal(t, "openai", fresh.CurrentModel)
}

func TestCORS(t *testing.T) {
	env := newTestGateway(t)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/ideation/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Headers"))

	get := env.get(t, "/health")
	assert.Equal(t, "*", get.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	env := newTestGateway(t)

	h := env.gw.withRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestHandleTranscript(t *testing.T) {
	env := newTestGateway(t)
	env.hosted.reply = "**Great** idea"

	first := env.chat(t, ChatRequest{Message: "<b>my idea</b>"})

	resp := env.get(t, "/api/ideation/transcript?conversation_id="+first.ConversationID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, "<strong>Great</strong> idea")
	assert.Contains(t, page, "&lt;b&gt;my idea&lt;/b&gt;")
	assert.NotContains(t, page, "<b>my idea</b>")
}

func TestHandleTranscript_Empty(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/api/ideation/transcript?conversation_id=none")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "No messages yet.")
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		in       string
		kind     provider.Kind
		explicit bool
		wantErr  bool
	}{
		{"", "", false, false},
		{"auto", "", false, false},
		{"AUTO", "", false, false},
		{"openai", provider.KindHosted, true, false},
		{"ollama", provider.KindLocal, true, false},
		{" Ollama ", provider.KindLocal, true, false},
		{"gemini", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, explicit, err := parseModel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.explicit, explicit)
		})
	}
}

func TestHandleAttempts(t *testing.T) {
	env := newTestGateway(t)
	env.hosted.reply = ""

	first := env.chat(t, ChatRequest{Message: "one"})
	env.chat(t, ChatRequest{Message: "two", ConversationID: first.ConversationID})
	env.chat(t, ChatRequest{Message: "elsewhere"})

	resp := env.get(t, "/api/ideation/attempts?conversation_id="+first.ConversationID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[AttemptsResponse](t, resp)

	assert.Equal(t, first.ConversationID, out.ConversationID)
	require.Len(t, out.Attempts, 4)
	assert.Equal(t, "hosted", out.Attempts[0].Provider)
	assert.Equal(t, store.OutcomeAbsent, out.Attempts[0].Outcome)
	assert.Equal(t, "gpt-test", out.Attempts[0].Model)
	assert.Equal(t, "local", out.Attempts[1].Provider)
	assert.Equal(t, store.OutcomeOK, out.Attempts[1].Outcome)
	for _, a := range out.Attempts {
		assert.Equal(t, first.ConversationID, a.ConversationID)
	}

	assert.Equal(t, int64(4), out.Stats.Total)
	assert.Equal(t, int64(2), out.Stats.Answered)
	assert.Equal(t, int64(2), out.Stats.Absent)
	assert.Equal(t, int64(0), out.Stats.Skipped)
}

func TestHandleAttempts_Limit(t *testing.T) {
	env := newTestGateway(t)
	env.hosted.reply = ""
	first := env.chat(t, ChatRequest{Message: "one"})

	resp := env.get(t, "/api/ideation/attempts?limit=1&conversation_id="+first.ConversationID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[AttemptsResponse](t, resp)

	require.Len(t, out.Attempts, 1)
	assert.Equal(t, int64(2), out.Stats.Total, "stats cover the whole conversation")
}

func TestHandleAttempts_UnknownConversation(t *testing.T) {
	env := newTestGateway(t)

	resp := env.get(t, "/api/ideation/attempts?conversation_id=nobody")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[AttemptsResponse](t, resp)

	assert.NotNil(t, out.Attempts)
	assert.Empty(t, out.Attempts)
	assert.Equal(t, int64(0), out.Stats.Total)
}

func TestHandleAttempts_BadRequests(t *testing.T) {
	env := newTestGateway(t)

	tests := []struct {
		path    string
		wantErr string
	}{
		{"/api/ideation/attempts", "conversation_id is required"},
		{"/api/ideation/attempts?conversation_id=x&limit=0", "limit must be a positive integer"},
		{"/api/ideation/attempts?conversation_id=x&limit=abc", "limit must be a positive integer"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := env.get(t, tt.path)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantErr, decode[map[string]string](t, resp)["error"])
		})
	}
}

func TestHandleAttempt(t *testing.T) {
	env := newTestGateway(t)
	out := env.chat(t, ChatRequest{Message: "hi"})

	recs, err := env.ledger.ListSessionAttempts(context.Background(), out.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	resp := env.get(t, "/api/ideation/attempts/"+recs[0].ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[AttemptView](t, resp)
	assert.Equal(t, recs[0].ID, got.ID)
	assert.Equal(t, "hosted", got.Provider)
	assert.Equal(t, store.OutcomeOK, got.Outcome)

	missing := env.get(t, "/api/ideation/attempts/does-not-exist")
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, "attempt not found", decode[map[string]string](t, missing)["error"])
}

func TestHandleAttempts_LedgerDisabled(t *testing.T) {
	t.Setenv("IDEATION_DB_PATH", "")
	gw, err := NewWithDeps(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Hosted: &fakeBackend{kind: provider.KindHosted, available: true, reply: "h"},
		Local:  &fakeBackend{kind: provider.KindLocal, available: true, reply: "l"},
		Prompt: staticPrompt("be helpful"),
	})
	require.NoError(t, err)
	defer gw.sessions.Close()

	for _, path := range []string{"/api/ideation/attempts?conversation_id=x", "/api/ideation/attempts/abc"} {
		rec := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
