// ABOUTME: Read-only HTML view of a conversation transcript
// ABOUTME: Assistant replies are rendered from markdown; user turns are escaped text

package gateway

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/2389/ideation-gateway/internal/conversation"
	"github.com/2389/ideation-gateway/internal/ideation"
	"github.com/2389/ideation-gateway/internal/render"
)

var transcriptTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ideation transcript</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
.turn { border-radius: 8px; padding: 0.75rem 1rem; margin: 0.75rem 0; }
.user { background: #eef4ff; }
.assistant { background: #f4f4f4; }
.role { font-size: 0.75rem; text-transform: uppercase; color: #666; margin-bottom: 0.25rem; }
.completion dt { font-weight: bold; }
.empty { color: #888; }
</style>
</head>
<body>
<h1>Ideation transcript</h1>
{{if .ConversationID}}<p class="role">Conversation {{.ConversationID}}</p>{{end}}
{{range .Turns}}
<div class="turn {{.Role}}">
<div class="role">{{.Role}}</div>
{{if .HTML}}{{.HTML}}{{else}}<p>{{.Text}}</p>{{end}}
</div>
{{else}}
<p class="empty">No messages yet.</p>
{{end}}
</body>
</html>
`))

type transcriptTurn struct {
	Role string
	Text string
	HTML template.HTML
}

type transcriptPage struct {
	ConversationID string
	Turns          []transcriptTurn
}

// handleTranscript handles GET /api/ideation/transcript requests.
func (g *Gateway) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("conversation_id")

	var messages []conversation.Message
	g.sessions.Peek(id, func(c *ideation.Client) {
		messages = c.Transcript()
	})

	page := transcriptPage{ConversationID: id}
	for _, m := range messages {
		turn := transcriptTurn{Role: string(m.Role)}
		if m.Role == conversation.RoleAssistant {
			turn.HTML = render.HTML(m.Content)
		} else {
			turn.Text = m.Content
		}
		page.Turns = append(page.Turns, turn)
	}

	var buf bytes.Buffer
	if err := transcriptTemplate.Execute(&buf, page); err != nil {
		g.logger.Error("failed to render transcript", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
