// Package gateway serves the ideation client over HTTP.
//
// # Overview
//
// The Gateway owns a session.Registry of ideation clients, the shared
// backend adapters, and the HTTP server. Each request names a conversation
// by conversation_id; the registry serializes turns on the same
// conversation so a client is never used concurrently.
//
// # HTTP API
//
//   - GET /                          - Liveness message
//   - GET /health                    - Health check
//   - GET /health/ready              - Readiness (pings the call ledger if configured)
//   - POST /api/ideation/chat        - Submit a message, or reset with reset_conversation
//   - POST /api/ideation/reset       - Clear a conversation
//   - GET /api/ideation/history      - Transcript as JSON
//   - GET /api/ideation/config       - Backend availability and current selection
//   - GET /api/ideation/transcript   - Transcript as HTML
//   - GET {metrics.path}             - Prometheus metrics, when enabled
//
// Every response carries permissive CORS headers. A handler panic becomes
// a 500 with {"error":"internal server error"}.
//
// # Chat
//
// A chat request looks like:
//
//	{"message": "An app for dog walkers", "model": "auto", "conversation_id": "..."}
//
// model is auto, openai, or ollama. auto keeps the conversation's current
// selection; the others change it before the turn. The response reports the
// backend that answered in model_used, or "none" when the fixed fallback
// text was returned.
//
// # Listeners
//
// The server listens on server.http_addr, or on :80 of a tsnet node when
// tailscale is enabled.
package gateway
