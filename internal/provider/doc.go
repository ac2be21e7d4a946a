// Package provider adapts a conversation to the two supported chat backends.
//
// # Backends
//
// Hosted (Kind "hosted", backend name "openai"):
//
//	POST {base_url}/chat/completions
//	Authorization: Bearer <api_key>
//	{"model": ..., "messages": [...], "temperature": 0.7}
//
// The reply is choices[0].message.content. Without an API key the adapter
// reports itself unavailable and never touches the network.
//
// Local (Kind "local", backend name "ollama"):
//
//	POST {base_url}/api/chat
//	{"model": ..., "messages": [...], "stream": false}
//
// The reply is message.content. No credential is needed.
//
// # Envelope
//
// Both adapters send the system prompt first, then the prior transcript in
// order, then the new user message.
//
// # Failure
//
// Call never returns an error. Transport failures, timeouts, non-2xx status,
// malformed bodies and empty replies are logged at warn level and reported as
// ("", false). Each call is bounded by its own timeout (30s by default) on top
// of the caller's context.
package provider
