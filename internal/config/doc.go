// Package config handles configuration loading for ideation-gateway.
//
// # Overview
//
// Configuration is loaded from YAML (or TOML, by file extension) with
// environment variable expansion. Every field has a default, so a missing
// file is not an error for LoadOrDefault.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from IDEATION_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/ideation/gateway.yaml
//  3. ~/.config/ideation/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	providers:
//	  openai:
//	    api_key: "${OPENAI_API_KEY}"
//
// After parsing, OPENAI_API_KEY, OPENAI_MODEL, OLLAMA_BASE_URL and
// OLLAMA_MODEL override their fields when set. USE_OLLAMA sets
// providers.prefer_local; only the value "true" (any case) enables it.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	providers:
//	  timeout: "30s"
//	sessions:
//	  ttl: "30m"
package config
