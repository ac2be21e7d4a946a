// ABOUTME: Builds the hosted and local adapters from loaded configuration
// ABOUTME: Shared by the HTTP service and the interactive CLI

package provider

import (
	"log/slog"

	"github.com/2389/ideation-gateway/internal/config"
)

// FromConfig creates both adapters. The hosted adapter is unavailable when
// no API key is configured.
func FromConfig(cfg config.ProvidersConfig, logger *slog.Logger) (*Hosted, *Local) {
	hosted := NewHosted(HostedConfig{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	local := NewLocal(LocalConfig{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	return hosted, local
}

// PreferredFromConfig returns the initial provider selection for new clients.
func PreferredFromConfig(cfg config.ProvidersConfig) Kind {
	if cfg.PreferLocal {
		return KindLocal
	}
	return KindHosted
}
