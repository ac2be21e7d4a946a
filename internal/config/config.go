// ABOUTME: Configuration loading and parsing for ideation-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and overrides

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Session modes
const (
	SessionModePerSession = "per_session"
	SessionModeShared     = "shared"
)

// Config represents the complete ideation-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
	Sessions  SessionsConfig  `yaml:"sessions" toml:"sessions"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// ProvidersConfig holds backend settings shared by every client
type ProvidersConfig struct {
	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`

	// PreferLocal makes new clients start on the local backend
	PreferLocal      bool   `yaml:"prefer_local" toml:"prefer_local"`
	SystemPromptFile string `yaml:"system_prompt_file" toml:"system_prompt_file"`

	OpenAI OpenAIConfig `yaml:"openai" toml:"openai"`
	Ollama OllamaConfig `yaml:"ollama" toml:"ollama"`
}

// OpenAIConfig holds hosted backend configuration. An empty APIKey disables it.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" toml:"api_key"`
	Model   string `yaml:"model" toml:"model"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// OllamaConfig holds local backend configuration
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Model   string `yaml:"model" toml:"model"`
}

// SessionsConfig controls how HTTP requests map to gateway clients
type SessionsConfig struct {
	Mode        string        `yaml:"mode" toml:"mode"`
	TTL         time.Duration `yaml:"-" toml:"-"`
	TTLRaw      string        `yaml:"ttl" toml:"ttl"`
	MaxSessions int           `yaml:"max_sessions" toml:"max_sessions"`
}

// DatabaseConfig holds the call ledger location. Empty disables the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// SlogLevel maps the configured level name to a slog level. Unknown names
// map to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: "0.0.0.0:8000"},
		Providers: ProvidersConfig{
			Timeout:          30 * time.Second,
			TimeoutRaw:       "30s",
			SystemPromptFile: "system_prompt.txt",
			OpenAI: OpenAIConfig{
				Model:   "gpt-3.5-turbo",
				BaseURL: "https://api.openai.com/v1",
			},
			Ollama: OllamaConfig{
				BaseURL: "http://localhost:11434",
				Model:   "llama2",
			},
		},
		Sessions: SessionsConfig{
			Mode:        SessionModePerSession,
			TTL:         30 * time.Minute,
			TTLRaw:      "30m",
			MaxSessions: 1000,
		},
		Tailscale: TailscaleConfig{Hostname: "ideation-gateway"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Metrics:   MetricsConfig{Path: "/metrics"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then the
// OPENAI_* / OLLAMA_* / USE_OLLAMA overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(cfg)
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist. Environment overrides still apply.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides applies the conventional backend variables on top of the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Providers.OpenAI.Model = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Providers.Ollama.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Providers.Ollama.Model = v
	}
	if v := os.Getenv("USE_OLLAMA"); v != "" {
		cfg.Providers.PreferLocal = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Providers.Ollama.BaseURL == "" {
		return fmt.Errorf("providers.ollama.base_url is required")
	}
	if u, err := url.Parse(c.Providers.Ollama.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("providers.ollama.base_url %q is not an absolute URL", c.Providers.Ollama.BaseURL)
	}

	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive")
	}

	switch c.Sessions.Mode {
	case SessionModePerSession, SessionModeShared:
	default:
		return fmt.Errorf("sessions.mode must be %q or %q, got %q", SessionModePerSession, SessionModeShared, c.Sessions.Mode)
	}

	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be positive")
	}

	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("sessions.max_sessions must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Providers.TimeoutRaw != "" {
		cfg.Providers.Timeout, err = time.ParseDuration(cfg.Providers.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing providers.timeout %q: %w", cfg.Providers.TimeoutRaw, err)
		}
	}

	if cfg.Sessions.TTLRaw != "" {
		cfg.Sessions.TTL, err = time.ParseDuration(cfg.Sessions.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.ttl %q: %w", cfg.Sessions.TTLRaw, err)
		}
	}

	return nil
}

// Path returns the config file location.
// Priority: IDEATION_CONFIG env var > XDG_CONFIG_HOME/ideation/gateway.yaml > ~/.config/ideation/gateway.yaml
func Path() string {
	if envPath := os.Getenv("IDEATION_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ideation", "gateway.yaml")
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Providers.OpenAI.APIKey != "" {
		out.Providers.OpenAI.APIKey = "***"
	}
	if out.Tailscale.AuthKey != "" {
		out.Tailscale.AuthKey = "***"
	}
	return &out
}
