// ABOUTME: Gateway orchestrator that wires clients, sessions, and the HTTP server
// ABOUTME: Manages the call ledger, metrics, tailscale listener, and shutdown lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/ideation-gateway/internal/config"
	"github.com/2389/ideation-gateway/internal/ideation"
	"github.com/2389/ideation-gateway/internal/metrics"
	"github.com/2389/ideation-gateway/internal/prompt"
	"github.com/2389/ideation-gateway/internal/provider"
	"github.com/2389/ideation-gateway/internal/session"
	"github.com/2389/ideation-gateway/internal/store"
)

// Gateway orchestrates the ideation-gateway server components.
// It owns one session registry of gateway clients and the HTTP server in front of it.
type Gateway struct {
	config      *config.Config
	sessions    *session.Registry
	ledger      store.Ledger
	metrics     *metrics.Metrics
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// shared by every client
	hosted    provider.Adapter
	local     provider.Adapter
	prompt    ideation.PromptSource
	observers []ideation.Observer

	// clientLogger is handed to new clients without the gateway component tag
	clientLogger *slog.Logger
}

// Deps overrides the components New would otherwise build from config.
// Nil fields fall back to the configured implementation.
type Deps struct {
	Hosted provider.Adapter
	Local  provider.Adapter
	Prompt ideation.PromptSource
	Ledger store.Ledger
}

// initLedger opens the call ledger when a database path is configured.
func initLedger(cfg *config.Config) (store.Ledger, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("IDEATION_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	if dbPath == "" {
		return nil, nil
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	return NewWithDeps(cfg, logger, Deps{})
}

// NewWithDeps creates a Gateway, using any components supplied in deps.
func NewWithDeps(cfg *config.Config, logger *slog.Logger, deps Deps) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if deps.Hosted == nil || deps.Local == nil {
		hosted, local := provider.FromConfig(cfg.Providers, logger)
		if deps.Hosted == nil {
			deps.Hosted = hosted
		}
		if deps.Local == nil {
			deps.Local = local
		}
	}
	if deps.Prompt == nil {
		deps.Prompt = prompt.NewLoader(cfg.Providers.SystemPromptFile)
	}
	if deps.Ledger == nil {
		ledger, err := initLedger(cfg)
		if err != nil {
			return nil, err
		}
		deps.Ledger = ledger
	}

	gw := &Gateway{
		config:       cfg,
		ledger:       deps.Ledger,
		hosted:       deps.Hosted,
		local:        deps.Local,
		prompt:       deps.Prompt,
		logger:       logger.With("component", "gateway"),
		clientLogger: logger,
	}

	if gw.ledger != nil {
		gw.observers = append(gw.observers, store.NewRecorder(gw.ledger, logger))
	}

	gw.sessions = session.New(session.Config{
		TTL:     cfg.Sessions.TTL,
		MaxSize: cfg.Sessions.MaxSessions,
		Shared:  cfg.Sessions.Mode == config.SessionModeShared,
		Factory: gw.newClient,
		Logger:  logger,
	})

	if cfg.Metrics.Enabled {
		gw.metrics = metrics.New(gw.sessions.Len)
		gw.observers = append(gw.observers, gw.metrics)
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	gw.logger.Info("gateway configured",
		"openai_available", gw.hosted.Available(),
		"openai_model", gw.hosted.Model(),
		"ollama_model", gw.local.Model(),
		"preferred", provider.PreferredFromConfig(cfg.Providers).Backend(),
		"session_mode", cfg.Sessions.Mode,
		"ledger", gw.ledger != nil,
		"metrics", gw.metrics != nil,
	)

	return gw, nil
}

// newClient builds a fresh gateway client for a conversation.
func (g *Gateway) newClient(id string) *ideation.Client {
	return ideation.New(ideation.Options{
		Hosted:    g.hosted,
		Local:     g.local,
		Prompt:    g.prompt,
		Preferred: provider.PreferredFromConfig(g.config.Providers),
		SessionID: id,
		Logger:    g.clientLogger,
		Observers: g.observers,
	})
}

// Handler returns the complete HTTP handler including middleware.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", g.handleRoot)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	mux.HandleFunc("POST /api/ideation/chat", g.handleChat)
	mux.HandleFunc("POST /api/ideation/reset", g.handleReset)
	mux.HandleFunc("GET /api/ideation/history", g.handleHistory)
	mux.HandleFunc("GET /api/ideation/config", g.handleConfig)
	mux.HandleFunc("GET /api/ideation/transcript", g.handleTranscript)
	mux.HandleFunc("GET /api/ideation/attempts", g.handleAttempts)
	mux.HandleFunc("GET /api/ideation/attempts/{id}", g.handleAttempt)

	if g.metrics != nil {
		mux.Handle("GET "+g.config.Metrics.Path, g.metrics.Handler())
		g.logger.Info("metrics enabled", "path", g.config.Metrics.Path)
	}

	return g.withCORS(g.withRecovery(g.withRequestMetrics(mux)))
}

// setupListener creates the HTTP listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", g.config.Server.HTTPAddr,
			)
		}
		return g.setupTailscaleListener(ctx)
	}

	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		return err
	}
	return g.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until the context is canceled.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ideation-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener creates a tsnet server and returns a listener on :80.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := g.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	if g.ledger != nil {
		errs = appendCloseError(errs, "store close", g.ledger.Close())
	}

	g.sessions.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
