// ABOUTME: Interactive terminal session for product ideation
// ABOUTME: Drives one gateway client with OpenAI/Ollama fallback from the command line

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/ideation-gateway/internal/config"
	"github.com/2389/ideation-gateway/internal/ideation"
	"github.com/2389/ideation-gateway/internal/prompt"
	"github.com/2389/ideation-gateway/internal/provider"
)

var (
	modelFlag  string
	resetFlag  bool
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:           "ideation-cli",
	Short:         "Ideation Buddy CLI - AI-powered product ideation assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "auto", "AI model to use (openai, ollama, auto)")
	rootCmd.Flags().BoolVarP(&resetFlag, "reset", "r", false, "Reset conversation history")
	rootCmd.Flags().StringVar(&configFlag, "config", config.Path(), "config file")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Logging, os.Stderr)
	hosted, local := provider.FromConfig(cfg.Providers, logger)
	client := ideation.New(ideation.Options{
		Hosted:    hosted,
		Local:     local,
		Prompt:    prompt.NewLoader(cfg.Providers.SystemPromptFile),
		Preferred: provider.PreferredFromConfig(cfg.Providers),
		SessionID: "cli",
		Logger:    logger,
	})

	s := newSession(client, os.Stdin, os.Stdout)
	if err := s.applyFlags(modelFlag, resetFlag); err != nil {
		return err
	}
	return s.run(ctx)
}

// newLogger writes to stderr so log lines stay out of the conversation on stdout.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}
