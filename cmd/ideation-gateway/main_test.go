// ABOUTME: Tests for gateway command helpers
// ABOUTME: Covers log level parsing, the color handler, and health address rewriting

package main

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/2389/ideation-gateway/internal/config"
)

func TestSetupLogger_JSONHonorsLevel(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"})

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestHealthHost(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8000", healthHost("0.0.0.0:8000"))
	assert.Equal(t, "127.0.0.1:9000", healthHost(":9000"))
	assert.Equal(t, "10.0.0.5:8000", healthHost("10.0.0.5:8000"))
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	oldOutput, oldNoColor := color.Output, color.NoColor
	color.Output, color.NoColor = &buf, true
	defer func() { color.Output, color.NoColor = oldOutput, oldNoColor }()

	h := &colorHandler{mu: &sync.Mutex{}, level: slog.LevelInfo}
	logger := slog.New(h).With("component", "gateway").WithGroup("req")

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))

	logger.Warn("slow backend", "provider", "hosted", "elapsed", 2*time.Second)
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "WRN slow backend")
	assert.Contains(t, out, "component=gateway")
	assert.Contains(t, out, "req.provider=hosted")
	assert.NotContains(t, out, "hidden")
}
