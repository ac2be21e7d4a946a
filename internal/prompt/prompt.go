// ABOUTME: Loads the system prompt from a plain-text file with a fixed fallback
// ABOUTME: The file is cached after the first successful read

// Package prompt loads the system prompt placed in front of every backend call.
package prompt

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// DefaultSystemPrompt is used when the prompt file cannot be read.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// DefaultPath is the prompt file looked up relative to the working directory.
const DefaultPath = "system_prompt.txt"

// Loader reads the system prompt from Path.
type Loader struct {
	Path string

	mu     sync.Mutex
	cached string
	loaded bool
}

// NewLoader returns a Loader for path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// SystemPrompt returns the trimmed file contents, or DefaultSystemPrompt if
// the file is unreadable. Failures are not cached so a file created later is
// still picked up.
func (l *Loader) SystemPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.cached
	}

	text, err := l.read()
	if err != nil {
		return DefaultSystemPrompt
	}

	l.cached = text
	l.loaded = true
	return text
}

func (l *Loader) read() (string, error) {
	if l.Path == "" {
		return "", fmt.Errorf("no prompt path configured")
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return "", fmt.Errorf("reading system prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
