// ABOUTME: Read-submit-render loop for the interactive CLI
// ABOUTME: Handles quit words, blank input, the thinking spinner, and interrupts

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/2389/ideation-gateway/internal/ideation"
	"github.com/2389/ideation-gateway/internal/provider"
	"github.com/2389/ideation-gateway/internal/render"
)

const (
	interruptedMessage = "Session interrupted. Goodbye!"
	farewellMessage    = "Thank you for using Ideation Buddy!"
	renderWidth        = 100
)

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("12")).
	Padding(0, 1)

type session struct {
	client *ideation.Client
	in     io.Reader
	out    io.Writer

	// thinking shows a progress indicator until the returned func is called.
	thinking func() (stop func())
}

func newSession(client *ideation.Client, in io.Reader, out io.Writer) *session {
	s := &session{client: client, in: in, out: out}
	s.thinking = s.spin
	return s
}

func (s *session) spin() func() {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.out))
	sp.Suffix = color.YellowString(" Thinking...")
	sp.Start()
	return sp.Stop
}

// applyFlags prints the banner and applies the model and reset options.
func (s *session) applyFlags(model string, reset bool) error {
	fmt.Fprintln(s.out, bannerStyle.Render(
		color.New(color.FgBlue, color.Bold).Sprint("🚀 Ideation Buddy CLI")+"\n"+
			color.HiBlackString("Your AI-powered product ideation assistant"),
	))

	if reset {
		s.client.Reset()
		fmt.Fprintln(s.out, color.GreenString("Conversation history reset!"))
	}

	switch strings.ToLower(strings.TrimSpace(model)) {
	case "", "auto":
		fmt.Fprintln(s.out, color.YellowString("Auto-detecting AI service..."))
	default:
		kind, err := provider.ParseKind(model)
		if err != nil {
			return fmt.Errorf("--model must be one of auto, openai, ollama: %w", err)
		}
		s.client.SetPreferredProvider(kind)
		if kind == provider.KindLocal {
			fmt.Fprintln(s.out, color.YellowString("Using Ollama model"))
		} else {
			fmt.Fprintln(s.out, color.YellowString("Using OpenAI model"))
		}
	}
	return nil
}

// run loops until the user quits, input ends, or ctx is canceled.
func (s *session) run(ctx context.Context) error {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, color.New(color.Bold).Sprint("Starting ideation session..."))
	fmt.Fprint(s.out, "Type 'quit' or 'exit' to end the session\n\n")

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(s.out, color.New(color.FgCyan, color.Bold).Sprint("You")+": ")

		var input string
		select {
		case <-ctx.Done():
			s.interrupted()
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			input = line
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "quit", "exit", "q":
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, color.GreenString(farewellMessage))
			return nil
		case "":
			continue
		}

		stop := s.thinking()
		reply := s.client.Submit(ctx, input)
		stop()

		if ctx.Err() != nil {
			s.interrupted()
			return nil
		}

		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, color.New(color.FgGreen, color.Bold).Sprint("AI Assistant"))
		fmt.Fprintln(s.out, render.Terminal(reply.Text, renderWidth))
		fmt.Fprintln(s.out)
	}
}

func (s *session) interrupted() {
	fmt.Fprintf(s.out, "\n\n%s\n", color.YellowString(interruptedMessage))
}
