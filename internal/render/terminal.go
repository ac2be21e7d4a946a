// ABOUTME: Terminal rendering of replies using lipgloss and glamour
// ABOUTME: Falls back to the raw text whenever styling fails

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const completionTitle = "🎉 Ideation Complete!"

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	labelStyle = lipgloss.NewStyle().Bold(true)
)

// Card draws a completion summary as a bordered panel.
func Card(c *Completion) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(completionTitle))
	b.WriteString("\n")
	for _, row := range c.Rows() {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(row[0] + ":"))
		b.WriteString(" ")
		b.WriteString(row[1])
	}
	return cardStyle.Render(b.String())
}

// Markdown renders text for a terminal of the given width. A width of zero
// or less uses 100 columns.
func Markdown(text string, width int) string {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return text
	}
	styled, err := r.Render(text)
	if err != nil {
		return text
	}
	return styled
}

// Terminal renders a reply: completion objects as a card, anything else as
// markdown.
func Terminal(text string, width int) string {
	if c, ok := ParseCompletion(text); ok {
		return Card(c)
	}
	return Markdown(text, width)
}
