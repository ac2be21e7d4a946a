// ABOUTME: HTML rendering of replies for the transcript view using goldmark
// ABOUTME: Raw HTML in model output is escaped, never passed through

package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML converts a reply to safe HTML. Completion objects become a definition
// list; everything else is treated as markdown.
func HTML(text string) template.HTML {
	if c, ok := ParseCompletion(text); ok {
		return completionHTML(c)
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(buf.String())
}

func completionHTML(c *Completion) template.HTML {
	var b strings.Builder
	b.WriteString(`<div class="completion"><h3>`)
	b.WriteString(template.HTMLEscapeString(completionTitle))
	b.WriteString(`</h3><dl>`)
	for _, row := range c.Rows() {
		b.WriteString("<dt>")
		b.WriteString(template.HTMLEscapeString(row[0]))
		b.WriteString("</dt><dd>")
		b.WriteString(template.HTMLEscapeString(row[1]))
		b.WriteString("</dd>")
	}
	b.WriteString("</dl></div>")
	return template.HTML(b.String())
}
