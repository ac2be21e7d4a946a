// Package render turns assistant replies into something a front end can show.
//
// Replies are opaque text. Some prompts make the model finish with a JSON
// summary of the form
//
//	{"type":"completion","content":{"motto":..., "problem_statement":..., ...}}
//
// ParseCompletion detects that shape. Terminal front ends draw it as a card
// with lipgloss and render everything else as markdown through glamour. The
// HTTP transcript view converts markdown to HTML with goldmark.
package render
