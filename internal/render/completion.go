// ABOUTME: Detection of structured completion summaries in assistant replies
// ABOUTME: Anything that is not a completion object is treated as plain text

package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Missing is shown for completion fields the model left out.
const Missing = "N/A"

// Completion is the end-of-ideation summary a model may reply with.
type Completion struct {
	Motto            string
	ProblemStatement string
	TargetUsers      string
	ICP              string
	ValueProp        string
	Alternatives     string
}

type completionEnvelope struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
}

// ParseCompletion reports whether text is a completion object and, if so,
// returns its fields. Absent or null fields become Missing.
func ParseCompletion(text string) (*Completion, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var env completionEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, false
	}
	if env.Type != "completion" {
		return nil, false
	}

	field := func(key string) string {
		v, ok := env.Content[key]
		if !ok || v == nil {
			return Missing
		}
		switch t := v.(type) {
		case string:
			return t
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, fmt.Sprint(p))
			}
			return strings.Join(parts, ", ")
		default:
			return fmt.Sprint(t)
		}
	}

	return &Completion{
		Motto:            field("motto"),
		ProblemStatement: field("problem_statement"),
		TargetUsers:      field("target_users"),
		ICP:              field("ICP"),
		ValueProp:        field("value_prop"),
		Alternatives:     field("alternatives"),
	}, true
}

// Rows returns the labelled fields in display order.
func (c *Completion) Rows() [][2]string {
	return [][2]string{
		{"Motto", c.Motto},
		{"Problem", c.ProblemStatement},
		{"Target Users", c.TargetUsers},
		{"ICP", c.ICP},
		{"Value Prop", c.ValueProp},
		{"Alternatives", c.Alternatives},
	}
}
