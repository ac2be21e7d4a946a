// ABOUTME: Attempt reporting hooks used by metrics and the call ledger
// ABOUTME: Observers are informational only and cannot influence a turn

package ideation

import (
	"time"

	"github.com/2389/ideation-gateway/internal/provider"
)

// Outcome classifies a single provider attempt.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeAbsent  Outcome = "absent"
	OutcomeSkipped Outcome = "skipped"
)

// Attempt describes one adapter considered during a turn.
type Attempt struct {
	SessionID string
	Provider  provider.Kind
	Model     string
	Outcome   Outcome
	Duration  time.Duration
	At        time.Time
}

// Observer receives every attempt as it completes.
type Observer interface {
	ObserveAttempt(Attempt)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Attempt)

func (f ObserverFunc) ObserveAttempt(a Attempt) { f(a) }

func (c *Client) observe(adapter provider.Adapter, outcome Outcome, elapsed time.Duration) {
	if len(c.observers) == 0 {
		return
	}
	a := Attempt{
		SessionID: c.sessionID,
		Provider:  adapter.Kind(),
		Model:     adapter.Model(),
		Outcome:   outcome,
		Duration:  elapsed,
		At:        time.Now(),
	}
	for _, o := range c.observers {
		o.ObserveAttempt(a)
	}
}
