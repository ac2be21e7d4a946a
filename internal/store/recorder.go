// ABOUTME: Adapts a Ledger to ideation.Observer so clients record attempts
// ABOUTME: Ledger failures are logged and never reach the caller

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/ideation-gateway/internal/ideation"
)

// recordTimeout bounds a single ledger write.
const recordTimeout = 2 * time.Second

// Recorder writes every observed attempt to a Ledger.
type Recorder struct {
	ledger Ledger
	logger *slog.Logger
}

// NewRecorder creates a Recorder for ledger.
func NewRecorder(ledger Ledger, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		ledger: ledger,
		logger: logger.With("component", "ledger"),
	}
}

// ObserveAttempt implements ideation.Observer.
func (r *Recorder) ObserveAttempt(a ideation.Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	rec := &AttemptRecord{
		SessionID:  a.SessionID,
		Provider:   string(a.Provider),
		Model:      a.Model,
		Outcome:    string(a.Outcome),
		DurationMS: a.Duration.Milliseconds(),
		CreatedAt:  a.At,
	}
	if err := r.ledger.SaveAttempt(ctx, rec); err != nil {
		r.logger.Warn("failed to record provider attempt",
			"error", err,
			"session_id", a.SessionID,
			"provider", a.Provider,
		)
	}
}

var _ ideation.Observer = (*Recorder)(nil)
