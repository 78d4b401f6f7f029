// Package journal defines the record of settled bridge calls and sinks for it.
package journal

import (
	"context"
	"time"
)

// Outcome is how a call settled.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeRejected Outcome = "rejected"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeClosed   Outcome = "closed"
)

// Entry is one settled call.
type Entry struct {
	CallID       string    `json:"callId"`
	Method       string    `json:"method"`
	Outcome      Outcome   `json:"outcome"`
	ErrorCode    *int      `json:"errorCode,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	SettledAt    time.Time `json:"settledAt"`
}

// Duration is the time between issue and settlement.
func (e *Entry) Duration() time.Duration {
	return e.SettledAt.Sub(e.StartedAt)
}

// Journal is the interface for recording settled calls.
type Journal interface {
	Record(ctx context.Context, entry *Entry) error
}

// NoOpJournal is a Journal that does nothing (for bridges without persistence).
type NoOpJournal struct{}

// Record is a no-op.
func (j *NoOpJournal) Record(_ context.Context, _ *Entry) error {
	return nil
}

// CallbackJournal is a Journal that calls a callback function (for testing).
type CallbackJournal struct {
	callback func(ctx context.Context, entry *Entry) error
}

// NewCallbackJournal creates a new CallbackJournal.
func NewCallbackJournal(cb func(ctx context.Context, entry *Entry) error) *CallbackJournal {
	return &CallbackJournal{callback: cb}
}

// Record calls the callback.
func (j *CallbackJournal) Record(ctx context.Context, entry *Entry) error {
	return j.callback(ctx, entry)
}
