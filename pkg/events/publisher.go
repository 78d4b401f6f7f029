package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const publisherLogPrefix = "events:publisher"

// EventPublisher publishes session events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *SessionEvent) error
}

// NoOpPublisher discards events.
type NoOpPublisher struct{}

// PublishEvent is a no-op.
func (p *NoOpPublisher) PublishEvent(_ context.Context, _ *SessionEvent) error {
	return nil
}

// CallbackPublisher hands each event to a callback (tests, in-process consumers).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *SessionEvent) error
}

// NewCallbackPublisher creates a CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *SessionEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishEvent calls the callback.
func (p *CallbackPublisher) PublishEvent(ctx context.Context, event *SessionEvent) error {
	return p.callback(ctx, event)
}

// LogPublisher writes each event to the default logger at debug level.
type LogPublisher struct{}

// PublishEvent logs the event.
func (p *LogPublisher) PublishEvent(_ context.Context, event *SessionEvent) error {
	slog.Debug(fmt.Sprintf("%s - session event kind=%s code=%d chain=%s network=%s accounts=%d",
		publisherLogPrefix, event.Kind, event.Code, event.ChainID, event.NetworkID, len(event.Accounts)))
	return nil
}

// MultiPublisher fans each event out to every publisher, in order.
type MultiPublisher struct {
	publishers []EventPublisher
}

// NewMultiPublisher creates a MultiPublisher. Nil publishers are skipped.
func NewMultiPublisher(pubs ...EventPublisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range pubs {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// PublishEvent publishes to all publishers even when some fail and joins the errors.
func (m *MultiPublisher) PublishEvent(ctx context.Context, event *SessionEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
