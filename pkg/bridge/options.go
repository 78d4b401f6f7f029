package bridge

import (
	"time"

	"github.com/morezero/frame-bridge/pkg/journal"
	"github.com/morezero/frame-bridge/pkg/metrics"
	"github.com/morezero/frame-bridge/pkg/transport"
)

// DefaultTimeout is the per-call timeout when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Options configures an Engine.
type Options struct {
	// TargetOrigin restricts both where calls are sent and which inbound
	// origins are accepted. Empty or "*" accepts any origin.
	TargetOrigin string

	// Timeout applies uniformly to every call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Source delivers inbound messages. When nil, the owner feeds
	// HandleMessage directly.
	Source transport.Source

	// Target sends outbound envelopes. Required.
	Target transport.Target

	// Journal records every settled call. Nil disables journaling.
	Journal journal.Journal

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// HostVersionConstraint, if set, is a semver range a connect
	// notification's advertised version must satisfy.
	HostVersionConstraint string
}

func (o Options) targetOrigin() string {
	if o.TargetOrigin == "" {
		return transport.AnyOrigin
	}
	return o.TargetOrigin
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}
