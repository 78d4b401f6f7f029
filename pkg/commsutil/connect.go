// Package commsutil carries bridge envelopes over COMMS subjects.
package commsutil

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"
)

const logPrefix = "commsutil:connect"

const (
	defaultDialTimeout   = 10 * time.Second
	defaultReconnectWait = 2 * time.Second
	defaultMaxReconnects = 60
)

// ConnectParams configures a COMMS connection.
type ConnectParams struct {
	URL  string
	Name string
	// DialTimeout bounds the initial connect. Zero means 10s.
	DialTimeout time.Duration
	// MaxReconnects is the reconnect budget. Zero means 60, negative retries forever.
	MaxReconnects int
	// OnStatus, when set, is called with false on disconnect and true on reconnect.
	OnStatus func(connected bool)
}

func (p ConnectParams) options() []comms.Option {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	maxReconnects := p.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = defaultMaxReconnects
	}
	status := p.OnStatus
	if status == nil {
		status = func(bool) {}
	}

	return []comms.Option{
		comms.Name(p.Name),
		comms.Timeout(timeout),
		comms.ReconnectWait(defaultReconnectWait),
		comms.MaxReconnects(maxReconnects),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS disconnected name=%s: %v", logPrefix, p.Name, err))
			status(false)
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected name=%s url=%s", logPrefix, p.Name, nc.ConnectedUrl()))
			status(true)
		}),
		comms.ClosedHandler(func(*comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS connection closed name=%s", logPrefix, p.Name))
		}),
	}
}

// Connect dials url with the default reconnect policy.
func Connect(url, name string) (*comms.Conn, error) {
	return ConnectWith(ConnectParams{URL: url, Name: name})
}

// ConnectWith dials a COMMS server.
func ConnectWith(p ConnectParams) (*comms.Conn, error) {
	if p.URL == "" {
		return nil, errors.New("commsutil:connect - URL is required")
	}
	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", logPrefix, p.URL, p.Name))

	nc, err := comms.Connect(p.URL, p.options()...)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}
