package commsutil

import (
	"errors"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/frame-bridge/pkg/transport"
)

const transportLogPrefix = "commsutil:transport"

// Headers carried on every bridge message.
const (
	HeaderOrigin       = "Bridge-Origin"
	HeaderTargetOrigin = "Bridge-Target-Origin"
)

// TransportParams configures a Transport.
type TransportParams struct {
	Conn *comms.Conn
	// LocalOrigin is stamped on outbound messages and compared with the
	// target origin of inbound ones.
	LocalOrigin      string
	PublishSubject   string
	SubscribeSubject string
}

// Transport carries bridge envelopes over COMMS. It is both a
// transport.Source and a transport.Target.
type Transport struct {
	nc               *comms.Conn
	localOrigin      string
	publishSubject   string
	subscribeSubject string
}

// NewTransport creates a Transport.
func NewTransport(p TransportParams) (*Transport, error) {
	if p.Conn == nil {
		return nil, errors.New("commsutil:transport - connection is required")
	}
	if p.PublishSubject == "" || p.SubscribeSubject == "" {
		return nil, errors.New("commsutil:transport - publish and subscribe subjects are required")
	}
	return &Transport{
		nc:               p.Conn,
		localOrigin:      p.LocalOrigin,
		publishSubject:   p.PublishSubject,
		subscribeSubject: p.SubscribeSubject,
	}, nil
}

// Origin returns the local origin.
func (t *Transport) Origin() string { return t.localOrigin }

// Send publishes data addressed to targetOrigin.
func (t *Transport) Send(data []byte, targetOrigin string) error {
	msg := comms.NewMsg(t.publishSubject)
	msg.Header.Set(HeaderOrigin, t.localOrigin)
	if targetOrigin != "" {
		msg.Header.Set(HeaderTargetOrigin, targetOrigin)
	}
	msg.Data = data
	if err := t.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("%s - failed to publish to %s: %w", transportLogPrefix, t.publishSubject, err)
	}
	return nil
}

// Subscribe delivers inbound messages to h. Messages addressed to another
// origin are dropped here.
func (t *Transport) Subscribe(h transport.Handler) (transport.Subscription, error) {
	sub, err := t.nc.Subscribe(t.subscribeSubject, func(m *comms.Msg) {
		target := m.Header.Get(HeaderTargetOrigin)
		if !transport.OriginMatches(target, t.localOrigin) {
			slog.Debug(fmt.Sprintf("%s - dropping message for %s on %s", transportLogPrefix, target, m.Subject))
			return
		}
		h(transport.Message{Origin: m.Header.Get(HeaderOrigin), Data: m.Data})
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", transportLogPrefix, t.subscribeSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Listening on %s as %s", transportLogPrefix, t.subscribeSubject, t.localOrigin))
	return sub, nil
}
