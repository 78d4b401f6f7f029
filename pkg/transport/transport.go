// Package transport defines the message channel the bridge runs over.
//
// A Source delivers inbound messages together with the origin that sent them;
// a Target posts outbound payloads toward a single target origin. Neither
// acknowledges delivery.
package transport

import "errors"

// AnyOrigin disables origin checks when used as a target or filter.
const AnyOrigin = "*"

// ErrClosed is returned when sending on a closed endpoint.
var ErrClosed = errors.New("transport closed")

// Message is one inbound message event.
type Message struct {
	Origin string
	Data   []byte
}

// Handler receives inbound messages.
type Handler func(Message)

// Subscription is returned by Source.Subscribe.
type Subscription interface {
	Unsubscribe() error
}

// Source is the subscribe-to-incoming-messages primitive.
type Source interface {
	Subscribe(h Handler) (Subscription, error)
}

// Target is the send primitive.
type Target interface {
	Send(data []byte, targetOrigin string) error
}

// OriginMatches reports whether origin passes a filter of expected.
// An empty or "*" filter accepts everything.
func OriginMatches(expected, origin string) bool {
	return expected == "" || expected == AnyOrigin || expected == origin
}
