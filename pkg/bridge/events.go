package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

const eventsLogPrefix = "bridge:events"

// EventKind is the closed set of session events.
type EventKind int

const (
	EventConnect EventKind = iota
	EventClose
	EventNotification
	EventChainChanged
	EventNetworkChanged
	EventAccountsChanged
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventClose:
		return "close"
	case EventNotification:
		return "notification"
	case EventChainChanged:
		return "chainChanged"
	case EventNetworkChanged:
		return "networkChanged"
	case EventAccountsChanged:
		return "accountsChanged"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// listenerList is an ordered, unsubscribable list of callbacks of one shape.
type listenerList[F any] struct {
	mu    sync.Mutex
	next  uint64
	items []listener[F]
}

type listener[F any] struct {
	id uint64
	fn F
}

func (l *listenerList[F]) add(fn F) func() {
	l.mu.Lock()
	id := l.next
	l.next++
	l.items = append(l.items, listener[F]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, it := range l.items {
				if it.id == id {
					l.items = append(l.items[:i:i], l.items[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *listenerList[F]) snapshot() []F {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]F, len(l.items))
	for i, it := range l.items {
		out[i] = it.fn
	}
	return out
}

func (l *listenerList[F]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// listeners holds one subscriber list per EventKind.
type listeners struct {
	connect         listenerList[func()]
	close           listenerList[func(code int, reason string)]
	notification    listenerList[func(payload json.RawMessage)]
	chainChanged    listenerList[func(chainID string)]
	networkChanged  listenerList[func(networkID string)]
	accountsChanged listenerList[func(accounts []string)]
}

// OnConnect subscribes to connect events. The returned func unsubscribes.
func (e *Engine) OnConnect(fn func()) func() {
	return e.listeners.connect.add(fn)
}

// OnClose subscribes to close events.
func (e *Engine) OnClose(fn func(code int, reason string)) func() {
	return e.listeners.close.add(fn)
}

// OnNotification subscribes to generic notifications; the payload is forwarded as received.
func (e *Engine) OnNotification(fn func(payload json.RawMessage)) func() {
	return e.listeners.notification.add(fn)
}

// OnChainChanged subscribes to chain changes.
func (e *Engine) OnChainChanged(fn func(chainID string)) func() {
	return e.listeners.chainChanged.add(fn)
}

// OnNetworkChanged subscribes to network changes.
func (e *Engine) OnNetworkChanged(fn func(networkID string)) func() {
	return e.listeners.networkChanged.add(fn)
}

// OnAccountsChanged subscribes to account list changes.
func (e *Engine) OnAccountsChanged(fn func(accounts []string)) func() {
	return e.listeners.accountsChanged.add(fn)
}

// ListenerCount returns the number of subscribers for kind.
func (e *Engine) ListenerCount(kind EventKind) int {
	switch kind {
	case EventConnect:
		return e.listeners.connect.len()
	case EventClose:
		return e.listeners.close.len()
	case EventNotification:
		return e.listeners.notification.len()
	case EventChainChanged:
		return e.listeners.chainChanged.len()
	case EventNetworkChanged:
		return e.listeners.networkChanged.len()
	case EventAccountsChanged:
		return e.listeners.accountsChanged.len()
	default:
		return 0
	}
}

// emit runs fn for each listener; a panicking listener is logged and skipped.
func emit[F any](kind EventKind, l *listenerList[F], call func(F)) {
	for _, fn := range l.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error(fmt.Sprintf("%s - %s listener panicked: %v", eventsLogPrefix, kind, r))
				}
			}()
			call(fn)
		}()
	}
}
