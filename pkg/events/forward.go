package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const forwardLogPrefix = "events:forward"

const publishTimeout = 5 * time.Second

// SessionSource is the subscription surface of a bridge engine. Each On
// method returns a func that unsubscribes.
type SessionSource interface {
	OnConnect(fn func()) func()
	OnClose(fn func(code int, reason string)) func()
	OnNotification(fn func(payload json.RawMessage)) func()
	OnChainChanged(fn func(chainID string)) func()
	OnNetworkChanged(fn func(networkID string)) func()
	OnAccountsChanged(fn func(accounts []string)) func()
}

// Forward republishes every session event of source through pub until the
// returned func is called. Publish failures are logged.
func Forward(source SessionSource, pub EventPublisher) func() {
	publish := func(event *SessionEvent) {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := pub.PublishEvent(ctx, event); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish %s event: %v", forwardLogPrefix, event.Kind, err))
		}
	}

	offs := []func(){
		source.OnConnect(func() {
			publish(&SessionEvent{Kind: KindConnect})
		}),
		source.OnClose(func(code int, reason string) {
			publish(&SessionEvent{Kind: KindClose, Code: code, Reason: reason})
		}),
		source.OnNotification(func(payload json.RawMessage) {
			publish(&SessionEvent{Kind: KindNotification, Payload: payload})
		}),
		source.OnChainChanged(func(chainID string) {
			publish(&SessionEvent{Kind: KindChainChanged, ChainID: chainID})
		}),
		source.OnNetworkChanged(func(networkID string) {
			publish(&SessionEvent{Kind: KindNetworkChanged, NetworkID: networkID})
		}),
		source.OnAccountsChanged(func(accounts []string) {
			publish(&SessionEvent{Kind: KindAccountsChanged, Accounts: accounts})
		}),
	}

	return func() {
		for _, off := range offs {
			off()
		}
	}
}
