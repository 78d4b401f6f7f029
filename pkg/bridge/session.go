package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/morezero/frame-bridge/pkg/wire"
)

const sessionLogPrefix = "bridge:session"

// SessionState is the observable connection state of the bridge.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// State returns the current session state.
func (e *Engine) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// HostVersion returns the version advertised by the last accepted connect, if any.
func (e *Engine) HostVersion() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hostVersion
}

// Enabled reports whether an accounts request has succeeded.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Accounts returns the most recent accounts list known to the bridge.
func (e *Engine) Accounts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAccounts(e.accounts)
}

// Enable asks the host for account access. Once a request has succeeded,
// later calls return the most recent accounts without sending anything.
// Concurrent callers share a single in-flight request.
func (e *Engine) Enable(ctx context.Context) ([]string, error) {
	if accounts, ok := e.enabledAccounts(); ok {
		return accounts, nil
	}

	c, err := e.enableCall(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		accounts, _ := e.enabledAccounts()
		return accounts, nil
	}

	res, err := c.Wait(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabling == c && err == nil {
		e.enabling = nil
	}
	if err != nil {
		return nil, err
	}

	var accounts []string
	if err := json.Unmarshal(res, &accounts); err != nil {
		return nil, fmt.Errorf("%s - failed to decode %s result: %w", sessionLogPrefix, wire.MethodRequestAccounts, err)
	}
	if !e.enabled {
		e.enabled = true
		e.accounts = accounts
		slog.Info(fmt.Sprintf("%s - Enabled with %d accounts", sessionLogPrefix, len(accounts)))
	}
	return cloneAccounts(e.accounts), nil
}

// RequestAccounts is an alias of Enable.
func (e *Engine) RequestAccounts(ctx context.Context) ([]string, error) {
	return e.Enable(ctx)
}

func (e *Engine) enabledAccounts() ([]string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return nil, false
	}
	return cloneAccounts(e.accounts), true
}

// enableCall returns the in-flight accounts request, starting one if needed.
// It returns nil when the session became enabled in the meantime.
func (e *Engine) enableCall(ctx context.Context) (*Call, error) {
	e.enableMu.Lock()
	defer e.enableMu.Unlock()

	e.mu.Lock()
	if e.enabled {
		e.mu.Unlock()
		return nil, nil
	}
	if c := e.enabling; c != nil {
		// A failed request is retried; a pending or successful one is shared.
		if o, done := c.handle.Settled(); !done || o.Err == nil {
			e.mu.Unlock()
			return c, nil
		}
	}
	e.mu.Unlock()

	c, err := e.Call(ctx, wire.MethodRequestAccounts, []any{})
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.enabling = c
	e.mu.Unlock()
	return c, nil
}

// markConnectedByCall moves a disconnected session to connected. A closed
// session needs a new connect notification.
func (e *Engine) markConnectedByCall() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDisconnected {
		e.state = StateConnected
	}
}

// cloneAccounts copies an accounts list. The copy is never nil, so an empty
// list stays an empty JSON array.
func cloneAccounts(accounts []string) []string {
	out := make([]string, len(accounts))
	copy(out, accounts)
	return out
}
