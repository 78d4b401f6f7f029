package bridge

import (
	"encoding/json"
	"testing"
)

const notifyTestPrefix = "bridge:notify_test"

func TestNotify_AccountsChanged(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	var got [][]string
	e.OnAccountsChanged(func(accounts []string) { got = append(got, accounts) })

	deliver(e, `{"jsonrpc":"2.0","method":"accountsChanged","params":[["0xabc"]]}`)

	if len(got) != 1 {
		t.Fatalf("%s - listener fired %d times, want 1", notifyTestPrefix, len(got))
	}
	if len(got[0]) != 1 || got[0][0] != "0xabc" {
		t.Errorf("%s - accounts = %v", notifyTestPrefix, got[0])
	}
	if accounts := e.Accounts(); len(accounts) != 1 || accounts[0] != "0xabc" {
		t.Errorf("%s - cached accounts = %v", notifyTestPrefix, accounts)
	}
	if e.Pending() != 0 {
		t.Errorf("%s - notification touched pending calls", notifyTestPrefix)
	}
}

func TestNotify_AccountsChangedEmpty(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	var got []string
	fired := false
	e.OnAccountsChanged(func(accounts []string) { got, fired = accounts, true })

	deliver(e, `{"method":"accountsChanged","params":[[]]}`)
	if !fired || got == nil || len(got) != 0 {
		t.Errorf("%s - got (%v, fired=%v), want empty non-nil list", notifyTestPrefix, got, fired)
	}
}

func TestNotify_ChainAndNetworkChanged(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	var chains, networks []string
	e.OnChainChanged(func(id string) { chains = append(chains, id) })
	e.OnNetworkChanged(func(id string) { networks = append(networks, id) })

	deliver(e, `{"method":"chainChanged","params":["0x5"]}`)
	deliver(e, `{"method":"chainChanged","params":[137]}`)
	deliver(e, `{"method":"networkChanged","params":["5"]}`)

	if len(chains) != 2 || chains[0] != "0x5" || chains[1] != "137" {
		t.Errorf("%s - chains = %v", notifyTestPrefix, chains)
	}
	if len(networks) != 1 || networks[0] != "5" {
		t.Errorf("%s - networks = %v", notifyTestPrefix, networks)
	}
}

func TestNotify_Close(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	var code int
	var reason string
	e.OnClose(func(c int, r string) { code, reason = c, r })

	deliver(e, `{"method":"close","params":[4900,"Disconnected"]}`)
	if code != 4900 || reason != "Disconnected" {
		t.Errorf("%s - close = (%d, %q)", notifyTestPrefix, code, reason)
	}
}

func TestNotify_ForwardsNotificationPayload(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	var payload json.RawMessage
	e.OnNotification(func(p json.RawMessage) { payload = p })

	deliver(e, `{"method":"notification","params":{"subscription":"0x9","result":{"number":"0x10"}}}`)
	if string(payload) != `{"subscription":"0x9","result":{"number":"0x10"}}` {
		t.Errorf("%s - payload = %s", notifyTestPrefix, payload)
	}
}

func TestNotify_ConnectRecordsHostVersion(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	connected := 0
	e.OnConnect(func() { connected++ })

	deliver(e, `{"method":"connect","params":[{"version":"1.4.0"}]}`)
	if connected != 1 {
		t.Fatalf("%s - connect fired %d times", notifyTestPrefix, connected)
	}
	if e.HostVersion() != "1.4.0" {
		t.Errorf("%s - HostVersion = %q", notifyTestPrefix, e.HostVersion())
	}
}

func TestNotify_HostVersionGate(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		params     string
		wantEvent  bool
	}{
		{"in range", "^1.2.0", `[{"version":"1.3.0"}]`, true},
		{"major only", "1", `[{"version":"1.9.9"}]`, true},
		{"out of range", "^1.2.0", `[{"version":"2.0.0"}]`, false},
		{"unparseable version", "^1.2.0", `[{"version":"banana"}]`, false},
		{"no version advertised", "^1.2.0", `[]`, true},
		{"no constraint", "", `[{"version":"9.0.0"}]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, Options{HostVersionConstraint: tt.constraint})
			fired := false
			e.OnConnect(func() { fired = true })

			deliver(e, `{"method":"connect","params":`+tt.params+`}`)
			if fired != tt.wantEvent {
				t.Errorf("%s - connect fired = %v, want %v", notifyTestPrefix, fired, tt.wantEvent)
			}
			wantState := StateDisconnected
			if tt.wantEvent {
				wantState = StateConnected
			}
			if e.State() != wantState {
				t.Errorf("%s - state = %s, want %s", notifyTestPrefix, e.State(), wantState)
			}
		})
	}
}

func TestListeners_UnsubscribeAndPanics(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	calls := 0
	e.OnChainChanged(func(string) { panic("listener bug") })
	off := e.OnChainChanged(func(string) { calls++ })
	if e.ListenerCount(EventChainChanged) != 2 {
		t.Fatalf("%s - ListenerCount = %d, want 2", notifyTestPrefix, e.ListenerCount(EventChainChanged))
	}

	deliver(e, `{"method":"chainChanged","params":["0x1"]}`)
	if calls != 1 {
		t.Fatalf("%s - healthy listener ran %d times after a panic, want 1", notifyTestPrefix, calls)
	}

	off()
	off()
	deliver(e, `{"method":"chainChanged","params":["0x2"]}`)
	if calls != 1 {
		t.Errorf("%s - unsubscribed listener still ran", notifyTestPrefix)
	}
	if e.ListenerCount(EventChainChanged) != 1 {
		t.Errorf("%s - ListenerCount = %d, want 1", notifyTestPrefix, e.ListenerCount(EventChainChanged))
	}
}

func TestEventKind_String(t *testing.T) {
	if EventAccountsChanged.String() != "accountsChanged" {
		t.Errorf("%s - EventAccountsChanged.String() = %q", notifyTestPrefix, EventAccountsChanged.String())
	}
}
