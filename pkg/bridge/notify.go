package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/morezero/frame-bridge/pkg/wire"
)

const notifyLogPrefix = "bridge:notify"

// dispatchNotification normalizes a recognized notification and emits it.
// Params that do not fit the kind's shape drop the notification.
func (e *Engine) dispatchNotification(in *wire.Inbound) {
	switch in.Method {
	case wire.MethodConnect:
		e.handleConnect(in.Params)

	case wire.MethodClose:
		code, reason, ok := closeParams(in.Params)
		if !ok {
			e.dropNotification(in)
			return
		}
		e.mu.Lock()
		e.state = StateClosed
		e.mu.Unlock()
		slog.Info(fmt.Sprintf("%s - Session closed code=%d reason=%q", notifyLogPrefix, code, reason))
		emit(EventClose, &e.listeners.close, func(fn func(int, string)) { fn(code, reason) })

	case wire.MethodNotification:
		payload := in.Params
		emit(EventNotification, &e.listeners.notification, func(fn func(json.RawMessage)) { fn(payload) })

	case wire.MethodChainChanged:
		chainID, ok := scalarParam(in.Params)
		if !ok {
			e.dropNotification(in)
			return
		}
		emit(EventChainChanged, &e.listeners.chainChanged, func(fn func(string)) { fn(chainID) })

	case wire.MethodNetworkChanged:
		networkID, ok := scalarParam(in.Params)
		if !ok {
			e.dropNotification(in)
			return
		}
		emit(EventNetworkChanged, &e.listeners.networkChanged, func(fn func(string)) { fn(networkID) })

	case wire.MethodAccountsChanged:
		accounts, ok := accountsParam(in.Params)
		if !ok {
			e.dropNotification(in)
			return
		}
		e.mu.Lock()
		e.accounts = accounts
		e.mu.Unlock()
		emit(EventAccountsChanged, &e.listeners.accountsChanged, func(fn func([]string)) {
			fn(cloneAccounts(accounts))
		})
	}
}

func (e *Engine) handleConnect(params json.RawMessage) {
	version := connectVersion(params)
	if version != "" && e.hostRange != nil {
		ok, err := e.hostRange.Allows(version)
		if err != nil || !ok {
			slog.Warn(fmt.Sprintf("%s - ignoring connect from host version %q (want %s): %v", notifyLogPrefix, version, e.hostRange, err))
			return
		}
	}

	e.mu.Lock()
	e.state = StateConnected
	if version != "" {
		e.hostVersion = version
	}
	e.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - Session connected host_version=%q", notifyLogPrefix, version))
	emit(EventConnect, &e.listeners.connect, func(fn func()) { fn() })
}

func (e *Engine) dropNotification(in *wire.Inbound) {
	slog.Debug(fmt.Sprintf("%s - dropping %s with unexpected params %s", notifyLogPrefix, in.Method, in.Params))
}

// paramsArray splits params into positional elements. A non-array is treated
// as a single positional element.
func paramsArray(params json.RawMessage) []json.RawMessage {
	params = bytes.TrimSpace(params)
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if params[0] != '[' {
		return []json.RawMessage{params}
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(params, &arr); err != nil {
		return nil
	}
	return arr
}

// closeParams reads [code, reason]; either may be absent.
func closeParams(params json.RawMessage) (code int, reason string, ok bool) {
	arr := paramsArray(params)
	if len(arr) > 0 {
		if err := json.Unmarshal(arr[0], &code); err != nil {
			return 0, "", false
		}
	}
	if len(arr) > 1 {
		if err := json.Unmarshal(arr[1], &reason); err != nil {
			return 0, "", false
		}
	}
	return code, reason, true
}

// scalarParam reads params[0] as a string; numbers keep their JSON text.
func scalarParam(params json.RawMessage) (string, bool) {
	arr := paramsArray(params)
	if len(arr) == 0 {
		return "", false
	}
	first := bytes.TrimSpace(arr[0])
	if len(first) == 0 {
		return "", false
	}
	switch first[0] {
	case '"':
		var s string
		if err := json.Unmarshal(first, &s); err != nil {
			return "", false
		}
		return s, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(first, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}

// accountsParam reads params[0] as a list of account strings.
func accountsParam(params json.RawMessage) ([]string, bool) {
	arr := paramsArray(params)
	if len(arr) == 0 {
		return nil, false
	}
	var accounts []string
	if err := json.Unmarshal(arr[0], &accounts); err != nil {
		return nil, false
	}
	if accounts == nil {
		accounts = []string{}
	}
	return accounts, true
}

// connectVersion reads an optional {"version": "..."} from params[0].
func connectVersion(params json.RawMessage) string {
	arr := paramsArray(params)
	if len(arr) == 0 {
		return ""
	}
	var info struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(arr[0], &info); err != nil {
		return ""
	}
	return info.Version
}
