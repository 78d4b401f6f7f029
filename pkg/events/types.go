// Package events republishes bridge session events to observers outside the process.
package events

import "encoding/json"

// Session event kinds.
const (
	KindConnect         = "connect"
	KindClose           = "close"
	KindNotification    = "notification"
	KindChainChanged    = "chainChanged"
	KindNetworkChanged  = "networkChanged"
	KindAccountsChanged = "accountsChanged"
)

// SessionEvent is one session event observed by the bridge.
type SessionEvent struct {
	Kind      string          `json:"kind"`
	Code      int             `json:"code,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	ChainID   string          `json:"chainId,omitempty"`
	NetworkID string          `json:"networkId,omitempty"`
	Accounts  []string        `json:"accounts,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp"`
}
