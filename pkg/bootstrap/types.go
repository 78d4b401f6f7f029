// Package bootstrap loads the wallet fixture the development host starts from.
package bootstrap

import (
	"context"
	"encoding/json"

	"github.com/morezero/frame-bridge/pkg/dispatcher"
	"github.com/morezero/frame-bridge/pkg/wire"
)

// MethodFixture is a canned answer for one method: a result or an error.
type MethodFixture struct {
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *wire.ErrorObject `json:"error,omitempty"`
}

// Handler returns a dispatcher handler that always gives this answer.
func (m MethodFixture) Handler() dispatcher.HandlerFunc {
	return func(context.Context, json.RawMessage) (any, error) {
		if m.Error != nil {
			errObj := *m.Error
			return nil, &errObj
		}
		if len(m.Result) == 0 {
			return nil, nil
		}
		return m.Result, nil
	}
}

// HostFixture is the wallet state the development host exposes.
type HostFixture struct {
	Name      string                   `json:"name,omitempty"`
	Version   string                   `json:"version,omitempty"`
	ChainID   string                   `json:"chainId,omitempty"`
	NetworkID string                   `json:"networkId,omitempty"`
	Accounts  []string                 `json:"accounts,omitempty"`
	Methods   map[string]MethodFixture `json:"methods,omitempty"`
}

// WalletParams converts the fixture into the dispatcher's wallet parameters.
func (f *HostFixture) WalletParams() dispatcher.WalletParams {
	return dispatcher.WalletParams{
		ChainID:   f.ChainID,
		NetworkID: f.NetworkID,
		Accounts:  append([]string(nil), f.Accounts...),
	}
}

// Install registers the wallet methods and then the canned methods on d.
// A canned method replaces a wallet method of the same name.
func (f *HostFixture) Install(d *dispatcher.Dispatcher) *dispatcher.Wallet {
	w := dispatcher.NewWallet(d, f.WalletParams())
	for method, m := range f.Methods {
		d.Handle(method, m.Handler())
	}
	return w
}
