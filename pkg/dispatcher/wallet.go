package dispatcher

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/morezero/frame-bridge/pkg/wire"
)

// WalletParams is the static state of a development wallet.
type WalletParams struct {
	ChainID   string
	NetworkID string
	Accounts  []string
}

// Wallet answers the account and chain queries of a frame.
type Wallet struct {
	mu     sync.RWMutex
	params WalletParams
}

// NewWallet creates a Wallet and registers its methods on d.
func NewWallet(d *Dispatcher, p WalletParams) *Wallet {
	w := &Wallet{params: p}
	d.Handle(wire.MethodChainID, w.chainID)
	d.Handle(wire.MethodNetVersion, w.netVersion)
	d.Handle(wire.MethodAccounts, w.accounts)
	d.Handle(wire.MethodRequestAccounts, w.accounts)
	return w
}

// SetAccounts replaces the account list and returns the new one.
func (w *Wallet) SetAccounts(accounts []string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.params.Accounts = cloneAccounts(accounts)
	return cloneAccounts(w.params.Accounts)
}

// SetChain switches chain and network.
func (w *Wallet) SetChain(chainID, networkID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.params.ChainID = chainID
	w.params.NetworkID = networkID
}

func (w *Wallet) chainID(context.Context, json.RawMessage) (any, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.params.ChainID, nil
}

func (w *Wallet) netVersion(context.Context, json.RawMessage) (any, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.params.NetworkID, nil
}

func (w *Wallet) accounts(context.Context, json.RawMessage) (any, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneAccounts(w.params.Accounts), nil
}

func cloneAccounts(accounts []string) []string {
	out := make([]string, len(accounts))
	copy(out, accounts)
	return out
}
