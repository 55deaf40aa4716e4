// Package wallet defines the broker's view of the wallet accounts that back
// WalletConnect sessions. Key management and signing stay behind this
// interface; the broker only needs addresses and payload decoding.
package wallet

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"edgewallet.io/wallet-broker/pkg/errors"
)

// Intent is the structured, human-reviewable form of an inbound signing
// request, produced by a wallet's payload decoder.
type Intent struct {
	Method    string `json:"method"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Value     string `json:"value,omitempty"`
	Gas       string `json:"gas,omitempty"`
	GasPrice  string `json:"gas_price,omitempty"`
	Data      string `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	TypedData string `json:"typed_data,omitempty"`
}

// Wallet is one local account on one chain.
type Wallet interface {
	ID() string
	PluginID() string
	Name() string
	// ReceiveAddress returns the account's public receive address.
	ReceiveAddress(ctx context.Context) (string, error)
	// ParsePayload turns opaque JSON-RPC params into a reviewable intent.
	ParsePayload(method string, params json.RawMessage) (*Intent, error)
}

// Registry holds the user's wallets by id. Iteration order is ascending
// wallet id so account resolution stays deterministic.
type Registry struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
}

func NewRegistry(wallets ...Wallet) *Registry {
	r := &Registry{wallets: make(map[string]Wallet)}
	for _, w := range wallets {
		r.Add(w)
	}
	return r
}

// Add registers a wallet. The first registration for an id wins.
func (r *Registry) Add(w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.ID()]; ok {
		return errors.Errorf("wallet %v already registered", w.ID())
	}
	r.wallets[w.ID()] = w
	return nil
}

// Remove drops a wallet from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.wallets, id)
}

// Get returns the wallet with the given id.
func (r *Registry) Get(id string) (Wallet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	return w, ok
}

// List returns all wallets sorted by ascending id.
func (r *Registry) List() []Wallet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.wallets))
	for id := range r.wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]Wallet, 0, len(ids))
	for _, id := range ids {
		list = append(list, r.wallets[id])
	}
	return list
}
