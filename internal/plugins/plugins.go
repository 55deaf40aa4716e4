// Package plugins is the static configuration table for the currency plugins
// the wallet ships with: which CAIP-2 chain each plugin speaks, and which
// signing methods a chain family supports over WalletConnect. Adding a chain
// family is a data entry here, not a code branch elsewhere.
package plugins

import (
	"edgewallet.io/wallet-broker/pkg/caip"
)

// Family declares the fixed WalletConnect method and event lists of one chain
// family, keyed by its CAIP-2 namespace.
type Family struct {
	Namespace string
	Methods   []string
	Events    []string
}

var families = map[string]*Family{
	"eip155": {
		Namespace: "eip155",
		Methods: []string{
			"personal_sign",
			"eth_sign",
			"eth_signTypedData",
			"eth_signTypedData_v4",
			"eth_sendTransaction",
			"eth_signTransaction",
			"eth_sendRawTransaction",
		},
		Events: []string{"chainChanged", "accountsChanged"},
	},
	"algorand": {
		Namespace: "algorand",
		Methods:   []string{"algo_signTxn"},
		Events:    []string{"chainChanged", "accountsChanged"},
	},
}

// FamilyOf returns the chain family for a CAIP-2 namespace.
func FamilyOf(namespace string) (*Family, bool) {
	f, ok := families[namespace]
	return f, ok
}

// SupportsMethod reports whether the family declares the given method.
func (f *Family) SupportsMethod(method string) bool {
	for _, m := range f.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// chainIDs maps a plugin id to the single chain it declares. Plugins without
// an entry do not participate in WalletConnect.
var chainIDs = map[string]caip.ChainID{
	"ethereum": {
		Namespace: "eip155",
		Reference: "1",
	},
	"ethereumclassic": {
		Namespace: "eip155",
		Reference: "61",
	},
	"optimism": {
		Namespace: "eip155",
		Reference: "10",
	},
	"zksync": {
		Namespace: "eip155",
		Reference: "324",
	},
	"binancesmartchain": {
		Namespace: "eip155",
		Reference: "56",
	},
	"polygon": {
		Namespace: "eip155",
		Reference: "137",
	},
	"avalanche": {
		Namespace: "eip155",
		Reference: "43114",
	},
	"fantom": {
		Namespace: "eip155",
		Reference: "250",
	},
	"rsk": {
		Namespace: "eip155",
		Reference: "30",
	},
	"celo": {
		Namespace: "eip155",
		Reference: "42220",
	},
	"algorand": {
		Namespace: "algorand",
		Reference: "wGHE2Pwdvd7S12BL5FaOP20EGYesN73k",
	},
}

// ChainIDOf returns the CAIP-2 chain id declared by a plugin, if any.
func ChainIDOf(pluginID string) (caip.ChainID, bool) {
	id, ok := chainIDs[pluginID]
	return id, ok
}
