package walletconnect

import (
	"context"
	"sort"
	"strings"

	"edgewallet.io/wallet-broker/internal/plugins"
	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/pkg/caip"
	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
)

// SupportedNamespace declares what this wallet offers for one chain family.
type SupportedNamespace struct {
	Chains   []string `json:"chains"`
	Methods  []string `json:"methods"`
	Events   []string `json:"events"`
	Accounts []string `json:"accounts"`
}

// BuildSupportedNamespaces is a pure function of (chain, address): one
// namespace entry keyed by the chain's family, declaring the single chain,
// the family's fixed method and event lists, and the single account key.
func BuildSupportedNamespaces(chain caip.ChainID, address string) (map[string]SupportedNamespace, error) {
	family, ok := plugins.FamilyOf(chain.Namespace)
	if !ok {
		return nil, errors.Errorf("no chain family for namespace %v", chain.Namespace)
	}
	return map[string]SupportedNamespace{
		chain.Namespace: {
			Chains:   []string{chain.String()},
			Methods:  family.Methods,
			Events:   family.Events,
			Accounts: []string{caip.NewAccountID(chain, address).String()},
		},
	}, nil
}

// accountKeys maps every resolvable account key to its wallet id. Wallets are
// scanned in ascending id order and the first registration for a key wins, so
// duplicate-address wallets resolve deterministically. Computed freshly per
// call: the wallet set may have changed since the last one.
func (s *Service) accountKeys(ctx context.Context) map[string]string {
	keys := make(map[string]string)
	for _, w := range s.wallets.List() {
		chain, ok := plugins.ChainIDOf(w.PluginID())
		if !ok {
			continue
		}
		address, err := w.ReceiveAddress(ctx)
		if err != nil {
			log.Errorf("walletConnect receive address for %v: %v", w.ID(), err)
			continue
		}
		key := caip.NewAccountID(chain, address).String()
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = w.ID()
	}
	return keys
}

// UnsupportedMethods returns the required methods of a proposal the given
// supported namespaces cannot satisfy. Empty means satisfiable. Requirements
// keyed by a chain-qualified namespace ("eip155:1") are matched against the
// bare family key; requirements whose chains we do not offer count as
// entirely unsatisfied.
func UnsupportedMethods(proposal *relay.Proposal, supported map[string]SupportedNamespace) []string {
	unsupported := make([]string, 0)

	keys := make([]string, 0, len(proposal.RequiredNamespaces))
	for key := range proposal.RequiredNamespaces {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		requirement := proposal.RequiredNamespaces[key]
		familyKey := key
		implicitChain := ""
		if idx := strings.Index(key, ":"); idx >= 0 {
			familyKey = key[:idx]
			implicitChain = key
		}
		offer, ok := supported[familyKey]
		if !ok || !chainsSatisfied(requirement, implicitChain, offer) {
			unsupported = append(unsupported, requirement.Methods...)
			continue
		}
		for _, method := range requirement.Methods {
			if !contains(offer.Methods, method) {
				unsupported = append(unsupported, method)
			}
		}
	}
	return unsupported
}

// chainsSatisfied checks the requirement's chain list (or the chain encoded
// in the namespace key) against the offered chains. A requirement that names
// no chain at all is satisfied by any chain of the family.
func chainsSatisfied(requirement relay.ProposalNamespace, implicitChain string, offer SupportedNamespace) bool {
	required := requirement.Chains
	if len(required) == 0 && implicitChain != "" {
		required = []string{implicitChain}
	}
	if len(required) == 0 {
		return true
	}
	for _, chain := range required {
		if contains(offer.Chains, chain) {
			return true
		}
	}
	return false
}

// walletIDForSession resolves the local wallet backing a session: namespaces
// scanned in sorted key order, first account key match wins.
func walletIDForSession(session *relay.Session, accounts map[string]string) (string, bool) {
	keys := make([]string, 0, len(session.Namespaces))
	for key := range session.Namespaces {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, account := range session.Namespaces[key].Accounts {
			parsed, err := caip.ParseAccountID(account)
			if err != nil {
				continue
			}
			if walletID, ok := accounts[parsed.String()]; ok {
				return walletID, true
			}
		}
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
