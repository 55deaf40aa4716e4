package walletconnect

import (
	"context"
	"testing"

	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/pkg/caip"
	"edgewallet.io/wallet-broker/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestBuildSupportedNamespaces(t *testing.T) {
	c := require.New(t)

	chain := caip.ChainID{Namespace: "eip155", Reference: "1"}
	namespaces, err := BuildSupportedNamespaces(chain, "0xAbC")
	c.NoError(err)
	c.Len(namespaces, 1)

	ns, ok := namespaces["eip155"]
	c.True(ok)
	c.Equal([]string{"eip155:1"}, ns.Chains)
	c.Equal([]string{"eip155:1:0xAbC"}, ns.Accounts)
	c.Contains(ns.Methods, "personal_sign")
	c.Contains(ns.Methods, "eth_sendTransaction")
	c.Contains(ns.Events, "accountsChanged")
}

func TestBuildSupportedNamespacesUnknownFamily(t *testing.T) {
	c := require.New(t)

	chain := caip.ChainID{Namespace: "cosmos", Reference: "cosmoshub-4"}
	_, err := BuildSupportedNamespaces(chain, "cosmos1abc")
	c.Error(err)
}

func TestAccountKeysFirstRegistrationWins(t *testing.T) {
	c := require.New(t)

	// two wallets on the same chain and address: ascending id order decides
	s, _, _ := newTestService(&fakeDialer{client: newFakeClient()},
		&fakeWallet{id: "w-2", pluginID: "ethereum", address: "0xAbC"},
		&fakeWallet{id: "w-1", pluginID: "ethereum", address: "0xAbC"},
	)

	keys := s.accountKeys(context.Background())
	c.Equal(map[string]string{"eip155:1:0xAbC": "w-1"}, keys)
}

func TestAccountKeysSkipsUnresolvableWallets(t *testing.T) {
	c := require.New(t)

	s, _, _ := newTestService(&fakeDialer{client: newFakeClient()},
		&fakeWallet{id: "w-1", pluginID: "notachain", address: "0x1"},
		&fakeWallet{id: "w-2", pluginID: "ethereum", addrErr: errors.New("keychain locked")},
		&fakeWallet{id: "w-3", pluginID: "polygon", address: "0x3"},
	)

	keys := s.accountKeys(context.Background())
	c.Equal(map[string]string{"eip155:137:0x3": "w-3"}, keys)
}

func supportedEth(address string) map[string]SupportedNamespace {
	namespaces, _ := BuildSupportedNamespaces(caip.ChainID{Namespace: "eip155", Reference: "1"}, address)
	return namespaces
}

func TestUnsupportedMethodsSatisfiable(t *testing.T) {
	c := require.New(t)

	proposal := &relay.Proposal{
		RequiredNamespaces: map[string]relay.ProposalNamespace{
			"eip155": {
				Chains:  []string{"eip155:1"},
				Methods: []string{"personal_sign", "eth_sendTransaction"},
			},
		},
	}
	c.Empty(UnsupportedMethods(proposal, supportedEth("0xAbC")))
}

func TestUnsupportedMethodsUnknownMethod(t *testing.T) {
	c := require.New(t)

	proposal := &relay.Proposal{
		RequiredNamespaces: map[string]relay.ProposalNamespace{
			"eip155": {
				Chains:  []string{"eip155:1"},
				Methods: []string{"personal_sign", "eth_coinbase"},
			},
		},
	}
	c.Equal([]string{"eth_coinbase"}, UnsupportedMethods(proposal, supportedEth("0xAbC")))
}

func TestUnsupportedMethodsUnknownFamily(t *testing.T) {
	c := require.New(t)

	proposal := &relay.Proposal{
		RequiredNamespaces: map[string]relay.ProposalNamespace{
			"cosmos": {
				Chains:  []string{"cosmos:cosmoshub-4"},
				Methods: []string{"cosmos_signDirect", "cosmos_getAccounts"},
			},
		},
	}
	c.Equal([]string{"cosmos_signDirect", "cosmos_getAccounts"},
		UnsupportedMethods(proposal, supportedEth("0xAbC")))
}

func TestUnsupportedMethodsChainMismatch(t *testing.T) {
	c := require.New(t)

	// dApp wants polygon, wallet offers mainnet: nothing is satisfiable
	proposal := &relay.Proposal{
		RequiredNamespaces: map[string]relay.ProposalNamespace{
			"eip155": {
				Chains:  []string{"eip155:137"},
				Methods: []string{"personal_sign"},
			},
		},
	}
	c.Equal([]string{"personal_sign"}, UnsupportedMethods(proposal, supportedEth("0xAbC")))
}

func TestUnsupportedMethodsChainQualifiedKey(t *testing.T) {
	c := require.New(t)

	// chain encoded in the namespace key instead of the chains list
	proposal := &relay.Proposal{
		RequiredNamespaces: map[string]relay.ProposalNamespace{
			"eip155:1": {Methods: []string{"personal_sign"}},
		},
	}
	c.Empty(UnsupportedMethods(proposal, supportedEth("0xAbC")))

	proposal = &relay.Proposal{
		RequiredNamespaces: map[string]relay.ProposalNamespace{
			"eip155:137": {Methods: []string{"personal_sign"}},
		},
	}
	c.Equal([]string{"personal_sign"}, UnsupportedMethods(proposal, supportedEth("0xAbC")))
}

func TestUnsupportedMethodsDeterministicOrder(t *testing.T) {
	c := require.New(t)

	proposal := &relay.Proposal{
		RequiredNamespaces: map[string]relay.ProposalNamespace{
			"solana": {Methods: []string{"solana_signMessage"}},
			"cosmos": {Methods: []string{"cosmos_signDirect"}},
		},
	}
	// namespace keys are walked in sorted order
	for i := 0; i < 10; i++ {
		c.Equal([]string{"cosmos_signDirect", "solana_signMessage"},
			UnsupportedMethods(proposal, supportedEth("0xAbC")))
	}
}

func TestWalletIDForSession(t *testing.T) {
	c := require.New(t)

	session := &relay.Session{
		Topic: "t1",
		Namespaces: map[string]relay.SessionNamespace{
			"eip155": {Accounts: []string{"eip155:1:0xAbC"}},
		},
	}
	accounts := map[string]string{"eip155:1:0xAbC": "w-1"}

	walletID, ok := walletIDForSession(session, accounts)
	c.True(ok)
	c.Equal("w-1", walletID)
}

func TestWalletIDForSessionNoMatch(t *testing.T) {
	c := require.New(t)

	session := &relay.Session{
		Topic: "t1",
		Namespaces: map[string]relay.SessionNamespace{
			"eip155": {Accounts: []string{"eip155:1:0xOther", "not-caip"}},
		},
	}
	_, ok := walletIDForSession(session, map[string]string{"eip155:1:0xAbC": "w-1"})
	c.False(ok)
}

func TestWalletIDForSessionSortedKeyOrder(t *testing.T) {
	c := require.New(t)

	session := &relay.Session{
		Topic: "t1",
		Namespaces: map[string]relay.SessionNamespace{
			"eip155":   {Accounts: []string{"eip155:1:0xAbC"}},
			"algorand": {Accounts: []string{"algorand:wGHE2Pwdvd7S12BL5FaOP20EGYesN73k:ALGOADDR"}},
		},
	}
	accounts := map[string]string{
		"eip155:1:0xAbC": "w-eth",
		"algorand:wGHE2Pwdvd7S12BL5FaOP20EGYesN73k:ALGOADDR": "w-algo",
	}
	for i := 0; i < 10; i++ {
		walletID, ok := walletIDForSession(session, accounts)
		c.True(ok)
		c.Equal("w-algo", walletID)
	}
}
