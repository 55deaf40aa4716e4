package plugins

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainIDOf(t *testing.T) {
	c := require.New(t)

	chain, ok := ChainIDOf("ethereum")
	c.True(ok)
	c.Equal("eip155:1", chain.String())

	chain, ok = ChainIDOf("algorand")
	c.True(ok)
	c.Equal("algorand:wGHE2Pwdvd7S12BL5FaOP20EGYesN73k", chain.String())

	_, ok = ChainIDOf("bitcoin")
	c.False(ok)
}

func TestEveryPluginChainHasFamily(t *testing.T) {
	c := require.New(t)

	for pluginID, chain := range chainIDs {
		_, ok := FamilyOf(chain.Namespace)
		c.True(ok, "plugin %v namespace %v has no family", pluginID, chain.Namespace)
	}
}

func TestFamilySupportsMethod(t *testing.T) {
	c := require.New(t)

	family, ok := FamilyOf("eip155")
	c.True(ok)
	c.True(family.SupportsMethod("personal_sign"))
	c.True(family.SupportsMethod("eth_sendTransaction"))
	c.False(family.SupportsMethod("eth_coinbase"))

	family, ok = FamilyOf("algorand")
	c.True(ok)
	c.True(family.SupportsMethod("algo_signTxn"))

	_, ok = FamilyOf("cosmos")
	c.False(ok)
}
