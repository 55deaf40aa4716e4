package caip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainID(t *testing.T) {
	c := require.New(t)

	chain, err := ParseChainID("eip155:1")
	c.NoError(err)
	c.Equal("eip155", chain.Namespace)
	c.Equal("1", chain.Reference)
	c.Equal("eip155:1", chain.String())
	c.False(chain.IsZero())
	c.True(ChainID{}.IsZero())
}

func TestParseChainIDMalformed(t *testing.T) {
	c := require.New(t)

	for _, s := range []string{"", "eip155", "eip155:", ":1", "eip155:1:extra"} {
		_, err := ParseChainID(s)
		c.Error(err, "chain id %q", s)
	}
}

func TestAccountID(t *testing.T) {
	c := require.New(t)

	account := NewAccountID(ChainID{Namespace: "eip155", Reference: "1"}, "0xAbC")
	c.Equal("eip155:1:0xAbC", account.String())

	parsed, err := ParseAccountID("eip155:1:0xAbC")
	c.NoError(err)
	c.Equal(account, parsed)
}

func TestParseAccountIDAddressWithColons(t *testing.T) {
	c := require.New(t)

	// only the first two separators split; the address keeps the rest
	parsed, err := ParseAccountID("ns:ref:addr:with:colons")
	c.NoError(err)
	c.Equal("addr:with:colons", parsed.Address)
}

func TestParseAccountIDMalformed(t *testing.T) {
	c := require.New(t)

	for _, s := range []string{"", "eip155", "eip155:1", "eip155::0xAbC", ":1:0xAbC", "eip155:1:"} {
		_, err := ParseAccountID(s)
		c.Error(err, "account id %q", s)
	}
}
