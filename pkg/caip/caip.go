// Package caip implements the CAIP-2 chain identifier and CAIP-10 account
// identifier string formats used on the WalletConnect wire.
package caip

import (
	"fmt"
	"strings"

	"edgewallet.io/wallet-broker/pkg/errors"
)

// ChainID identifies one blockchain network, e.g. eip155:1.
type ChainID struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Reference string `json:"reference" yaml:"reference"`
}

func (c ChainID) String() string {
	return c.Namespace + ":" + c.Reference
}

func (c ChainID) IsZero() bool {
	return c.Namespace == "" && c.Reference == ""
}

// ParseChainID parses a CAIP-2 string.
func ParseChainID(s string) (ChainID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ChainID{}, errors.Errorf("malformed CAIP-2 chain id %q", s)
	}
	return ChainID{Namespace: parts[0], Reference: parts[1]}, nil
}

// AccountID identifies one (chain, address) pair, e.g. eip155:1:0xAB....
// At most one local wallet maps to a given AccountID at a time.
type AccountID struct {
	Chain   ChainID
	Address string
}

func NewAccountID(chain ChainID, address string) AccountID {
	return AccountID{Chain: chain, Address: address}
}

func (a AccountID) String() string {
	return fmt.Sprintf("%s:%s:%s", a.Chain.Namespace, a.Chain.Reference, a.Address)
}

// ParseAccountID parses a CAIP-10 string.
func ParseAccountID(s string) (AccountID, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return AccountID{}, errors.Errorf("malformed CAIP-10 account id %q", s)
	}
	return AccountID{
		Chain:   ChainID{Namespace: parts[0], Reference: parts[1]},
		Address: parts[2],
	}, nil
}
