package walletconnect

import (
	"context"
	"testing"
	"time"

	"edgewallet.io/wallet-broker/internal/relay"
	"github.com/stretchr/testify/require"
)

func TestActiveSessions(t *testing.T) {
	c := require.New(t)

	expiry := time.Now().Add(7 * 24 * time.Hour).Unix()
	client := newFakeClient()
	client.addSession(&relay.Session{
		Topic: "t1",
		Peer: relay.Metadata{
			Name:  "Uniswap",
			URL:   "https://app.uniswap.org",
			Icons: []string{"https://app.uniswap.org/icon.png"},
		},
		Namespaces: map[string]relay.SessionNamespace{
			"eip155": {Accounts: []string{"eip155:1:0xAbC"}},
		},
		Expiry: expiry,
	})
	// a session for an account no local wallet holds: another device's
	client.addSession(&relay.Session{
		Topic: "t2",
		Peer:  relay.Metadata{Name: "Foreign"},
		Namespaces: map[string]relay.SessionNamespace{
			"eip155": {Accounts: []string{"eip155:1:0xOther"}},
		},
		Expiry: expiry,
	})

	s, _, _ := newTestService(&fakeDialer{client: client},
		&fakeWallet{id: "w-1", pluginID: "ethereum", name: "My Ethereum", address: "0xAbC"})

	views, err := s.ActiveSessions(context.Background())
	c.NoError(err)
	c.Len(views, 1)

	view := views[0]
	c.Equal("w-1", view.WalletID)
	c.Equal("My Ethereum", view.WalletName)
	c.Equal("Uniswap", view.DAppName)
	c.Equal("https://app.uniswap.org", view.DAppURL)
	c.Equal("https://app.uniswap.org/icon.png", view.Icon)
	c.Equal("t1", view.Topic)
	c.Equal(formatExpiration(expiry), view.Expiration)
}

func TestActiveSessionsSortedByTopic(t *testing.T) {
	c := require.New(t)

	client := newFakeClient()
	for _, topic := range []string{"t3", "t1", "t2"} {
		client.addSession(&relay.Session{
			Topic: topic,
			Namespaces: map[string]relay.SessionNamespace{
				"eip155": {Accounts: []string{"eip155:1:0xAbC"}},
			},
		})
	}
	s, _, _ := newTestService(&fakeDialer{client: client},
		&fakeWallet{id: "w-1", pluginID: "ethereum", address: "0xAbC"})

	views, err := s.ActiveSessions(context.Background())
	c.NoError(err)
	c.Len(views, 3)
	c.Equal("t1", views[0].Topic)
	c.Equal("t2", views[1].Topic)
	c.Equal("t3", views[2].Topic)
}

func TestSafeIcon(t *testing.T) {
	c := require.New(t)

	c.Equal(svgFallbackIcon, safeIcon(nil))
	c.Equal(svgFallbackIcon, safeIcon([]string{}))
	c.Equal(svgFallbackIcon, safeIcon([]string{""}))
	c.Equal(svgFallbackIcon, safeIcon([]string{"https://dapp.example/logo.svg"}))
	c.Equal("https://dapp.example/logo.png", safeIcon([]string{"https://dapp.example/logo.png"}))
	c.Equal("https://dapp.example/a.png", safeIcon([]string{"https://dapp.example/a.png", "https://dapp.example/b.svg"}))
}

func TestFormatExpiration(t *testing.T) {
	c := require.New(t)

	when := time.Date(2023, time.May, 1, 15, 4, 0, 0, time.Local)
	c.Equal("May 1, 2023 at 3:04 PM", formatExpiration(when.Unix()))
}
