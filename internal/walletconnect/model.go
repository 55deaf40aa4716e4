package walletconnect

import (
	"fmt"
	"strings"
	"time"

	"edgewallet.io/wallet-broker/pkg/errors"
)

// bounded waits on user-facing operations
const (
	proposalWaitTimeout   = 20 * time.Second
	approveSessionTimeout = 20 * time.Second
	disconnectTimeout     = 10 * time.Second
)

var (
	// ErrUnsupportedVersion marks a pairing URI with a protocol version other
	// than 2. No network call is made for these.
	ErrUnsupportedVersion = errors.New("unsupported WalletConnect version")

	// ErrTimeout marks a bounded wait that expired. The relay-side operation
	// may still have completed: treat as unknown outcome, not failure.
	ErrTimeout = errors.New("walletConnect operation timed out")
)

// UnsupportedMethodsError rejects a proposal whose required methods the
// chosen wallet cannot satisfy. Distinct from transport failures so the UI
// can explain the dApp's incompatibility.
type UnsupportedMethodsError struct {
	Methods []string
}

func (e *UnsupportedMethodsError) Error() string {
	return fmt.Sprintf("required methods unimplemented: %v", strings.Join(e.Methods, ","))
}

// SessionView is the app-facing projection of one active session resolved to
// a local wallet.
type SessionView struct {
	WalletID   string `json:"wallet_id"`
	WalletName string `json:"wallet_name"`
	DAppName   string `json:"dapp_name"`
	DAppURL    string `json:"dapp_url"`
	Expiration string `json:"expiration"`
	Topic      string `json:"topic"`
	Icon       string `json:"icon"`
}

// The dApp icon pipeline cannot render vector icons.
const svgFallbackIcon = "https://content.edge.app/walletConnectLogo.png"

func safeIcon(icons []string) string {
	icon := ".svg"
	if len(icons) > 0 && icons[0] != "" {
		icon = icons[0]
	}
	if strings.HasSuffix(icon, ".svg") {
		return svgFallbackIcon
	}
	return icon
}

func formatExpiration(expiry int64) string {
	t := time.Unix(expiry, 0)
	return fmt.Sprintf("%v at %v", t.Format("Jan 2, 2006"), t.Format("3:04 PM"))
}
