package walletconnect

import (
	"context"
	"fmt"

	"edgewallet.io/wallet-broker/internal/plugins"
	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
)

// InitSession parses a pairing URI, triggers the pairing handshake and waits
// for the counterparty's session proposal. The one-shot proposal listener is
// removed on every exit path.
func (s *Service) InitSession(ctx context.Context, uri string) (*relay.Proposal, error) {
	parsed, err := relay.ParsePairingURI(uri)
	if err != nil {
		return nil, err
	}
	if parsed.Version != 2 {
		return nil, ErrUnsupportedVersion
	}

	client, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}

	proposalCh := make(chan *relay.Proposal, 1)
	removeListener := client.OnceSessionProposal(func(p *relay.Proposal) {
		proposalCh <- p
	})
	defer removeListener()

	waitCtx, cancel := context.WithTimeout(ctx, s.proposalWait)
	defer cancel()

	pairErr := make(chan error, 1)
	go func() {
		if err := client.Pair(waitCtx, parsed); err != nil {
			pairErr <- err
		}
	}()

	select {
	case proposal := <-proposalCh:
		if proposal.PairingTopic == "" {
			log.Info("walletConnect initSession no topic returned")
			return nil, errors.New("initSession no topic returned")
		}
		return proposal, nil
	case err := <-pairErr:
		return nil, errors.Wrap(err, "pair with dApp")
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "initSession")
		}
		return nil, errors.Wrap(ErrTimeout, "await session proposal")
	}
}

// ApproveSession binds a proposal to a local wallet. The satisfiability check
// runs before any relay call; an approve that times out is an unknown
// outcome, surfaced as ErrTimeout.
func (s *Service) ApproveSession(ctx context.Context, proposal *relay.Proposal, walletID string) error {
	client, err := s.Client(ctx)
	if err != nil {
		return err
	}

	w, ok := s.wallets.Get(walletID)
	if !ok {
		return errors.Errorf("unknown wallet %v", walletID)
	}
	chain, ok := plugins.ChainIDOf(w.PluginID())
	if !ok {
		return errors.Errorf("wallet %v plugin %v declares no chain id", walletID, w.PluginID())
	}
	address, err := w.ReceiveAddress(ctx)
	if err != nil {
		return errors.Wrap(err, "wallet receive address")
	}
	supported, err := BuildSupportedNamespaces(chain, address)
	if err != nil {
		return err
	}
	if unsupported := UnsupportedMethods(proposal, supported); len(unsupported) > 0 {
		return &UnsupportedMethodsError{Methods: unsupported}
	}

	approveCtx, cancel := context.WithTimeout(ctx, s.approveWait)
	defer cancel()
	if _, err := client.ApproveSession(approveCtx, proposal.ID, approvedNamespaces(supported)); err != nil {
		if approveCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return errors.Wrap(ErrTimeout, "approve session")
		}
		return errors.Wrap(err, "approve session")
	}
	return nil
}

func approvedNamespaces(supported map[string]SupportedNamespace) map[string]relay.SessionNamespace {
	namespaces := make(map[string]relay.SessionNamespace, len(supported))
	for key, ns := range supported {
		namespaces[key] = relay.SessionNamespace{
			Accounts: ns.Accounts,
			Methods:  ns.Methods,
			Events:   ns.Events,
		}
	}
	return namespaces
}

// RejectSession always succeeds from the caller's perspective; relay errors
// are logged only, so a user-initiated rejection can never hang the UI.
func (s *Service) RejectSession(ctx context.Context, proposal *relay.Proposal) error {
	client, err := s.Client(ctx)
	if err != nil {
		log.Errorf("walletConnect rejectSession error %v", err)
		return nil
	}
	if err := client.RejectSession(ctx, proposal.ID, relay.ErrUserRejected); err != nil {
		log.Errorf("walletConnect rejectSession error %v", err)
	}
	return nil
}

// DisconnectSession tears down an active session. Errors propagate: this is a
// user-driven settings flow where failure must be visible.
func (s *Service) DisconnectSession(ctx context.Context, topic string) error {
	client, err := s.Client(ctx)
	if err != nil {
		return err
	}

	// best-effort name lookup for the confirmation toast
	dAppName := "dApp"
	if session, ok := client.Session(topic); ok && session.Peer.Name != "" {
		dAppName = session.Peer.Name
	}

	disconnectCtx, cancel := context.WithTimeout(ctx, s.disconnectWait)
	defer cancel()
	if err := client.DisconnectSession(disconnectCtx, topic, relay.ErrUserDisconnected); err != nil {
		if disconnectCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return errors.Wrap(ErrTimeout, "disconnect session")
		}
		return errors.Wrap(err, "disconnect session")
	}
	s.notifier.Notify("WalletConnect", fmt.Sprintf("%v disconnected", dAppName))
	return nil
}
