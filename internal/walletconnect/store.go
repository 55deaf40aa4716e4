package walletconnect

import (
	"context"
	"sort"
)

// ActiveSessions projects the relay client's sessions onto the local wallet
// set. Sessions with no resolvable local wallet are excluded: they belong to
// another device or a wallet that has since been deleted.
func (s *Service) ActiveSessions(ctx context.Context) ([]SessionView, error) {
	client, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}

	accounts := s.accountKeys(ctx)
	sessions := client.ActiveSessions()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Topic < sessions[j].Topic
	})

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		walletID, ok := walletIDForSession(session, accounts)
		if !ok {
			continue
		}
		walletName := ""
		if w, ok := s.wallets.Get(walletID); ok {
			walletName = w.Name()
		}
		views = append(views, SessionView{
			WalletID:   walletID,
			WalletName: walletName,
			DAppName:   session.Peer.Name,
			DAppURL:    session.Peer.URL,
			Expiration: formatExpiration(session.Expiry),
			Topic:      session.Topic,
			Icon:       safeIcon(session.Peer.Icons),
		})
	}
	return views, nil
}
