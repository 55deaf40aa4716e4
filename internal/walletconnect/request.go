package walletconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edgewallet.io/wallet-broker/internal/cache"
	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/internal/ui"
	"edgewallet.io/wallet-broker/internal/wallet"
	"edgewallet.io/wallet-broker/pkg/log"
)

const (
	requestProcessTimeout = 30 * time.Second
	answeredMarkTTL       = 24 * time.Hour
)

// handleSessionRequest receives one raw inbound signing request. Requests
// that cannot be resolved to a session, a wallet and a decodable intent are
// dropped with a log line: an orphaned request cannot be answered
// meaningfully and garbled data must not reach the user.
func (s *Service) handleSessionRequest(req *relay.SessionRequest) {
	go func() {
		s.inflight.Add()
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestProcessTimeout)
		defer cancel()
		s.processRequest(ctx, req)
	}()
}

func (s *Service) processRequest(ctx context.Context, req *relay.SessionRequest) {
	if !cache.AllowSessionRequest(ctx, req.Topic) {
		log.Warnf("walletConnect request %v on %v rate limited, dropping", req.ID, req.Topic)
		return
	}

	client, err := s.Client(ctx)
	if err != nil {
		log.Errorf("walletConnect request %v: %v", req.ID, err)
		return
	}
	session, ok := client.Session(req.Topic)
	if !ok {
		log.Warnf("walletConnect request %v for unknown topic %v, dropping", req.ID, req.Topic)
		return
	}

	accounts := s.accountKeys(ctx)
	walletID, ok := walletIDForSession(session, accounts)
	if !ok {
		log.Warnf("walletConnect request %v on %v has no local wallet, dropping", req.ID, req.Topic)
		return
	}
	w, ok := s.wallets.Get(walletID)
	if !ok {
		log.Warnf("walletConnect request %v: wallet %v disappeared, dropping", req.ID, walletID)
		return
	}

	intent, err := w.ParsePayload(req.Method, req.Params)
	if err != nil {
		log.Errorf("walletConnect request %v decode failed: %v", req.ID, err)
		return
	}

	preview := &ui.RequestPreview{
		Topic:     req.Topic,
		RequestID: req.ID,
		WalletID:  walletID,
		DAppName:  session.Peer.Name,
		DAppURL:   session.Peer.URL,
		Icon:      safeIcon(session.Peer.Icons),
		Intent:    intent,
	}
	s.answeredMu.Lock()
	s.pending[requestKey(req.Topic, req.ID)] = preview
	s.answeredMu.Unlock()

	s.presenter.PresentRequest(ctx, preview)
}

func requestKey(topic string, id int64) string {
	return fmt.Sprintf("%v:%v", topic, id)
}

// firstAnswer enforces the answered-at-most-once discipline for a
// (topic, id). The in-process mark is authoritative; the redis mark extends
// it across restarts but its failure never blocks an answer.
func (s *Service) firstAnswer(ctx context.Context, topic string, id int64) (*ui.RequestPreview, bool) {
	key := requestKey(topic, id)
	s.answeredMu.Lock()
	if _, answered := s.answered[key]; answered {
		s.answeredMu.Unlock()
		return nil, false
	}
	s.answered[key] = struct{}{}
	preview := s.pending[key]
	delete(s.pending, key)
	s.answeredMu.Unlock()

	first, err := cache.MarkRequestAnswered(ctx, topic, id, answeredMarkTTL)
	if err != nil {
		return preview, true
	}
	return preview, first
}

// ApproveRequest writes the JSON-RPC success response for a request back
// through the relay. Transport failures are logged, not retried: the
// counterparty will time out and may resubmit.
func (s *Service) ApproveRequest(ctx context.Context, topic string, id int64, result interface{}) error {
	response, err := relay.NewResult(id, result)
	if err != nil {
		return err
	}
	client, err := s.Client(ctx)
	if err != nil {
		return err
	}

	preview, first := s.firstAnswer(ctx, topic, id)
	if !first {
		log.Warnf("walletConnect request %v on %v already answered, dropping approve", id, topic)
		return nil
	}
	auditSignResult(preview, response.Result)

	if err := client.RespondSessionRequest(ctx, topic, response); err != nil {
		log.Errorf("walletConnect approveRequest error %v", err)
	}
	return nil
}

// RejectRequest writes the standard user-rejected JSON-RPC error for a
// request. Same no-retry policy as ApproveRequest.
func (s *Service) RejectRequest(ctx context.Context, topic string, id int64) error {
	client, err := s.Client(ctx)
	if err != nil {
		return err
	}

	if _, first := s.firstAnswer(ctx, topic, id); !first {
		log.Warnf("walletConnect request %v on %v already answered, dropping reject", id, topic)
		return nil
	}

	if err := client.RespondSessionRequest(ctx, topic, relay.NewError(id, relay.ErrUserRejectedMethods)); err != nil {
		log.Errorf("walletConnect rejectRequest error %v", err)
	}
	return nil
}

// auditSignResult sanity-checks message-sign results before they leave: a
// signature that does not recover to the signing address points at a wallet
// bug worth knowing about. Logged only, the response is relayed either way.
func auditSignResult(preview *ui.RequestPreview, result json.RawMessage) {
	if preview == nil || preview.Intent == nil {
		return
	}
	method := preview.Intent.Method
	if method != "personal_sign" && method != "eth_sign" {
		return
	}
	var signature string
	if err := json.Unmarshal(result, &signature); err != nil {
		return
	}
	if !wallet.VerifyPersonalSign(preview.Intent.From, signature, []byte(preview.Intent.Message)) {
		log.Warnf("walletConnect %v result for request %v does not recover to %v",
			method, preview.RequestID, preview.Intent.From)
	}
}
