package walletconnect

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/internal/ui"
	"edgewallet.io/wallet-broker/internal/wallet"
	"edgewallet.io/wallet-broker/pkg/errors"
	"go.uber.org/atomic"
)

// fakeClient is an in-memory relay.Client for broker tests.
type fakeClient struct {
	mu sync.Mutex

	pairErr  error
	paired   []*relay.PairingURI
	proposal *relay.Proposal // delivered to the pending proposal handler on Pair

	approveErr   error
	approveBlock bool // ApproveSession blocks until the context expires
	approved     []int64

	rejectErr error
	rejected  []int64

	disconnectErr error
	disconnected  []string

	respondErr error
	responses  []*relay.JSONRpcResponse

	sessions map[string]*relay.Session

	nextHandlerID    int
	proposalHandlers map[int]func(*relay.Proposal)
	requestHandler   func(*relay.SessionRequest)
	deleteHandler    func(topic string)
	requestSets      int
	deleteSets       int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		sessions:         make(map[string]*relay.Session),
		proposalHandlers: make(map[int]func(*relay.Proposal)),
	}
}

func (c *fakeClient) Pair(ctx context.Context, uri *relay.PairingURI) error {
	c.mu.Lock()
	c.paired = append(c.paired, uri)
	err := c.pairErr
	proposal := c.proposal
	var handler func(*relay.Proposal)
	if proposal != nil {
		for id, h := range c.proposalHandlers {
			handler = h
			delete(c.proposalHandlers, id)
			break
		}
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if proposal != nil && handler != nil {
		handler(proposal)
	}
	return nil
}

func (c *fakeClient) ApproveSession(ctx context.Context, proposalID int64, namespaces map[string]relay.SessionNamespace) (*relay.Session, error) {
	if c.approveBlock {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.approveErr != nil {
		return nil, c.approveErr
	}
	c.approved = append(c.approved, proposalID)
	return &relay.Session{Topic: "settled", Namespaces: namespaces}, nil
}

func (c *fakeClient) RejectSession(ctx context.Context, proposalID int64, reason relay.RPCError) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = append(c.rejected, proposalID)
	return c.rejectErr
}

func (c *fakeClient) DisconnectSession(ctx context.Context, topic string, reason relay.RPCError) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnectErr != nil {
		return c.disconnectErr
	}
	c.disconnected = append(c.disconnected, topic)
	delete(c.sessions, topic)
	return nil
}

func (c *fakeClient) RespondSessionRequest(ctx context.Context, topic string, response *relay.JSONRpcResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.respondErr != nil {
		return c.respondErr
	}
	c.responses = append(c.responses, response)
	return nil
}

func (c *fakeClient) ActiveSessions() []*relay.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessions := make([]*relay.Session, 0, len(c.sessions))
	for _, session := range c.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

func (c *fakeClient) Session(topic string) (*relay.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[topic]
	return session, ok
}

func (c *fakeClient) OnceSessionProposal(h func(*relay.Proposal)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.proposalHandlers[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.proposalHandlers, id)
	}
}

func (c *fakeClient) OnSessionRequest(h func(*relay.SessionRequest)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestHandler = h
	c.requestSets++
}

func (c *fakeClient) OnSessionDelete(h func(topic string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteHandler = h
	c.deleteSets++
}

func (c *fakeClient) Close() error { return nil }

func (c *fakeClient) proposalHandlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.proposalHandlers)
}

func (c *fakeClient) addSession(session *relay.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.Topic] = session
}

func (c *fakeClient) responseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

// fakeDialer fails the first `failures` dials and then hands out its client.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	client   relay.Client
}

func (d *fakeDialer) Dial(ctx context.Context) (relay.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dials <= d.failures {
		return nil, errors.New("relay refused")
	}
	return d.client, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// gatedDialer blocks every Dial until release is closed.
type gatedDialer struct {
	release chan struct{}
	dials   atomic.Int32
	client  relay.Client
}

func (d *gatedDialer) Dial(ctx context.Context) (relay.Client, error) {
	d.dials.Inc()
	<-d.release
	return d.client, nil
}

// fakeWallet is a minimal wallet.Wallet whose decoder echoes the method.
type fakeWallet struct {
	id       string
	pluginID string
	name     string
	address  string
	addrErr  error
	parseErr error
}

func (w *fakeWallet) ID() string       { return w.id }
func (w *fakeWallet) PluginID() string { return w.pluginID }
func (w *fakeWallet) Name() string     { return w.name }

func (w *fakeWallet) ReceiveAddress(ctx context.Context) (string, error) {
	return w.address, w.addrErr
}

func (w *fakeWallet) ParsePayload(method string, params json.RawMessage) (*wallet.Intent, error) {
	if w.parseErr != nil {
		return nil, w.parseErr
	}
	return &wallet.Intent{Method: method, From: w.address, Message: string(params)}, nil
}

// capturePresenter buffers presented previews for assertions.
type capturePresenter struct {
	previews chan *ui.RequestPreview
}

func newCapturePresenter() *capturePresenter {
	return &capturePresenter{previews: make(chan *ui.RequestPreview, 16)}
}

func (p *capturePresenter) PresentRequest(ctx context.Context, preview *ui.RequestPreview) {
	p.previews <- preview
}

func (p *capturePresenter) wait(timeout time.Duration) *ui.RequestPreview {
	select {
	case preview := <-p.previews:
		return preview
	case <-time.After(timeout):
		return nil
	}
}

// captureNotifier records fired notifications.
type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *captureNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

// newTestService builds a Service on a fake dialer with waits shortened so
// timeout paths run in milliseconds.
func newTestService(dialer relay.Dialer, wallets ...wallet.Wallet) (*Service, *capturePresenter, *captureNotifier) {
	presenter := newCapturePresenter()
	notifier := &captureNotifier{}
	s := NewService(dialer, wallet.NewRegistry(wallets...), presenter, notifier)
	s.proposalWait = 100 * time.Millisecond
	s.approveWait = 100 * time.Millisecond
	s.disconnectWait = 100 * time.Millisecond
	s.retryDelay = time.Millisecond
	s.maxRetryDelay = 4 * time.Millisecond
	return s, presenter, notifier
}
