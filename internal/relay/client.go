package relay

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/ratelimit"
)

// outbound publishes per second; the relay rate limits aggressive clients
const publishRateLimit = 10

// WebsocketDialer dials the relay network over a websocket.
type WebsocketDialer struct {
	URL       string
	ProjectID string
	Metadata  Metadata
}

func (d *WebsocketDialer) Dial(ctx context.Context) (Client, error) {
	wsURL := fmt.Sprintf("%v?projectId=%v&clientId=%v",
		d.URL, url.QueryEscape(d.ProjectID), uuid.NewString())
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dial to relay url")
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "init payload id node")
	}
	c := &wsClient{
		conn:      conn,
		node:      node,
		metadata:  d.Metadata,
		limiter:   ratelimit.New(publishRateLimit),
		keys:      make(map[string][]byte),
		proposals: make(map[int64]*pendingProposal),
		sessions:  make(map[string]*Session),
		pending:   make(map[int64]chan *JSONRpcResponse),
	}
	go c.readLoop()
	return c, nil
}

type pendingProposal struct {
	proposal     *Proposal
	pairingTopic string
}

type proposalHandler struct {
	id string
	fn func(*Proposal)
}

type wsClient struct {
	conn     *websocket.Conn
	node     *snowflake.Node
	metadata Metadata
	limiter  ratelimit.Limiter

	writeMu sync.Mutex

	mu               sync.Mutex
	keys             map[string][]byte
	proposals        map[int64]*pendingProposal
	sessions         map[string]*Session
	pending          map[int64]chan *JSONRpcResponse
	proposalHandlers []proposalHandler
	requestHandler   func(*SessionRequest)
	deleteHandler    func(topic string)
	closed           bool
}

func (c *wsClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// ----- wire plumbing -----

func (c *wsClient) send(payload []byte) error {
	c.limiter.Take()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrap(err, "write relay message")
	}
	return nil
}

// call performs one outbound relay RPC and waits for its ack.
func (c *wsClient) call(ctx context.Context, method string, params interface{}) (*JSONRpcResponse, error) {
	id := c.node.Generate().Int64()
	ch := make(chan *JSONRpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(newJSONRpcRequest(id, method, params).Marshal()); err != nil {
		return nil, err
	}
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, errors.Wrapf(resp.Error, "relay rejected %v", method)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "await relay ack for %v", method)
	}
}

func (c *wsClient) subscribe(ctx context.Context, topic string) error {
	_, err := c.call(ctx, "irn_subscribe", irnSubscribeParams{Topic: topic})
	return err
}

func (c *wsClient) unsubscribe(topic string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.call(ctx, "irn_unsubscribe", irnUnsubscribeParams{Topic: topic}); err != nil {
		log.Debugf("relay - unsubscribe %v: %v", topic, err)
	}
}

// publish seals a payload for the topic's key and hands it to the relay.
func (c *wsClient) publish(ctx context.Context, topic string, payload []byte, tag int, ttl int64) error {
	c.mu.Lock()
	key := c.keys[topic]
	c.mu.Unlock()
	if key == nil {
		return errors.Errorf("no key for topic %v", topic)
	}
	sealed, err := seal(key, payload)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, "irn_publish", irnPublishParams{
		Topic:   topic,
		Message: base64.StdEncoding.EncodeToString(sealed),
		TTL:     ttl,
		Tag:     tag,
	})
	return err
}

func (c *wsClient) readLoop() {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Error(errors.WrapAndReport(err, "read relay message"))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		root := gjson.ParseBytes(data)
		if root.Get("method").String() == "irn_subscription" {
			c.handleSubscription(root)
			continue
		}
		// ack for one of our outbound calls
		var resp JSONRpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Debugf("relay - drop unparseable frame: %v", err)
			continue
		}
		c.mu.Lock()
		ch := c.pending[resp.ID]
		c.mu.Unlock()
		if ch != nil {
			ch <- &resp
		}
	}
}

// handleSubscription processes one pushed envelope and acks it.
func (c *wsClient) handleSubscription(root gjson.Result) {
	id := root.Get("id").Int()
	topic := root.Get("params.data.topic").String()
	message := root.Get("params.data.message").String()

	// ack the push so the relay does not redeliver
	ack := &JSONRpcResponse{ID: id, JSONRpc: "2.0", Result: json.RawMessage("true")}
	if err := c.send(ack.Marshal()); err != nil {
		log.Debugf("relay - ack subscription: %v", err)
	}

	c.mu.Lock()
	key := c.keys[topic]
	c.mu.Unlock()
	if key == nil {
		log.Debugf("relay - drop envelope for unknown topic %v", topic)
		return
	}
	sealed, err := base64.StdEncoding.DecodeString(message)
	if err != nil {
		log.Debugf("relay - drop envelope with bad base64 on %v: %v", topic, err)
		return
	}
	plaintext, err := open(key, sealed)
	if err != nil {
		log.Debugf("relay - drop undecryptable envelope on %v: %v", topic, err)
		return
	}
	c.dispatch(topic, plaintext)
}

// dispatch routes one decrypted peer payload.
func (c *wsClient) dispatch(topic string, payload []byte) {
	log.Debugf("relay - receive on %v: %v", topic, string(payload))
	root := gjson.ParseBytes(payload)
	method := root.Get("method").String()
	switch method {
	case "wc_sessionPropose":
		c.handleSessionPropose(topic, root)
	case "wc_sessionRequest":
		c.handleSessionRequest(topic, root)
	case "wc_sessionDelete":
		c.handleSessionDelete(topic)
	case "":
		// response to one of our peer-directed requests (e.g. settle ack)
		var resp JSONRpcResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return
		}
		c.mu.Lock()
		ch := c.pending[resp.ID]
		c.mu.Unlock()
		if ch != nil {
			ch <- &resp
		}
	default:
		log.Debugf("relay - ignore method %v on %v", method, topic)
	}
}

func (c *wsClient) handleSessionPropose(topic string, root gjson.Result) {
	proposal := &Proposal{
		ID:                 root.Get("id").Int(),
		PairingTopic:       topic,
		RequiredNamespaces: decodeProposalNamespaces(root.Get("params.requiredNamespaces")),
		OptionalNamespaces: decodeProposalNamespaces(root.Get("params.optionalNamespaces")),
	}
	meta := root.Get("params.proposer.metadata")
	proposal.Proposer = Metadata{
		Name:        meta.Get("name").String(),
		Description: meta.Get("description").String(),
		URL:         meta.Get("url").String(),
	}
	for _, icon := range meta.Get("icons").Array() {
		proposal.Proposer.Icons = append(proposal.Proposer.Icons, icon.String())
	}

	c.mu.Lock()
	c.proposals[proposal.ID] = &pendingProposal{proposal: proposal, pairingTopic: topic}
	var handler *proposalHandler
	if len(c.proposalHandlers) > 0 {
		handler = &c.proposalHandlers[0]
		c.proposalHandlers = c.proposalHandlers[1:]
	}
	c.mu.Unlock()

	if handler == nil {
		log.Warnf("relay - no listener for proposal %v, dropping", proposal.ID)
		return
	}
	handler.fn(proposal)
}

func (c *wsClient) handleSessionRequest(topic string, root gjson.Result) {
	c.mu.Lock()
	handler := c.requestHandler
	c.mu.Unlock()
	if handler == nil {
		log.Warnf("relay - no session request handler attached, dropping request on %v", topic)
		return
	}
	req := &SessionRequest{
		Topic:   topic,
		ID:      root.Get("id").Int(),
		ChainID: root.Get("params.chainId").String(),
		Method:  root.Get("params.request.method").String(),
		Params:  json.RawMessage(root.Get("params.request.params").Raw),
	}
	handler(req)
}

func (c *wsClient) handleSessionDelete(topic string) {
	c.mu.Lock()
	delete(c.sessions, topic)
	delete(c.keys, topic)
	handler := c.deleteHandler
	c.mu.Unlock()
	if handler != nil {
		handler(topic)
	}
}

func decodeProposalNamespaces(node gjson.Result) map[string]ProposalNamespace {
	namespaces := make(map[string]ProposalNamespace)
	node.ForEach(func(key, value gjson.Result) bool {
		ns := ProposalNamespace{}
		for _, chain := range value.Get("chains").Array() {
			ns.Chains = append(ns.Chains, chain.String())
		}
		for _, m := range value.Get("methods").Array() {
			ns.Methods = append(ns.Methods, m.String())
		}
		for _, e := range value.Get("events").Array() {
			ns.Events = append(ns.Events, e.String())
		}
		namespaces[key.String()] = ns
		return true
	})
	return namespaces
}

// ----- Client surface -----

func (c *wsClient) Pair(ctx context.Context, uri *PairingURI) error {
	if len(uri.SymKey) == 0 {
		return errors.New("pairing uri has no symKey")
	}
	c.mu.Lock()
	c.keys[uri.Topic] = uri.SymKey
	c.mu.Unlock()
	if err := c.subscribe(ctx, uri.Topic); err != nil {
		c.mu.Lock()
		delete(c.keys, uri.Topic)
		c.mu.Unlock()
		return errors.Wrap(err, "subscribe pairing topic")
	}
	return nil
}

type sessionSettleParams struct {
	Relay      map[string]string           `json:"relay"`
	Namespaces map[string]SessionNamespace `json:"namespaces"`
	Controller struct {
		PublicKey string   `json:"publicKey"`
		Metadata  Metadata `json:"metadata"`
	} `json:"controller"`
	Expiry int64 `json:"expiry"`
}

const sessionLifetime = 7 * 24 * time.Hour

func (c *wsClient) ApproveSession(ctx context.Context, proposalID int64, namespaces map[string]SessionNamespace) (*Session, error) {
	c.mu.Lock()
	pending := c.proposals[proposalID]
	c.mu.Unlock()
	if pending == nil {
		return nil, errors.Errorf("no pending proposal %v", proposalID)
	}

	c.mu.Lock()
	pairingKey := c.keys[pending.pairingTopic]
	c.mu.Unlock()
	if pairingKey == nil {
		return nil, errors.Errorf("no key for pairing topic %v", pending.pairingTopic)
	}
	sessionKey, err := deriveSessionKey(pairingKey, proposalID)
	if err != nil {
		return nil, err
	}
	sessionTopic := topicFor(sessionKey)

	c.mu.Lock()
	c.keys[sessionTopic] = sessionKey
	c.mu.Unlock()
	if err := c.subscribe(ctx, sessionTopic); err != nil {
		return nil, errors.Wrap(err, "subscribe session topic")
	}

	// answer the proposal on the pairing topic
	approval, err := NewResult(proposalID, map[string]interface{}{
		"relay":              map[string]string{"protocol": "irn"},
		"responderPublicKey": hex.EncodeToString(sessionKey),
	})
	if err != nil {
		return nil, err
	}
	if err := c.publish(ctx, pending.pairingTopic, approval.Marshal(), tagSessionProposeResponse, ttlProposal); err != nil {
		return nil, errors.Wrap(err, "publish proposal approval")
	}

	// settle on the session topic
	expiry := time.Now().Add(sessionLifetime).Unix()
	settle := sessionSettleParams{
		Relay:      map[string]string{"protocol": "irn"},
		Namespaces: namespaces,
		Expiry:     expiry,
	}
	settle.Controller.PublicKey = hex.EncodeToString(sessionKey)
	settle.Controller.Metadata = c.metadata
	settleReq := newJSONRpcRequest(c.node.Generate().Int64(), "wc_sessionSettle", settle)
	if err := c.publish(ctx, sessionTopic, settleReq.Marshal(), tagSessionSettle, ttlSession); err != nil {
		return nil, errors.Wrap(err, "publish session settle")
	}

	session := &Session{
		Topic:      sessionTopic,
		Peer:       pending.proposal.Proposer,
		Namespaces: namespaces,
		Expiry:     expiry,
	}
	c.mu.Lock()
	c.sessions[sessionTopic] = session
	delete(c.proposals, proposalID)
	c.mu.Unlock()
	return session, nil
}

func (c *wsClient) RejectSession(ctx context.Context, proposalID int64, reason RPCError) error {
	c.mu.Lock()
	pending := c.proposals[proposalID]
	delete(c.proposals, proposalID)
	c.mu.Unlock()
	if pending == nil {
		return errors.Errorf("no pending proposal %v", proposalID)
	}
	rejection := NewError(proposalID, reason)
	if err := c.publish(ctx, pending.pairingTopic, rejection.Marshal(), tagSessionProposeResponse, ttlProposal); err != nil {
		return errors.Wrap(err, "publish proposal rejection")
	}
	return nil
}

type sessionDeleteParams struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *wsClient) DisconnectSession(ctx context.Context, topic string, reason RPCError) error {
	c.mu.Lock()
	_, ok := c.sessions[topic]
	c.mu.Unlock()
	if !ok {
		return errors.Errorf("no active session %v", topic)
	}
	del := newJSONRpcRequest(c.node.Generate().Int64(), "wc_sessionDelete", sessionDeleteParams{
		Code:    reason.Code,
		Message: reason.Message,
	})
	if err := c.publish(ctx, topic, del.Marshal(), tagSessionDelete, ttlResponse); err != nil {
		return errors.Wrap(err, "publish session delete")
	}
	c.mu.Lock()
	delete(c.sessions, topic)
	delete(c.keys, topic)
	c.mu.Unlock()
	go c.unsubscribe(topic)
	return nil
}

func (c *wsClient) RespondSessionRequest(ctx context.Context, topic string, response *JSONRpcResponse) error {
	return c.publish(ctx, topic, response.Marshal(), tagSessionRequestResponse, ttlResponse)
}

func (c *wsClient) ActiveSessions() []*Session {
	now := time.Now().Unix()
	c.mu.Lock()
	defer c.mu.Unlock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		if s.Expiry > 0 && s.Expiry <= now {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func (c *wsClient) Session(topic string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[topic]
	if !ok || (s.Expiry > 0 && s.Expiry <= time.Now().Unix()) {
		return nil, false
	}
	return s, true
}

func (c *wsClient) OnceSessionProposal(h func(*Proposal)) func() {
	id := uuid.NewString()
	c.mu.Lock()
	c.proposalHandlers = append(c.proposalHandlers, proposalHandler{id: id, fn: h})
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, handler := range c.proposalHandlers {
			if handler.id == id {
				c.proposalHandlers = append(c.proposalHandlers[:i], c.proposalHandlers[i+1:]...)
				return
			}
		}
	}
}

func (c *wsClient) OnSessionRequest(h func(*SessionRequest)) {
	c.mu.Lock()
	c.requestHandler = h
	c.mu.Unlock()
}

func (c *wsClient) OnSessionDelete(h func(topic string)) {
	c.mu.Lock()
	c.deleteHandler = h
	c.mu.Unlock()
}
