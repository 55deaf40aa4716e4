package relay

import "context"

// Client is one connection to the relay network, owning the pairing keys and
// the active-session set. All methods are safe for concurrent use.
type Client interface {
	// Pair subscribes to the pairing topic of a parsed URI and activates the
	// pairing; the counterparty's proposal then arrives asynchronously.
	Pair(ctx context.Context, uri *PairingURI) error

	// ApproveSession settles a pending proposal with the accepted namespaces
	// and returns the installed session.
	ApproveSession(ctx context.Context, proposalID int64, namespaces map[string]SessionNamespace) (*Session, error)

	// RejectSession answers a pending proposal with an error reason.
	RejectSession(ctx context.Context, proposalID int64, reason RPCError) error

	// DisconnectSession tears down an active session.
	DisconnectSession(ctx context.Context, topic string, reason RPCError) error

	// RespondSessionRequest writes a JSON-RPC response for an inbound request.
	RespondSessionRequest(ctx context.Context, topic string, response *JSONRpcResponse) error

	// ActiveSessions snapshots the sessions this client currently holds.
	ActiveSessions() []*Session

	// Session returns the active session for a topic.
	Session(topic string) (*Session, bool)

	// OnceSessionProposal registers a one-shot handler for the next inbound
	// proposal. The returned cancel removes the handler if it has not fired.
	OnceSessionProposal(h func(*Proposal)) (cancel func())

	// OnSessionRequest sets the handler for inbound signing requests.
	OnSessionRequest(h func(*SessionRequest))

	// OnSessionDelete sets the handler for counterparty-initiated disconnects.
	OnSessionDelete(h func(topic string))

	Close() error
}

// Dialer establishes relay clients. Injected into the broker so tests can
// supply a fake relay.
type Dialer interface {
	Dial(ctx context.Context) (Client, error)
}
