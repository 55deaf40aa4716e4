package relay

import (
	"encoding/json"
	"strings"

	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
)

// Metadata describes one peer (the dApp or this wallet) on the wire.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

// ProposalNamespace is one untrusted namespace requirement from a proposal.
// dApps may omit the chains list and encode the chain in the namespace key
// instead, e.g. "eip155:1".
type ProposalNamespace struct {
	Chains  []string `json:"chains,omitempty"`
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// SessionNamespace is one settled namespace of an approved session.
type SessionNamespace struct {
	Accounts []string `json:"accounts"`
	Methods  []string `json:"methods"`
	Events   []string `json:"events"`
}

// Proposal is the dApp's inbound session proposal. Transient: consumed by
// approval or rejection, never persisted.
type Proposal struct {
	ID                 int64                        `json:"id"`
	PairingTopic       string                       `json:"pairingTopic"`
	RequiredNamespaces map[string]ProposalNamespace `json:"requiredNamespaces"`
	OptionalNamespaces map[string]ProposalNamespace `json:"optionalNamespaces"`
	Proposer           Metadata                     `json:"proposer"`
}

// Session is one approved, ongoing connection, valid until disconnect or
// expiry. Owned by the relay client.
type Session struct {
	Topic      string                      `json:"topic"`
	Peer       Metadata                    `json:"peer"`
	Namespaces map[string]SessionNamespace `json:"namespaces"`
	Expiry     int64                       `json:"expiry"`
}

// SessionRequest is one inbound signing/call request on an active session.
type SessionRequest struct {
	Topic   string          `json:"topic"`
	ID      int64           `json:"id"`
	ChainID string          `json:"chainId"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e RPCError) Error() string {
	return e.Message
}

// Standard SDK error reasons, bit-compatible with the counterparty protocol.
var (
	ErrUserRejected        = RPCError{Code: 5000, Message: "User rejected."}
	ErrUserRejectedMethods = RPCError{Code: 5002, Message: "User rejected methods."}
	ErrUserDisconnected    = RPCError{Code: 6000, Message: "User disconnected."}
)

type jsonRpcRequest struct {
	ID      int64       `json:"id"`
	JSONRpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

func newJSONRpcRequest(id int64, method string, params interface{}) *jsonRpcRequest {
	return &jsonRpcRequest{
		ID:      id,
		JSONRpc: "2.0",
		Method:  method,
		Params:  params,
	}
}

func (e *jsonRpcRequest) Marshal() []byte {
	s, err := json.Marshal(e)
	if err != nil {
		log.Errorf("marshal:%v", err)
	}
	return s
}

// JSONRpcResponse carries either a result or an error, never both.
type JSONRpcResponse struct {
	ID      int64           `json:"id"`
	JSONRpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewResult builds a JSON-RPC 2.0 success response.
func NewResult(id int64, result interface{}) (*JSONRpcResponse, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request result")
	}
	return &JSONRpcResponse{ID: id, JSONRpc: "2.0", Result: raw}, nil
}

// NewError builds a JSON-RPC 2.0 error response.
func NewError(id int64, reason RPCError) *JSONRpcResponse {
	return &JSONRpcResponse{ID: id, JSONRpc: "2.0", Error: &reason}
}

func (e *JSONRpcResponse) Marshal() []byte {
	s, err := json.Marshal(e)
	if err != nil {
		log.Errorf("marshal:%v", err)
	}
	return s
}

// IsSilentPayload reports whether a method is protocol housekeeping the relay
// should not push notifications for.
func (e *jsonRpcRequest) IsSilentPayload() bool {
	return strings.HasPrefix(e.Method, "wc_")
}

// relay-side pub/sub envelope params
type irnPublishParams struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
	TTL     int64  `json:"ttl"`
	Tag     int    `json:"tag"`
}

type irnSubscribeParams struct {
	Topic string `json:"topic"`
}

type irnUnsubscribeParams struct {
	Topic string `json:"topic"`
	ID    string `json:"id"`
}

// message tags for published envelopes
const (
	tagSessionProposeResponse = 1101
	tagSessionSettle          = 1102
	tagSessionDelete          = 1112
	tagSessionRequestResponse = 1109
)

// envelope TTLs in seconds
const (
	ttlProposal = 300
	ttlSession  = 86400
	ttlResponse = 300
)
