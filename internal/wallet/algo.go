package wallet

import (
	"context"
	"encoding/json"

	"edgewallet.io/wallet-broker/pkg/errors"
	"github.com/tidwall/gjson"
)

// AlgoWallet decodes the algorand-family signing payloads.
type AlgoWallet struct {
	id      string
	name    string
	address string
}

func NewAlgoWallet(id, name, address string) *AlgoWallet {
	return &AlgoWallet{id: id, name: name, address: address}
}

func (w *AlgoWallet) ID() string       { return w.id }
func (w *AlgoWallet) PluginID() string { return "algorand" }
func (w *AlgoWallet) Name() string     { return w.name }

func (w *AlgoWallet) ReceiveAddress(ctx context.Context) (string, error) {
	return w.address, nil
}

func (w *AlgoWallet) ParsePayload(method string, params json.RawMessage) (*Intent, error) {
	if method != "algo_signTxn" {
		return nil, errors.Errorf("unsupported method %v", method)
	}
	root := gjson.ParseBytes(params)
	if !root.IsArray() || len(root.Array()) == 0 {
		return nil, errors.New("algo_signTxn params too short")
	}
	// params are [[{txn: base64}, ...]]
	group := root.Array()[0]
	if !group.IsArray() || len(group.Array()) == 0 {
		return nil, errors.New("algo_signTxn transaction group empty")
	}
	return &Intent{
		Method: method,
		From:   w.address,
		Data:   group.Array()[0].Get("txn").String(),
	}, nil
}
