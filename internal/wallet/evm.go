package wallet

import (
	"context"
	"encoding/json"

	"edgewallet.io/wallet-broker/pkg/errors"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tidwall/gjson"
)

// EVMWallet decodes the eip155-family signing payloads.
type EVMWallet struct {
	id       string
	pluginID string
	name     string
	address  string
}

func NewEVMWallet(id, pluginID, name, address string) *EVMWallet {
	return &EVMWallet{id: id, pluginID: pluginID, name: name, address: address}
}

func (w *EVMWallet) ID() string       { return w.id }
func (w *EVMWallet) PluginID() string { return w.pluginID }
func (w *EVMWallet) Name() string     { return w.name }

func (w *EVMWallet) ReceiveAddress(ctx context.Context) (string, error) {
	return w.address, nil
}

// ParsePayload decodes the raw JSON-RPC params for the eip155 method set.
// dApps control the params shape, so everything is parsed defensively.
func (w *EVMWallet) ParsePayload(method string, params json.RawMessage) (*Intent, error) {
	if !gjson.ValidBytes(params) {
		return nil, errors.Errorf("invalid params json for %v", method)
	}
	root := gjson.ParseBytes(params)
	if !root.IsArray() {
		return nil, errors.Errorf("params for %v is not an array", method)
	}
	args := root.Array()

	switch method {
	case "eth_sendTransaction", "eth_signTransaction":
		if len(args) == 0 || !args[0].IsObject() {
			return nil, errors.Errorf("missing transaction object for %v", method)
		}
		tx := args[0]
		return &Intent{
			Method:   method,
			From:     tx.Get("from").String(),
			To:       tx.Get("to").String(),
			Value:    decodeQuantity(tx.Get("value").String()),
			Gas:      decodeQuantity(tx.Get("gas").String()),
			GasPrice: decodeQuantity(tx.Get("gasPrice").String()),
			Data:     tx.Get("data").String(),
		}, nil

	case "eth_sendRawTransaction":
		if len(args) == 0 {
			return nil, errors.Errorf("missing raw transaction for %v", method)
		}
		return &Intent{Method: method, Data: args[0].String()}, nil

	case "personal_sign":
		// params are [data, address]
		if len(args) < 2 {
			return nil, errors.New("personal_sign params too short")
		}
		return &Intent{
			Method:  method,
			From:    args[1].String(),
			Message: decodeSignMessage(args[0].String()),
		}, nil

	case "eth_sign":
		// params are [address, data]
		if len(args) < 2 {
			return nil, errors.New("eth_sign params too short")
		}
		return &Intent{
			Method:  method,
			From:    args[0].String(),
			Message: decodeSignMessage(args[1].String()),
		}, nil

	case "eth_signTypedData", "eth_signTypedData_v4":
		if len(args) < 2 {
			return nil, errors.Errorf("%v params too short", method)
		}
		return &Intent{
			Method:    method,
			From:      args[0].String(),
			TypedData: args[1].String(),
		}, nil
	}
	return nil, errors.Errorf("unsupported method %v", method)
}

// decodeQuantity renders a hex quantity as decimal, keeping the raw string
// when it does not parse.
func decodeQuantity(hex string) string {
	if hex == "" {
		return ""
	}
	n, err := hexutil.DecodeBig(hex)
	if err != nil {
		return hex
	}
	return n.String()
}

// decodeSignMessage renders hex-encoded sign payloads as text when possible.
func decodeSignMessage(raw string) string {
	data, err := hexutil.Decode(raw)
	if err != nil {
		return raw
	}
	return string(data)
}

// VerifyPersonalSign checks that an eth personal_sign result recovers to the
// signing address.
func VerifyPersonalSign(signAddrHex, signatureHex string, msg []byte) bool {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return false
	}
	if len(sig) <= crypto.RecoveryIDOffset {
		return false
	}
	msg = accounts.TextHash(msg)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27 // Transform yellow paper V from 27/28 to 0/1
	}
	recovered, err := crypto.SigToPub(msg, sig)
	if err != nil {
		return false
	}
	recoveredAddr := crypto.PubkeyToAddress(*recovered)
	return signAddrHex == recoveredAddr.Hex()
}
