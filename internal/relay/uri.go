package relay

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"edgewallet.io/wallet-broker/pkg/errors"
)

// PairingURI is the decoded form of a scanned/pasted wc: URI:
// wc:<topic>@<version>?relay-protocol=<proto>&symKey=<hex>
type PairingURI struct {
	Topic    string
	Version  int
	Protocol string
	SymKey   []byte
}

// ParsePairingURI decodes a pairing URI. It does not validate the protocol
// version; callers decide which versions they accept.
func ParsePairingURI(uri string) (*PairingURI, error) {
	trimmed := strings.TrimPrefix(uri, "wc:")
	if trimmed == uri {
		return nil, errors.Errorf("not a wc: uri: %q", uri)
	}
	head, query := trimmed, ""
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		head, query = trimmed[:idx], trimmed[idx+1:]
	}
	at := strings.LastIndex(head, "@")
	if at <= 0 || at == len(head)-1 {
		return nil, errors.Errorf("malformed wc uri: %q", uri)
	}
	version, err := strconv.Atoi(head[at+1:])
	if err != nil {
		return nil, errors.Wrapf(err, "malformed wc uri version in %q", uri)
	}
	parsed := &PairingURI{
		Topic:   head[:at],
		Version: version,
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, errors.Wrap(err, "parse wc uri query")
	}
	parsed.Protocol = values.Get("relay-protocol")
	if symKey := values.Get("symKey"); symKey != "" {
		key, err := hex.DecodeString(symKey)
		if err != nil {
			return nil, errors.Wrap(err, "decode wc uri symKey")
		}
		parsed.SymKey = key
	}
	return parsed, nil
}
