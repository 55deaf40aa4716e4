package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewResultWireShape(t *testing.T) {
	c := require.New(t)

	response, err := NewResult(7, "0xsignature")
	c.NoError(err)
	c.JSONEq(`{"id":7,"jsonrpc":"2.0","result":"0xsignature"}`, string(response.Marshal()))
}

func TestNewErrorWireShape(t *testing.T) {
	c := require.New(t)

	response := NewError(7, ErrUserRejectedMethods)
	c.JSONEq(`{"id":7,"jsonrpc":"2.0","error":{"code":5002,"message":"User rejected methods."}}`,
		string(response.Marshal()))
}

func TestSDKErrorCodes(t *testing.T) {
	c := require.New(t)

	c.Equal(5000, ErrUserRejected.Code)
	c.Equal(5002, ErrUserRejectedMethods.Code)
	c.Equal(6000, ErrUserDisconnected.Code)
}

func TestJSONRpcRequestSilentPayloads(t *testing.T) {
	c := require.New(t)

	c.True(newJSONRpcRequest(1, "wc_sessionDelete", nil).IsSilentPayload())
	c.False(newJSONRpcRequest(1, "irn_publish", nil).IsSilentPayload())
}
