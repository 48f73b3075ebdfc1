package rpc

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// maxAuthBody bounds the opaque auth blobs per RFC 1057 Section 8.2.
const maxAuthBody = 400

// ReadCall decodes the RPC call header from a datagram and returns it
// together with the procedure arguments that follow it.
//
// Any failure here means the datagram is malformed; per the UDP
// tolerate-loss model the caller drops it without replying.
func ReadCall(datagram []byte) (*CallMessage, []byte, error) {
	call := &CallMessage{}
	consumed, err := xdr.Unmarshal(bytes.NewReader(datagram), call)
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}

	if call.MsgType != MsgCall {
		return nil, nil, fmt.Errorf("expected CALL (%d), got %d", MsgCall, call.MsgType)
	}
	if len(call.Cred.Body) > maxAuthBody || len(call.Verf.Body) > maxAuthBody {
		return nil, nil, fmt.Errorf("auth body exceeds %d bytes", maxAuthBody)
	}

	return call, datagram[consumed:], nil
}
