package rpc

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// ============================================================================
// Reply Construction
// ============================================================================
//
// Replies go out as single UDP datagrams, so unlike the TCP transport there
// is no record-marking fragment header in front of the message.
//
// The distinction between layers matters and is preserved exactly: an NFS
// procedure that fails (stale handle, missing file) still produces an
// accepted, SUCCESS reply at the RPC layer, with the failure carried in the
// NFS status word inside data. Only envelope-level problems (unknown
// program, bad version, unknown procedure) surface as RPC-level statuses.

// AcceptedReply wraps XDR-encoded procedure results in an accepted,
// SUCCESS reply.
func AcceptedReply(xid uint32, data []byte) ([]byte, error) {
	header := acceptedReplyHeader{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf:       OpaqueAuth{Flavor: AuthNone, Body: []byte{}},
		AcceptStat: AcceptSuccess,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &header); err != nil {
		return nil, fmt.Errorf("marshal reply header: %w", err)
	}
	buf.Write(data)
	return buf.Bytes(), nil
}

// ProgUnavailReply answers a call for a program this server does not
// serve.
func ProgUnavailReply(xid uint32) ([]byte, error) {
	return acceptedError(xid, AcceptProgUnavail)
}

// ProcUnavailReply answers a call for an unknown procedure of a known
// program.
func ProcUnavailReply(xid uint32) ([]byte, error) {
	return acceptedError(xid, AcceptProcUnavail)
}

// GarbageArgsReply answers a call whose arguments did not decode.
func GarbageArgsReply(xid uint32) ([]byte, error) {
	return acceptedError(xid, AcceptGarbageArgs)
}

// ProgMismatchReply answers a call for a known program at an unsupported
// version, reporting the supported range.
func ProgMismatchReply(xid, low, high uint32) ([]byte, error) {
	reply := progMismatchReply{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf:       OpaqueAuth{Flavor: AuthNone, Body: []byte{}},
		AcceptStat: AcceptProgMismatch,
		Low:        low,
		High:       high,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal PROG_MISMATCH reply: %w", err)
	}
	return buf.Bytes(), nil
}

// RPCMismatchReply denies a call made with an RPC version other than 2.
func RPCMismatchReply(xid uint32) ([]byte, error) {
	reply := rpcMismatchReply{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgDenied,
		RejectStat: RejectRPCMismatch,
		Low:        Version,
		High:       Version,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal RPC_MISMATCH reply: %w", err)
	}
	return buf.Bytes(), nil
}

func acceptedError(xid, stat uint32) ([]byte, error) {
	header := acceptedReplyHeader{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf:       OpaqueAuth{Flavor: AuthNone, Body: []byte{}},
		AcceptStat: stat,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &header); err != nil {
		return nil, fmt.Errorf("marshal reply header: %w", err)
	}
	return buf.Bytes(), nil
}
