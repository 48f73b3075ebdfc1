package rpc

// CallMessage is the fixed part of an RPC call: the header every program
// shares, up to and including the two auth blobs. Procedure arguments
// follow it on the wire.
type CallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// acceptedReplyHeader is the header of an accepted reply whose status
// carries no extra fields (SUCCESS, PROG_UNAVAIL, PROC_UNAVAIL,
// GARBAGE_ARGS). For SUCCESS, the procedure results follow.
type acceptedReplyHeader struct {
	XID        uint32
	MsgType    uint32 // MsgReply
	ReplyState uint32 // MsgAccepted
	Verf       OpaqueAuth
	AcceptStat uint32
}

// progMismatchReply is an accepted PROG_MISMATCH reply, carrying the
// supported version range.
type progMismatchReply struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	Verf       OpaqueAuth
	AcceptStat uint32 // AcceptProgMismatch
	Low        uint32
	High       uint32
}

// rpcMismatchReply is a denied RPC_MISMATCH reply, carrying the supported
// RPC version range. Note there is no verifier in a denied reply.
type rpcMismatchReply struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32 // MsgDenied
	RejectStat uint32 // RejectRPCMismatch
	Low        uint32
	High       uint32
}

// OpaqueAuth is an authentication blob: a flavor and up to 400 bytes of
// body the server accepts without interpreting.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}
