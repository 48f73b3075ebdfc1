package rpc

// RPC Program Numbers
// These identify the RPC programs this server answers for.
const (
	// ProgramPortmap is the port mapper program number (RFC 1057 Appendix A)
	ProgramPortmap = 100000

	// ProgramNFS is the NFS version 2 program number (RFC 1094)
	ProgramNFS = 100003

	// ProgramMount is the Mount protocol program number (RFC 1094 Appendix A)
	ProgramMount = 100005
)

// Version is the ONC/RPC protocol version this server speaks (RFC 1057).
const Version = 2

// RPC Message Types
const (
	// MsgCall indicates an RPC call message
	MsgCall = 0

	// MsgReply indicates an RPC reply message
	MsgReply = 1
)

// RPC Reply States
const (
	// MsgAccepted indicates the RPC call was accepted
	MsgAccepted = 0

	// MsgDenied indicates the RPC call was denied
	MsgDenied = 1
)

// RPC Accept Status (arm of an accepted reply)
const (
	// AcceptSuccess indicates successful execution; results follow
	AcceptSuccess = 0

	// AcceptProgUnavail indicates the program is not served here
	AcceptProgUnavail = 1

	// AcceptProgMismatch indicates an unsupported program version;
	// the supported low/high range follows
	AcceptProgMismatch = 2

	// AcceptProcUnavail indicates the procedure number is unknown
	AcceptProcUnavail = 3

	// AcceptGarbageArgs indicates the arguments could not be decoded
	AcceptGarbageArgs = 4
)

// RPC Reject Status (arm of a denied reply)
const (
	// RejectRPCMismatch indicates an unsupported RPC protocol version
	RejectRPCMismatch = 0

	// RejectAuthError indicates the call's credentials were refused
	RejectAuthError = 1
)

// Authentication flavors. Credentials are carried opaquely and never
// cryptographically validated; AUTH_NONE and AUTH_UNIX pass through.
const (
	AuthNone  = 0
	AuthUnix  = 1
	AuthShort = 2
	AuthDES   = 3
)
