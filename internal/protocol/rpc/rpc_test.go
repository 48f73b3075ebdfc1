package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCall assembles a raw RPC call datagram the way a client would,
// byte by byte, so the tests do not depend on the codec under test.
func buildCall(xid, msgType, rpcVers, prog, vers, proc uint32, cred, verf OpaqueAuth, args []byte) []byte {
	var buf bytes.Buffer
	writeUint32 := func(v uint32) {
		var w [4]byte
		binary.BigEndian.PutUint32(w[:], v)
		buf.Write(w[:])
	}
	writeAuth := func(a OpaqueAuth) {
		writeUint32(a.Flavor)
		writeUint32(uint32(len(a.Body)))
		buf.Write(a.Body)
		if pad := (4 - len(a.Body)%4) % 4; pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}

	writeUint32(xid)
	writeUint32(msgType)
	writeUint32(rpcVers)
	writeUint32(prog)
	writeUint32(vers)
	writeUint32(proc)
	writeAuth(cred)
	writeAuth(verf)
	buf.Write(args)
	return buf.Bytes()
}

func authNone() OpaqueAuth {
	return OpaqueAuth{Flavor: AuthNone, Body: []byte{}}
}

// readWords splits a reply into big-endian words for assertions.
func readWords(t *testing.T, data []byte, n int) []uint32 {
	t.Helper()
	require.GreaterOrEqual(t, len(data), n*4)
	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(data[i*4:])
	}
	return words
}

// ============================================================================
// Call Parsing
// ============================================================================

func TestReadCall(t *testing.T) {
	t.Run("ParsesHeaderAndArguments", func(t *testing.T) {
		args := []byte{0xDE, 0xAD, 0xBE, 0xEF}
		datagram := buildCall(0x12345678, MsgCall, Version, ProgramNFS, 2, 4, authNone(), authNone(), args)

		call, rest, err := ReadCall(datagram)
		require.NoError(t, err)

		assert.Equal(t, uint32(0x12345678), call.XID)
		assert.Equal(t, uint32(MsgCall), call.MsgType)
		assert.Equal(t, uint32(Version), call.RPCVersion)
		assert.Equal(t, uint32(ProgramNFS), call.Program)
		assert.Equal(t, uint32(2), call.Version)
		assert.Equal(t, uint32(4), call.Procedure)
		assert.Equal(t, args, rest)
	})

	t.Run("PassesAuthUnixCredentialsThrough", func(t *testing.T) {
		cred := OpaqueAuth{Flavor: AuthUnix, Body: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
		datagram := buildCall(7, MsgCall, Version, ProgramPortmap, 2, 0, cred, authNone(), nil)

		call, rest, err := ReadCall(datagram)
		require.NoError(t, err)

		assert.Equal(t, uint32(AuthUnix), call.Cred.Flavor)
		assert.Equal(t, cred.Body, call.Cred.Body)
		assert.Empty(t, rest)
	})

	t.Run("EmptyArgumentsYieldEmptyRest", func(t *testing.T) {
		datagram := buildCall(1, MsgCall, Version, ProgramNFS, 2, 0, authNone(), authNone(), nil)

		_, rest, err := ReadCall(datagram)
		require.NoError(t, err)
		assert.Empty(t, rest)
	})

	t.Run("RejectsReplyMessage", func(t *testing.T) {
		datagram := buildCall(1, MsgReply, Version, ProgramNFS, 2, 0, authNone(), authNone(), nil)

		_, _, err := ReadCall(datagram)
		assert.Error(t, err)
	})

	t.Run("RejectsTruncatedHeader", func(t *testing.T) {
		datagram := buildCall(1, MsgCall, Version, ProgramNFS, 2, 0, authNone(), authNone(), nil)

		_, _, err := ReadCall(datagram[:10])
		assert.Error(t, err)
	})

	t.Run("RejectsOversizedAuthBody", func(t *testing.T) {
		cred := OpaqueAuth{Flavor: AuthUnix, Body: make([]byte, maxAuthBody+4)}
		datagram := buildCall(1, MsgCall, Version, ProgramNFS, 2, 0, cred, authNone(), nil)

		_, _, err := ReadCall(datagram)
		assert.Error(t, err)
	})

	t.Run("AcceptsAuthBodyAtLimit", func(t *testing.T) {
		cred := OpaqueAuth{Flavor: AuthUnix, Body: make([]byte, maxAuthBody)}
		datagram := buildCall(1, MsgCall, Version, ProgramNFS, 2, 0, cred, authNone(), nil)

		call, _, err := ReadCall(datagram)
		require.NoError(t, err)
		assert.Len(t, call.Cred.Body, maxAuthBody)
	})
}

// ============================================================================
// Reply Encoding
// ============================================================================

func TestAcceptedReply(t *testing.T) {
	t.Run("WrapsResultsInSuccessEnvelope", func(t *testing.T) {
		results := []byte{0, 0, 0, 0}

		reply, err := AcceptedReply(0xCAFE, results)
		require.NoError(t, err)

		// xid, REPLY, MSG_ACCEPTED, verf flavor, verf length, SUCCESS
		words := readWords(t, reply, 6)
		assert.Equal(t, uint32(0xCAFE), words[0])
		assert.Equal(t, uint32(MsgReply), words[1])
		assert.Equal(t, uint32(MsgAccepted), words[2])
		assert.Equal(t, uint32(AuthNone), words[3])
		assert.Equal(t, uint32(0), words[4])
		assert.Equal(t, uint32(AcceptSuccess), words[5])
		assert.Equal(t, results, reply[24:])
	})

	t.Run("NoRecordMarkingHeader", func(t *testing.T) {
		reply, err := AcceptedReply(0x11223344, nil)
		require.NoError(t, err)

		// The datagram starts straight at the XID.
		assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, reply[:4])
	})
}

func TestErrorReplies(t *testing.T) {
	t.Run("ProgUnavail", func(t *testing.T) {
		reply, err := ProgUnavailReply(9)
		require.NoError(t, err)

		words := readWords(t, reply, 6)
		assert.Equal(t, uint32(MsgAccepted), words[2])
		assert.Equal(t, uint32(AcceptProgUnavail), words[5])
		assert.Len(t, reply, 24)
	})

	t.Run("ProcUnavail", func(t *testing.T) {
		reply, err := ProcUnavailReply(9)
		require.NoError(t, err)

		words := readWords(t, reply, 6)
		assert.Equal(t, uint32(AcceptProcUnavail), words[5])
	})

	t.Run("GarbageArgs", func(t *testing.T) {
		reply, err := GarbageArgsReply(9)
		require.NoError(t, err)

		words := readWords(t, reply, 6)
		assert.Equal(t, uint32(AcceptGarbageArgs), words[5])
	})

	t.Run("ProgMismatchCarriesVersionRange", func(t *testing.T) {
		reply, err := ProgMismatchReply(9, 2, 2)
		require.NoError(t, err)

		words := readWords(t, reply, 8)
		assert.Equal(t, uint32(MsgAccepted), words[2])
		assert.Equal(t, uint32(AcceptProgMismatch), words[5])
		assert.Equal(t, uint32(2), words[6])
		assert.Equal(t, uint32(2), words[7])
	})

	t.Run("RPCMismatchIsDeniedWithoutVerifier", func(t *testing.T) {
		reply, err := RPCMismatchReply(9)
		require.NoError(t, err)

		// xid, REPLY, MSG_DENIED, RPC_MISMATCH, low, high
		words := readWords(t, reply, 6)
		assert.Equal(t, uint32(9), words[0])
		assert.Equal(t, uint32(MsgReply), words[1])
		assert.Equal(t, uint32(MsgDenied), words[2])
		assert.Equal(t, uint32(RejectRPCMismatch), words[3])
		assert.Equal(t, uint32(Version), words[4])
		assert.Equal(t, uint32(Version), words[5])
		assert.Len(t, reply, 24)
	})
}
