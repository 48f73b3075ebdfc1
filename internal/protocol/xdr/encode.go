package xdr

import (
	"bytes"
	"encoding/binary"
)

// ============================================================================
// XDR Encoding Helpers - Go Values → Wire Format
// ============================================================================
//
// Encoding into a bytes.Buffer cannot fail, so unlike the decode side these
// helpers return nothing. Handlers build replies with a buffer and hand the
// bytes to the RPC layer.

// EncodeUint32 writes one big-endian 32-bit word.
func EncodeUint32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

// EncodeBool writes an XDR boolean (0 or 1).
func EncodeBool(buf *bytes.Buffer, v bool) {
	if v {
		EncodeUint32(buf, 1)
		return
	}
	EncodeUint32(buf, 0)
}

// EncodeFixedOpaque writes data without a length prefix, padded to a 4-byte
// boundary.
func EncodeFixedOpaque(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
	writePadding(buf, uint32(len(data)))
}

// EncodeOpaque writes variable-length opaque data: length prefix, payload,
// zero padding to a 4-byte boundary.
func EncodeOpaque(buf *bytes.Buffer, data []byte) {
	EncodeUint32(buf, uint32(len(data)))
	buf.Write(data)
	writePadding(buf, uint32(len(data)))
}

// EncodeListMark writes the presence flag of a linked-list entry: 1 before
// each entry, a final 0 after the last.
func EncodeListMark(buf *bytes.Buffer, more bool) {
	EncodeBool(buf, more)
}

// OpaqueSize returns the encoded size of variable-length opaque data,
// including the length prefix and alignment padding. Handlers that must
// bound a reply's encoded size (READDIR) use this before emitting.
func OpaqueSize(n int) int {
	return 4 + n + int((4-(uint32(n)%4))%4)
}

func writePadding(buf *bytes.Buffer, length uint32) {
	padding := (4 - (length % 4)) % 4
	for range padding {
		buf.WriteByte(0)
	}
}
