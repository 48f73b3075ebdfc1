package xdr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ============================================================================
// XDR Decoding Helpers - Wire Format → Go Values
// ============================================================================
//
// All integers are big-endian and 4-byte aligned per RFC 4506. Variable
// length data carries a uint32 length prefix and is zero-padded to the next
// 4-byte boundary; fixed-length opaque data has no prefix.

// DecodeUint32 reads one big-endian 32-bit word.
func DecodeUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: read uint32: %v", ErrTruncated, err)
	}
	return v, nil
}

// DecodeBool reads an XDR boolean. Anything other than 0 or 1 is a
// discriminant error, not a truthy value.
func DecodeBool(r io.Reader) (bool, error) {
	v, err := DecodeUint32(r)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: boolean value %d", ErrBadDiscriminant, v)
	}
}

// DecodeEnum reads a uint32 and checks it against the set of valid values.
func DecodeEnum(r io.Reader, valid ...uint32) (uint32, error) {
	v, err := DecodeUint32(r)
	if err != nil {
		return 0, err
	}
	for _, ok := range valid {
		if v == ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: enum value %d", ErrBadDiscriminant, v)
}

// DecodeFixedOpaque reads exactly size bytes plus alignment padding.
//
// Per RFC 4506 Section 4.9, fixed-length opaque data has no length prefix;
// only the payload and its padding appear on the wire.
func DecodeFixedOpaque(r io.Reader, size int) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: read fixed opaque[%d]: %v", ErrTruncated, size, err)
	}
	if err := skipPadding(r, uint32(size)); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeOpaque reads bounded variable-length opaque data.
//
// Per RFC 4506 Section 4.10:
// Format: [length:uint32][data:length bytes][padding:0-3 bytes]
//
// A declared length above max fails with ErrOverflow before any payload
// bytes are consumed.
func DecodeOpaque(r io.Reader, max uint32) ([]byte, error) {
	length, err := DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	if length > max {
		return nil, fmt.Errorf("%w: opaque length %d > %d", ErrOverflow, length, max)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: read opaque data: %v", ErrTruncated, err)
	}
	if err := skipPadding(r, length); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeListMark reads the presence flag in front of a linked-list entry.
//
// The wire format for entry sequences is a recursive optional-tail record:
// each entry is preceded by 1, and the list ends with a lone 0. A flag value
// other than 0/1 is a malformed list, reported as a discriminant error.
func DecodeListMark(r io.Reader) (more bool, err error) {
	return DecodeBool(r)
}

// IsDecodeError reports whether err is any of this package's decode
// failures. Useful at the datagram boundary where every decode failure
// means "drop, no reply".
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrBadDiscriminant) ||
		errors.Is(err, ErrOverflow)
}

func skipPadding(r io.Reader, length uint32) error {
	padding := (4 - (length % 4)) % 4
	if padding == 0 {
		return nil
	}
	var pad [4]byte
	if _, err := io.ReadFull(r, pad[:padding]); err != nil {
		return fmt.Errorf("%w: read padding: %v", ErrTruncated, err)
	}
	return nil
}
