// Package names converts between the wire's UTF-16LE name encoding and
// native Go strings.
//
// The DJ hardware this server targets speaks RFC 1094 NFS with one
// deviation: filenames and pathnames travel as UTF-16LE byte strings
// inside the protocol's opaque name fields instead of ASCII. Every name
// crossing the wire goes through this package.
package names

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

const (
	// MaxNameUnits is the component limit in UTF-16 code units (MAXNAMLEN).
	MaxNameUnits = 255

	// MaxPathBytes is the pathname limit in encoded bytes (MAXPATHLEN).
	MaxPathBytes = 1024
)

var (
	// ErrNameTooLong reports a component above MaxNameUnits. Handlers map
	// it to the protocol's name-too-long status; names are never truncated
	// silently.
	ErrNameTooLong = errors.New("names: component exceeds 255 UTF-16 units")

	// ErrPathTooLong reports a pathname above MaxPathBytes.
	ErrPathTooLong = errors.New("names: path exceeds 1024 bytes")

	// ErrMalformed reports UTF-16LE that cannot be decoded: an odd byte
	// count or an unpaired surrogate. The base protocol has no status for
	// this, so handlers surface the generic I/O error.
	ErrMalformed = errors.New("names: malformed UTF-16LE")
)

// Encode converts one native name component to UTF-16LE bytes, enforcing
// the component limit.
func Encode(name string) ([]byte, error) {
	units := utf16.Encode([]rune(name))
	if len(units) > MaxNameUnits {
		return nil, fmt.Errorf("%w: %d units", ErrNameTooLong, len(units))
	}
	return unitsToBytes(units), nil
}

// EncodePath converts a native pathname to UTF-16LE bytes, enforcing the
// pathname limit.
func EncodePath(path string) ([]byte, error) {
	units := utf16.Encode([]rune(path))
	buf := unitsToBytes(units)
	if len(buf) > MaxPathBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrPathTooLong, len(buf))
	}
	return buf, nil
}

// Decode converts UTF-16LE bytes from the wire to one native name
// component.
func Decode(data []byte) (string, error) {
	units, err := bytesToUnits(data)
	if err != nil {
		return "", err
	}
	if len(units) > MaxNameUnits {
		return "", fmt.Errorf("%w: %d units", ErrNameTooLong, len(units))
	}
	return string(utf16.Decode(units)), nil
}

// DecodePath converts UTF-16LE bytes from the wire to a native pathname.
func DecodePath(data []byte) (string, error) {
	if len(data) > MaxPathBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrPathTooLong, len(data))
	}
	units, err := bytesToUnits(data)
	if err != nil {
		return "", err
	}
	return string(utf16.Decode(units)), nil
}

func unitsToBytes(units []uint16) []byte {
	buf := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2*i:], u)
	}
	return buf
}

// bytesToUnits parses UTF-16LE and rejects what utf16.Decode would paper
// over: stdlib decoding substitutes U+FFFD for unpaired surrogates, which
// would silently rename a client's file, so surrogate pairing is validated
// here first.
func bytesToUnits(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrMalformed, len(data))
	}

	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[2*i:])
	}

	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF: // high surrogate, needs a low one
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
				return nil, fmt.Errorf("%w: unpaired high surrogate at unit %d", ErrMalformed, i)
			}
			i++
		case u >= 0xDC00 && u <= 0xDFFF: // low surrogate with no high one
			return nil, fmt.Errorf("%w: unpaired low surrogate at unit %d", ErrMalformed, i)
		}
	}

	return units, nil
}
