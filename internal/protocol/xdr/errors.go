package xdr

import "errors"

// Decode failures are split into three classes so callers can tell a short
// datagram from a structurally bad one. All errors returned by this package
// wrap one of these sentinels and can be tested with errors.Is.
var (
	// ErrTruncated means the input ended before the declared structure did.
	ErrTruncated = errors.New("xdr: truncated input")

	// ErrBadDiscriminant means a union or boolean carried a value outside
	// its enum. Per RFC 4506 an unknown discriminant is a hard error, never
	// skipped.
	ErrBadDiscriminant = errors.New("xdr: unknown union discriminant")

	// ErrOverflow means a variable-length item declared a length above its
	// protocol bound.
	ErrOverflow = errors.New("xdr: declared length exceeds bound")
)
