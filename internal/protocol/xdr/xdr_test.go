package xdr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Integer and Boolean Tests
// ============================================================================

func TestDecodeUint32(t *testing.T) {
	t.Run("DecodesBigEndian", func(t *testing.T) {
		v, err := DecodeUint32(bytes.NewReader([]byte{0x12, 0x34, 0x56, 0x78}))
		require.NoError(t, err)
		assert.Equal(t, uint32(0x12345678), v)
	})

	t.Run("TruncatedInput", func(t *testing.T) {
		_, err := DecodeUint32(bytes.NewReader([]byte{0x12, 0x34}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		_, err := DecodeUint32(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestDecodeBool(t *testing.T) {
	t.Run("False", func(t *testing.T) {
		v, err := DecodeBool(bytes.NewReader([]byte{0, 0, 0, 0}))
		require.NoError(t, err)
		assert.False(t, v)
	})

	t.Run("True", func(t *testing.T) {
		v, err := DecodeBool(bytes.NewReader([]byte{0, 0, 0, 1}))
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("RejectsOtherValues", func(t *testing.T) {
		_, err := DecodeBool(bytes.NewReader([]byte{0, 0, 0, 2}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadDiscriminant)
	})
}

func TestDecodeEnum(t *testing.T) {
	t.Run("AcceptsListedValue", func(t *testing.T) {
		v, err := DecodeEnum(bytes.NewReader([]byte{0, 0, 0, 5}), 0, 5, 17)
		require.NoError(t, err)
		assert.Equal(t, uint32(5), v)
	})

	t.Run("RejectsUnlistedValue", func(t *testing.T) {
		_, err := DecodeEnum(bytes.NewReader([]byte{0, 0, 0, 9}), 0, 5, 17)
		assert.ErrorIs(t, err, ErrBadDiscriminant)
	})
}

// ============================================================================
// Opaque Tests
// ============================================================================

func TestFixedOpaque(t *testing.T) {
	t.Run("RoundTripAligned", func(t *testing.T) {
		var buf bytes.Buffer
		EncodeFixedOpaque(&buf, []byte{1, 2, 3, 4, 5, 6, 7, 8})
		assert.Equal(t, 8, buf.Len(), "aligned data needs no padding")

		got, err := DecodeFixedOpaque(bytes.NewReader(buf.Bytes()), 8)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)
	})

	t.Run("RoundTripUnaligned", func(t *testing.T) {
		var buf bytes.Buffer
		EncodeFixedOpaque(&buf, []byte{1, 2, 3})
		assert.Equal(t, 4, buf.Len(), "3 bytes pad to 4")

		got, err := DecodeFixedOpaque(bytes.NewReader(buf.Bytes()), 3)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, got)
	})

	t.Run("NoLengthPrefix", func(t *testing.T) {
		var buf bytes.Buffer
		EncodeFixedOpaque(&buf, []byte{0xAA, 0xBB, 0xCC, 0xDD})
		assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, buf.Bytes())
	})

	t.Run("TruncatedPayload", func(t *testing.T) {
		_, err := DecodeFixedOpaque(bytes.NewReader([]byte{1, 2}), 4)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("TruncatedPadding", func(t *testing.T) {
		_, err := DecodeFixedOpaque(bytes.NewReader([]byte{1, 2, 3}), 3)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestOpaque(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, size := range []int{0, 1, 3, 4, 5, 255} {
			var buf bytes.Buffer
			data := bytes.Repeat([]byte{0x5A}, size)
			EncodeOpaque(&buf, data)

			assert.Equal(t, OpaqueSize(size), buf.Len())

			got, err := DecodeOpaque(bytes.NewReader(buf.Bytes()), 255)
			require.NoError(t, err, "size %d", size)
			assert.Equal(t, data, got)
		}
	})

	t.Run("LengthPrefixAndPadding", func(t *testing.T) {
		var buf bytes.Buffer
		EncodeOpaque(&buf, []byte{0xFF})
		assert.Equal(t, []byte{0, 0, 0, 1, 0xFF, 0, 0, 0}, buf.Bytes())
	})

	t.Run("OverflowBeforePayload", func(t *testing.T) {
		// Declared length 300 with limit 255: must fail on the prefix
		// alone, without needing payload bytes present.
		_, err := DecodeOpaque(bytes.NewReader([]byte{0, 0, 1, 44}), 255)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("ExactLimitAccepted", func(t *testing.T) {
		var buf bytes.Buffer
		data := bytes.Repeat([]byte{1}, 16)
		EncodeOpaque(&buf, data)

		got, err := DecodeOpaque(bytes.NewReader(buf.Bytes()), 16)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("TruncatedPayload", func(t *testing.T) {
		_, err := DecodeOpaque(bytes.NewReader([]byte{0, 0, 0, 8, 1, 2}), 64)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

// ============================================================================
// List Mark Tests
// ============================================================================

func TestListMark(t *testing.T) {
	t.Run("EncodeDecode", func(t *testing.T) {
		var buf bytes.Buffer
		EncodeListMark(&buf, true)
		EncodeListMark(&buf, false)

		r := bytes.NewReader(buf.Bytes())
		more, err := DecodeListMark(r)
		require.NoError(t, err)
		assert.True(t, more)

		more, err = DecodeListMark(r)
		require.NoError(t, err)
		assert.False(t, more)
	})

	t.Run("BadMark", func(t *testing.T) {
		_, err := DecodeListMark(bytes.NewReader([]byte{0, 0, 0, 7}))
		assert.ErrorIs(t, err, ErrBadDiscriminant)
	})
}

// ============================================================================
// Error Classification
// ============================================================================

func TestIsDecodeError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"Truncated", ErrTruncated, true},
		{"BadDiscriminant", ErrBadDiscriminant, true},
		{"Overflow", ErrOverflow, true},
		{"Nil", nil, false},
		{"Other", assert.AnError, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDecodeError(tc.err))
		})
	}
}

func TestOpaqueSize(t *testing.T) {
	assert.Equal(t, 4, OpaqueSize(0))
	assert.Equal(t, 8, OpaqueSize(1))
	assert.Equal(t, 8, OpaqueSize(4))
	assert.Equal(t, 12, OpaqueSize(5))
}
