package leb128

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeUint32Roundtrip(t *testing.T) {
	cases := []uint32{0, 1, 63, 64, 127, 128, 300, 1 << 20, 1<<32 - 1}
	for _, v := range cases {
		enc := EncodeUint32(v)
		got, n, err := DecodeUint32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestEncodeDecodeInt32Roundtrip(t *testing.T) {
	cases := []int32{0, 1, -1, 63, -64, 64, -65, 1 << 20, -(1 << 20), -2147483648, 2147483647}
	for _, v := range cases {
		enc := EncodeInt32(v)
		got, n, err := DecodeInt32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestEncodeInt32KnownBytes(t *testing.T) {
	// 0 encodes to a single zero byte.
	require.Equal(t, []byte{0x00}, EncodeInt32(0))
	// -1 is the all-ones byte with the sign bit set, single byte.
	require.Equal(t, []byte{0x7f}, EncodeInt32(-1))
	// 624485 is the canonical unsigned LEB128 example from the DWARF spec.
	require.Equal(t, []byte{0xe5, 0x8e, 0x26}, EncodeUint32(624485))
}

func TestLenMatchesEncodedLength(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 1 << 20, 1<<32 - 1} {
		require.Equal(t, len(EncodeUint32(v)), Len(v))
	}
}

func TestDecodeUint32RejectsOverlongEncoding(t *testing.T) {
	overlong := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	_, _, err := DecodeUint32(bytes.NewReader(overlong))
	require.Error(t, err)
}
