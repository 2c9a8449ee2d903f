package ieee754

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat32Roundtrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 3.14159, -0.0} {
		enc := EncodeFloat32(v)
		require.Len(t, enc, 4)
		got, err := DecodeFloat32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestFloat64Roundtrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 2.71828182845, -0.0} {
		enc := EncodeFloat64(v)
		require.Len(t, enc, 8)
		got, err := DecodeFloat64(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestIsNegativeZero(t *testing.T) {
	require.True(t, IsNegativeZero(math.Copysign(0, -1)))
	require.False(t, IsNegativeZero(1))
	require.True(t, IsNegativeZero32(float32(math.Copysign(0, -1))))
}
