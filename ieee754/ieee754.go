// Package ieee754 encodes and decodes the raw little-endian IEEE-754 bytes
// that f32.const/f64.const operands and global initializers use. Grounded
// on tetratelabs/wazero's wasm/ieee754 package, extended with the Encode
// side the decoder-only teacher package didn't need.
package ieee754

import (
	"encoding/binary"
	"io"
	"math"
)

// EncodeFloat32 returns the 4-byte little-endian IEEE-754 encoding of v.
func EncodeFloat32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// EncodeFloat64 returns the 8-byte little-endian IEEE-754 encoding of v.
func EncodeFloat64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

// DecodeFloat32 reads a 4-byte little-endian IEEE-754 value.
func DecodeFloat32(r io.Reader) (float32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

// DecodeFloat64 reads an 8-byte little-endian IEEE-754 value.
func DecodeFloat64(r io.Reader) (float64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

// IsNegativeZero reports whether v is the float64 negative zero, used by
// the instruction emitter's fsub(-0.0, x) -> f64.neg peephole (spec.md §4.5).
func IsNegativeZero(v float64) bool {
	return v == 0 && math.Signbit(v)
}

// IsNegativeZero32 is IsNegativeZero for float32.
func IsNegativeZero32(v float32) bool {
	return v == 0 && math.Signbit(float64(v))
}
