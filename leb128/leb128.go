// Package leb128 implements the variable-length integer encodings used by
// the WebAssembly binary format: unsigned LEB128 and signed LEB128
// (SLEB128). Both directions are provided because the emitter's round-trip
// validator (internal/validate) decodes the bytes this package's encoders
// produce.
package leb128

import (
	"io"

	"golang.org/x/xerrors"
)

// EncodeUint32 encodes v as unsigned LEB128, 7 bits per byte, low-order
// first, with the continuation bit (0x80) set on every byte but the last.
func EncodeUint32(v uint32) []byte {
	return appendUint64(nil, uint64(v))
}

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	return appendUint64(nil, v)
}

// AppendUint32 appends the unsigned LEB128 encoding of v to dst.
func AppendUint32(dst []byte, v uint32) []byte {
	return appendUint64(dst, uint64(v))
}

// AppendUint64 appends the unsigned LEB128 encoding of v to dst.
func AppendUint64(dst []byte, v uint64) []byte {
	return appendUint64(dst, v)
}

func appendUint64(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
		} else {
			dst = append(dst, b)
			return dst
		}
	}
}

// EncodeInt32 encodes v as signed LEB128 (SLEB128).
func EncodeInt32(v int32) []byte {
	return appendInt64(nil, int64(v))
}

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte {
	return appendInt64(nil, v)
}

// AppendInt32 appends the SLEB128 encoding of v to dst.
func AppendInt32(dst []byte, v int32) []byte {
	return appendInt64(dst, int64(v))
}

// AppendInt64 appends the SLEB128 encoding of v to dst.
func AppendInt64(dst []byte, v int64) []byte {
	return appendInt64(dst, v)
}

// appendInt64 stops when the remaining sign-extended value is fully
// represented by the bits already written: value == 0 with the sign bit of
// the last byte clear, or value == -1 with the sign bit set. See spec.md
// §4.1.
func appendInt64(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			dst = append(dst, b)
			return dst
		}
		dst = append(dst, b|0x80)
	}
}

// Reader is the minimal interface the decoders need: a byte-at-a-time
// reader. Grounded on gate-computer-wag/binary.Reader, which exists for the
// same reason cited there (avoiding an unnecessary interface-to-interface
// conversion on the hot decode path).
type Reader interface {
	io.Reader
	io.ByteScanner
}

// DecodeUint32 decodes an unsigned LEB128 value, rejecting encodings wider
// than 5 bytes or whose trailing bits overflow 32 bits.
func DecodeUint32(r Reader) (uint32, int, error) {
	v, n, err := decodeUint(r, 5)
	if err != nil {
		return 0, n, err
	}
	if v>>32 != 0 {
		return 0, n, xerrors.New("leb128: unsigned value overflows 32 bits")
	}
	return uint32(v), n, nil
}

// DecodeUint64 decodes an unsigned LEB128 value of up to 10 bytes.
func DecodeUint64(r Reader) (uint64, int, error) {
	return decodeUint(r, 10)
}

func decodeUint(r Reader, maxBytes int) (uint64, int, error) {
	var x uint64
	var n int
	var shift uint
	for n < maxBytes {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, xerrors.Errorf("leb128: read byte %d: %w", n, err)
		}
		n++
		x |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			return x, n, nil
		}
	}
	return 0, n, xerrors.Errorf("leb128: unsigned encoding exceeds %d bytes", maxBytes)
}

// DecodeInt32 decodes a signed LEB128 (SLEB128) value of up to 5 bytes.
func DecodeInt32(r Reader) (int32, int, error) {
	v, n, err := decodeInt(r, 5, 32)
	if err != nil {
		return 0, n, err
	}
	return int32(v), n, nil
}

// DecodeInt64 decodes a signed LEB128 value of up to 10 bytes.
func DecodeInt64(r Reader) (int64, int, error) {
	return decodeInt(r, 10, 64)
}

func decodeInt(r Reader, maxBytes, bits int) (int64, int, error) {
	var x int64
	var n int
	var shift uint
	for n < maxBytes {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, xerrors.Errorf("leb128: read byte %d: %w", n, err)
		}
		n++
		x |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if int(shift) < bits && b&0x40 != 0 {
				x |= -1 << shift
			}
			return x, n, nil
		}
	}
	return 0, n, xerrors.Errorf("leb128: signed encoding exceeds %d bytes", maxBytes)
}

// Len returns the number of bytes EncodeUint32 would produce for v, without
// allocating. The globalization planner's cost model (spec.md §4.11) calls
// this on candidate global ids.
func Len(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// LenUint64 is Len for a 64-bit value.
func LenUint64(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
