// Package wasmtype holds the Wasm 1.0 vocabulary the emitter targets: value
// types, opcodes, section ids, limits and function types. Grounded on
// tetratelabs/wazero's wasm/value.go, wasm/type.go, wasm/section.go and
// wasm/optcode.go, generalized from a decode-only vocabulary to one the
// encoder and the text writer share.
package wasmtype

// ValueKind is a Wasm 1.0 value type: i32, i64, f32, f64, or the anyref
// extension this emitter uses to represent non-raw pointers (spec.md §3).
type ValueKind byte

const (
	// Void is not a Wasm value type; it marks an Instruction with no
	// result (spec.md §4.5, e.g. OpStore, OpRetVoid).
	Void ValueKind = 0x00

	I32    ValueKind = 0x7f
	I64    ValueKind = 0x7e
	F32    ValueKind = 0x7d
	F64    ValueKind = 0x7c
	AnyRef ValueKind = 0x6f
)

func (k ValueKind) String() string {
	switch k {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case AnyRef:
		return "anyref"
	default:
		return "invalid"
	}
}

// LocalGroupOrder is the fixed order local declarations are grouped in, so
// that the locals declaration compresses into four run-length groups
// (spec.md §3, RegisterID).
var LocalGroupOrder = [4]ValueKind{I32, F64, F32, AnyRef}

// IsNumeric reports whether k is an i32/i64/f32/f64 (i.e. not anyref).
func (k ValueKind) IsNumeric() bool {
	return k == I32 || k == I64 || k == F32 || k == F64
}
