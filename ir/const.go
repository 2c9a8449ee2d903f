package ir

import (
	"math"

	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// Constant is an immediate value or a symbolic reference materialized as
// one (spec.md §4.3, §3 GlobalConstant).
type Constant struct {
	Kind ValueKind

	// Scalar payload, meaningful per Kind.
	I32 int32
	I64 int64
	F32 float32
	F64 float64

	// IsNullPointer marks an anyref/i32 null pointer constant; lowers to
	// `i32.const 0` unconditionally (spec.md §4.3).
	IsNullPointer bool

	// Func is non-nil for a function-pointer constant: addr is the
	// linear-memory function-table index, or 0 if Func has no address
	// taken (spec.md §4.3, §7 "Function pointer to a never-address-taken
	// function").
	Func *Function

	// Expr is non-nil for a recursively-lowered constant expression
	// (spec.md §4.3 ConstantExpr).
	Expr *ConstantExpr

	// Global is non-nil when this constant denotes the address of a
	// module-level global variable; the ConstantEmitter lowers it to an
	// i32.const of that address.
	Global *GlobalVar

	// fingerprint is filled in by the globalization planner the first
	// time this constant is scanned, and consulted on every subsequent
	// use (spec.md §3 GlobalConstant, §4.3 "whose fingerprint is in
	// globalizedConstants").
	fingerprint string
}

// Fingerprint returns a stable key identifying constants with the same
// kind and bit pattern, used by the globalization planner's useCount map.
func (c *Constant) Fingerprint() string {
	if c.fingerprint != "" {
		return c.fingerprint
	}
	c.fingerprint = c.computeFingerprint()
	return c.fingerprint
}

func (c *Constant) computeFingerprint() string {
	switch c.Kind {
	case wasmtype.I32:
		return "i32:" + itoa64(int64(c.I32))
	case wasmtype.I64:
		return "i64:" + itoa64(c.I64)
	case wasmtype.F32:
		return "f32:" + itoa64(int64(math.Float32bits(c.F32)))
	case wasmtype.F64:
		return "f64:" + itoa64(int64(math.Float64bits(c.F64)))
	default:
		return "?"
	}
}

// ConstantExprOp is the opcode vocabulary a ConstantExpr may use; a strict
// subset of Opcode, per spec.md §4.3 ("add/sub/and/or, GEP ..., bit/int-ptr
// casts are no-ops, ICmp, Select").
type ConstantExprOp int

const (
	ConstExprAdd ConstantExprOp = iota
	ConstExprSub
	ConstExprAnd
	ConstExprOr
	ConstExprGEP
	ConstExprBitCast
	ConstExprICmp
	ConstExprSelect
)

// ConstantExpr is a constant folded at compile time from other constants,
// recursively lowered to explicit opcodes rather than a literal
// (spec.md §4.3).
type ConstantExpr struct {
	Op        ConstantExprOp
	Operands  []*Constant
	Predicate ICmpPredicate // meaningful when Op == ConstExprICmp
	GEP       *GEPChain     // meaningful when Op == ConstExprGEP
	Kind      ValueKind

	// MaterializeAsBytes marks a constant pointer used for addressing (e.g.
	// as a data-segment initializer) rather than for comparison or
	// arithmetic at a use site. The flag is carried on the expression only:
	// the ConstantEmitter (internal/emit/constant.go) does not read it and
	// always lowers the expression to opcodes; there is no raw-bytes path.
	MaterializeAsBytes bool
}

func itoa64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	var buf [20]byte
	i := len(buf)
	u := uint64(v)
	if neg {
		u = uint64(-v)
	}
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
