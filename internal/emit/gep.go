package emit

import (
	"math/bits"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// GEPEmitter lowers a flattened GEP chain to an address computation on the
// operand stack (spec.md §4.4). It implements ir.GEPListener so
// ir.CompileGEP can drive it directly.
//
// The constant part is held back rather than emitted immediately: a
// following load/store can absorb a non-negative constPart into its own
// memarg offset immediate instead of an explicit add, saving an
// instruction (spec.md §4.4). Callers that don't immediately consume the
// address with a load/store must call Finish to flush it.
type GEPEmitter struct {
	buf   *code.Buffer
	stack *OperandStack

	terms        int
	constPending bool
	constK       int64
}

// NewGEPEmitter returns a GEPEmitter bound to one function's buffer and
// operand stack.
func NewGEPEmitter(buf *code.Buffer, stack *OperandStack) *GEPEmitter {
	return &GEPEmitter{buf: buf, stack: stack}
}

// AddTerm emits one scaled addend: value, optionally shifted or multiplied
// by its size, then combined with whatever is already on the stack via
// add or sub (spec.md §4.4).
func (g *GEPEmitter) AddTerm(term ir.GEPTerm) {
	g.stack.Push(term.Value)
	g.scaleTop(term.Size)
	switch {
	case g.terms > 0 && term.Subtract:
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Sub})
	case g.terms > 0:
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Add})
	case term.Subtract:
		g.swapSub()
	}
	g.terms++
}

// swapSub negates the value on top of the stack (first term is a lone
// subtraction, so there's nothing to subtract it from yet).
func (g *GEPEmitter) swapSub() {
	g.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: -1})
	g.buf.Emit(code.Instr{Op: wasmtype.OpI32Mul})
}

// scaleTop multiplies the value on top of the stack by size, choosing a
// shift for power-of-two sizes and leaving size-1 terms untouched
// (spec.md §4.4).
func (g *GEPEmitter) scaleTop(size uint32) {
	switch {
	case size == 1:
		return
	case size != 0 && size&(size-1) == 0:
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(bits.TrailingZeros32(size))})
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Shl})
	default:
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(size)})
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Mul})
	}
}

// AddConst records chain's constant part without emitting yet, so a
// following load/store can still fold it into a memarg offset instead
// (spec.md §4.4).
func (g *GEPEmitter) AddConst(v int64) {
	g.constK = v
	g.constPending = true
}

// FoldableOffset returns the pending non-negative constant part a
// load/store can absorb into its own offset immediate, and whether one is
// available. The caller must call ConsumeFoldableOffset once it actually
// uses it.
func (g *GEPEmitter) FoldableOffset() (uint32, bool) {
	if g.constPending && g.constK >= 0 {
		return uint32(g.constK), true
	}
	return 0, false
}

// ConsumeFoldableOffset marks the pending constant part as claimed by a
// memarg offset, so Finish no longer emits it.
func (g *GEPEmitter) ConsumeFoldableOffset() {
	g.constPending = false
}

// Finish flushes any constant part nobody claimed via
// ConsumeFoldableOffset, emitting it as an explicit i32.const plus add (or
// sub, for a negative part that couldn't be folded into an offset
// immediate) — or, if this chain had no preceding terms at all, as the
// lone value on the stack (spec.md §4.4).
func (g *GEPEmitter) Finish() {
	if !g.constPending {
		return
	}
	g.constPending = false
	if g.terms == 0 {
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(g.constK)})
		g.terms++
		return
	}
	if g.constK < 0 {
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(-g.constK)})
		g.buf.Emit(code.Instr{Op: wasmtype.OpI32Sub})
		return
	}
	g.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(g.constK)})
	g.buf.Emit(code.Instr{Op: wasmtype.OpI32Add})
}

// LowerGEP flattens and emits chain onto the operand stack, returning the
// base pointer value that still needs pushing first (if any — non-nil
// only when CompileGEP left an unfolded base; the emitter's Terms already
// include it as a (value, 1) addend otherwise) and the GEPEmitter so the
// caller can inspect FoldableOffset before deciding whether to call
// Finish (spec.md §6's compileGEP(value, listener) collaborator).
func LowerGEP(buf *code.Buffer, stack *OperandStack, chain *ir.GEPChain) (base *ir.Value, g *GEPEmitter) {
	g = NewGEPEmitter(buf, stack)
	base = ir.CompileGEP(chain, g)
	return base, g
}
