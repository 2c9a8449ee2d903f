package emit

import (
	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// LocalIndexer is the localMap[regId] -> localIndex collaborator
// (spec.md §6).
type LocalIndexer func(reg ir.RegisterID) uint32

// InlineEmitter recursively emits an inlineable producer's defining
// instruction directly onto the operand stack (spec.md §4.6). Supplied by
// the InstructionEmitter; kept as a function value here instead of an
// import so OperandStack doesn't depend on the (much larger) instruction
// emitter.
type InlineEmitter func(instr *ir.Instruction)

// OperandStack implements spec.md §4.6's scheduling rule: at the point an
// instruction begins emitting, the operand stack is empty; after, it
// leaves exactly one value (or none, for void). Pushing an operand either
// recurses into its inlineable producer or loads it from a local,
// consulting the TeeLocalPeephole first.
type OperandStack struct {
	buf        *code.Buffer
	tee        *TeeLocalPeephole
	localOf    LocalIndexer
	emitInline InlineEmitter

	// emitConst lowers a constant leaf operand (spec.md §4.3); wired by
	// Context after both the stack and the ConstantEmitter exist, since
	// the ConstantEmitter itself is constructed from this stack.
	emitConst func(*ir.Constant)
}

// NewOperandStack binds an OperandStack to one function's buffer, peephole
// and register-to-local map.
func NewOperandStack(buf *code.Buffer, tee *TeeLocalPeephole, localOf LocalIndexer, emitInline InlineEmitter) *OperandStack {
	return &OperandStack{buf: buf, tee: tee, localOf: localOf, emitInline: emitInline}
}

// BeginInstruction records the current cursor as a stack-empty point, the
// only position from which a following Push can still fold into a
// preceding local.set (spec.md §4.7).
func (s *OperandStack) BeginInstruction() {
	s.tee.InstructionStart(s.buf.Len())
}

// Push emits v onto the operand stack: directly, when v is produced by an
// inlineable instruction, or via local.get — folded into a local.tee by
// the peephole when possible (spec.md §4.6).
func (s *OperandStack) Push(v *ir.Value) {
	if v.Const != nil {
		s.emitConst(v.Const)
		return
	}
	if v.IsInlineable() {
		s.emitInline(v.Def)
		return
	}
	cursor := s.buf.Len()
	if s.tee.TryConsume(v, cursor) {
		return
	}
	s.buf.Emit(code.Instr{Op: wasmtype.OpLocalGet, Idx: s.localOf(v.Reg)})
}

// Depth reports the 1-based position of v's nearest unused tee candidate,
// counted from the top of the innermost candidate layer (the newest
// candidate is 1), or -1 if v has no live candidate. Used by
// commutative-operand reordering (spec.md §4.5: "comparing findDepth(op0)
// vs findDepth(op1)") to prefer whichever operand the peephole can still
// fold.
func (s *OperandStack) Depth(v *ir.Value) int {
	return s.tee.FindDepth(v)
}

// SetLocal emits a local.set for v's register right after v's defining
// instruction left its result on the stack, and registers the set as a
// tee-local candidate for whichever instruction consumes v next (spec.md
// §4.6, §4.7 addCandidate).
func (s *OperandStack) SetLocal(v *ir.Value) {
	idx := s.localOf(v.Reg)
	bufIdx := s.buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: idx})
	s.tee.AddCandidate(v, idx, bufIdx)
}

// Drop emits an explicit drop: v's result has no uses, so the value left
// on the stack by its defining instruction must be discarded before the
// next statement can assume an empty stack (spec.md §4.5's "no uses" case
// is handled by never calling SetLocal; wasm still requires the discard to
// be explicit, since nothing else consumes the value).
func (s *OperandStack) Drop() {
	s.buf.Emit(code.Instr{Op: wasmtype.OpDrop})
}
