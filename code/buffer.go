// Package code implements the per-function instruction buffer: a
// growable, random-access sequence of recorded instructions that the
// tee-local peephole (spec.md §4.7) patches in place and the NOP-removal
// pass (spec.md §4.10) filters in a single linear sweep.
//
// Grounded on gate-computer-wag/internal/code (the cursor-tracking Buffer
// wrapper) and gate-computer-wag/buffer.Dynamic (the growable backing
// store), generalized from a raw []byte to a []Instr: text and binary
// output must be "driven by the same emit routines" (spec.md §6), so the
// buffer records structured instructions and defers byte/text
// serialization to the encode package, rather than writing bytes directly
// as the teacher's Buffer does.
package code

import (
	"github.com/pkg/errors"

	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// MaxFunctionInstrs bounds a single function body, mirroring
// gate-computer-wag/buffer.Limited's role of turning runaway growth into an
// explicit error instead of an out-of-memory crash.
const MaxFunctionInstrs = 1 << 22

// ErrTooManyInstrs is the cause of the panic Emit raises (wrapped with
// errors.Wrap) when a function body would exceed MaxFunctionInstrs.
var ErrTooManyInstrs = errors.New("code: function body exceeds instruction limit")

// Instr is one recorded Wasm instruction: an opcode plus whichever
// immediates it carries. Only the fields relevant to Op are meaningful;
// the rest are zero.
type Instr struct {
	Op Opcode

	// Const immediates.
	I32 int32
	I64 int64
	F32 float32
	F64 float64

	// local/global/function/type index, or br depth.
	Idx uint32
	// call_indirect's table index; currently always 0 (spec.md assumes one
	// table), kept explicit for clarity at call sites.
	Idx2 uint32

	MemAlign  uint32
	MemOffset uint32

	// br_table: Targets holds the non-default entries; Default is the
	// fallback depth.
	Targets []uint32
	Default uint32

	// BlockType is the result type of a block/loop/if with a result
	// (spec.md §4.9 structured control); ValueKind(0) means void.
	BlockType wasmtype.ValueKind

	// removed marks a patched-away instruction for the NOP-removal sweep
	// (spec.md §4.10, item 8).
removed bool
}

// Opcode is a local alias so callers don't need to import wasmtype just to
// build an Instr; it is defined as wasmtype.Opcode to keep a single opcode
// vocabulary across the whole repo (spec.md §6).
type Opcode = wasmtype.Opcode

// Buffer is the growable sequence of Instr records for one function body.
// The zero value is ready to use, mirroring gate-computer-wag/buffer's
// "default value is a valid buffer" convention.
type Buffer struct {
	instrs []Instr
}

// Len returns the write cursor: the number of instructions recorded so far
// (including ones later marked removed). This is the "bufferOffset" of
// spec.md §3's TeeLocalCandidate and the "cursor" of §4.7.
func (b *Buffer) Len() int {
	return len(b.instrs)
}

// Emit appends instr and returns its index, for later patching.
func (b *Buffer) Emit(instr Instr) int {
	if len(b.instrs) >= MaxFunctionInstrs {
		panic(errors.Wrap(ErrTooManyInstrs, "code.Buffer.Emit"))
	}
	idx := len(b.instrs)
	b.instrs = append(b.instrs, instr)
	return idx
}

// At returns a copy of the instruction at idx.
func (b *Buffer) At(idx int) Instr {
	return b.instrs[idx]
}

// PatchOpcode rewrites the opcode of the instruction at idx in place. This
// is the local.set -> local.tee rewrite of spec.md §4.7: same-width opcode
// swap, no byte shifting, safe because idx is always strictly before the
// current cursor (spec.md §5).
func (b *Buffer) PatchOpcode(idx int, op Opcode) {
	b.instrs[idx].Op = op
}

// MarkRemoved flags the instruction at idx as a NOP to be dropped by
// Compact. Used when a local.tee's value is never consumed on the stack
// after control-flow restructuring makes it dead (spec.md §4.10 item 8).
func (b *Buffer) MarkRemoved(idx int) {
	b.instrs[idx].removed = true
}

// Compact returns the buffer's instructions with every MarkRemoved entry
// elided, in one linear sweep, without recomputing any previously recorded
// offset (spec.md §4.10 item 8, §9 "a filter pass removes marked bytes in
// one linear sweep").
func (b *Buffer) Compact() []Instr {
	out := make([]Instr, 0, len(b.instrs))
	for _, in := range b.instrs {
		if !in.removed {
			out = append(out, in)
		}
	}
	return out
}

// Instrs returns the raw recorded instructions, including removed ones.
// Callers that need index-stable access (the peephole, the dependency
// tracker) use this; Compact is only for final serialization.
func (b *Buffer) Instrs() []Instr {
	return b.instrs
}
