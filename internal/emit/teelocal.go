// Package emit lowers ir.Function bodies into code.Buffer instruction
// streams: operand-stack scheduling, the tee-local peephole, dependency
// tracking, constant and GEP emission, per-opcode instruction lowering and
// structured-control reconstruction (spec.md §4).
package emit

import (
	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// teeCandidate is one pending local.set that could still become a
// local.tee if its value is consumed by the very next instruction,
// mirroring the Cheerp WasmWriter's TeeLocalCandidate (v, localId,
// bufferOffset, used).
type teeCandidate struct {
	value  *ir.Value
	local  uint32
	buffer int
	used   bool
}

// TeeLocalPeephole implements spec.md §4.7: a local.set immediately
// followed (with nothing else touching the operand stack in between) by a
// load of the same value is rewritten, in place, into a local.tee that
// leaves the value on the stack. Scopes nest with control structures: a
// candidate from an enclosing scope must not be consumed from inside a
// nested block, so candidates live on a stack of layers, one per nesting
// level (spec.md §4.7, §9).
type TeeLocalPeephole struct {
	buf    *code.Buffer
	layers [][]teeCandidate

	instStartPos int
	haveStart    bool
}

// NewTeeLocalPeephole returns a peephole bound to buf. PushScope must be
// called once before any other method (the function body's outermost
// scope).
func NewTeeLocalPeephole(buf *code.Buffer) *TeeLocalPeephole {
	return &TeeLocalPeephole{buf: buf}
}

// PushScope opens a new candidate layer on entry to a block/loop/if arm.
func (p *TeeLocalPeephole) PushScope() {
	p.layers = append(p.layers, nil)
}

// PopScope discards the innermost layer's remaining candidates on exit
// from a block/loop/if arm; a local.set at the very end of a block can
// never be consumed by code outside it, since the result (if any) is
// already on the stack by the structured-control convention.
func (p *TeeLocalPeephole) PopScope() {
	p.layers = p.layers[:len(p.layers)-1]
}

// InstructionStart records the cursor at a point where the operand stack
// is empty: the only position from which a following local.set candidate
// can still be folded into the instruction that consumes it (spec.md
// §4.7's "still stack-empty" condition).
func (p *TeeLocalPeephole) InstructionStart(cursor int) {
	p.instStartPos = cursor
	p.haveStart = true
}

// AddCandidate registers a just-emitted local.set at buffer index
// bufferIdx as a tee-local candidate for value.
func (p *TeeLocalPeephole) AddCandidate(value *ir.Value, localIdx uint32, bufferIdx int) {
	top := len(p.layers) - 1
	p.layers[top] = append(p.layers[top], teeCandidate{value: value, local: localIdx, buffer: bufferIdx})
}

// TryConsume attempts to fold a load of value at cursor into a preceding
// local.set, turning it into a local.tee. It only succeeds when cursor is
// exactly the last recorded InstructionStart (the operand stack has been
// empty the whole time since), and scans the innermost layer from most to
// least recent, stopping at the first already-used candidate — once a
// candidate has been consumed, anything emitted before it is no longer
// reachable without an intervening stack effect (mirrors
// TeeLocals::couldPutTeeLocalOnStack exactly: break on `used`, match on
// value).
func (p *TeeLocalPeephole) TryConsume(value *ir.Value, cursor int) bool {
	if !p.haveStart || cursor != p.instStartPos {
		return false
	}
	top := len(p.layers) - 1
	cands := p.layers[top]
	for i := len(cands) - 1; i >= 0; i-- {
		if cands[i].used {
			break
		}
		if cands[i].value == value {
			cands[i].used = true
			p.buf.PatchOpcode(cands[i].buffer, wasmtype.OpLocalTee)
			p.removeConsumed(top)
			return true
		}
	}
	return false
}

// FindDepth returns the 1-based distance from the top of the innermost
// candidate layer to the nearest unused candidate for value, stopping (and
// returning -1) at the first already-used candidate, mirroring
// TeeLocals::findDepth. Used by commutative-operand reordering (spec.md
// §4.5) to prefer whichever operand the peephole can still fold.
func (p *TeeLocalPeephole) FindDepth(value *ir.Value) int {
	top := len(p.layers) - 1
	cands := p.layers[top]
	depth := 0
	for i := len(cands) - 1; i >= 0; i-- {
		depth++
		if cands[i].used {
			break
		}
		if cands[i].value == value {
			return depth
		}
	}
	return -1
}

// ClearTopmostCandidates discards the top depth layers' worth of
// candidates without actually popping scopes, called before any br/br_if
// that crosses out of depth scopes: a value patched into a local.tee
// inside those scopes would no longer be on the correct operand stack
// once control leaves them (spec.md §4.7).
func (p *TeeLocalPeephole) ClearTopmostCandidates(depth int) {
	n := len(p.layers)
	for i := 0; i < depth && n-1-i >= 0; i++ {
		p.layers[n-1-i] = nil
	}
}

// removeConsumed drops every candidate at or before the first used one in
// layer top, mirroring TeeLocals::removeConsumed: once a candidate has
// been folded into a tee, earlier candidates in the same layer are no
// longer addressable (the buffer positions between them and the tee are
// gone from consideration).
func (p *TeeLocalPeephole) removeConsumed(top int) {
	cands := p.layers[top]
	for i, c := range cands {
		if c.used {
			p.layers[top] = cands[i+1:]
			return
		}
	}
}
