package emit

import (
	"fmt"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// ControlLowering reconstructs structured control from either a
// RelooperShape tree or a StackifierStream, per spec.md §4.9. A single
// instance is reused across scopes within one function body so its open-
// scope stack stays consistent with the TeeLocalPeephole's layer stack.
type ControlLowering struct {
	c       *Context
	scratch ScratchLocal
	scopes  []*ir.BasicBlock // one entry per open block/loop/if; index 0 is outermost

	// switchCond holds the scrutinee between a TokSwitch and its
	// following TokCase tokens (spec.md §4.9).
	switchCond *ir.Value
}

// NewControlLowering returns a ControlLowering bound to ctx.
func NewControlLowering(c *Context, scratch ScratchLocal) *ControlLowering {
	return &ControlLowering{c: c, scratch: scratch}
}

// depthOf returns the branch depth to the scope targeting block, counting
// from the current (innermost) open scope outward.
func (cl *ControlLowering) depthOf(block *ir.BasicBlock) uint32 {
	for i := len(cl.scopes) - 1; i >= 0; i-- {
		if cl.scopes[i] == block {
			return uint32(len(cl.scopes) - 1 - i)
		}
	}
	panic(fmt.Errorf("emit: control lowering: no open scope targets block %q", block.Label))
}

func (cl *ControlLowering) pushScope(target *ir.BasicBlock) {
	cl.c.Tee.PushScope()
	cl.scopes = append(cl.scopes, target)
}

func (cl *ControlLowering) popScope() {
	cl.c.Tee.PopScope()
	cl.scopes = cl.scopes[:len(cl.scopes)-1]
}

// emitBlock emits one basic block's straight-line instructions and
// terminator. A terminating OpBr/OpCondBr resolves its target to a break
// depth against the currently open scopes; any other terminator (Ret,
// RetVoid, Unreachable, direct fallthrough handled by the caller) is
// lowered normally through EmitStatement. When tail is set and this Ret
// is reached with no open scope, the wasm function body can return its
// value implicitly by falling off the closing `end`, so no explicit
// `return` byte is emitted (spec.md §8 S1: `00 41 00 0b`, not
// `00 41 00 0f 0b`); emitBlock reports whether it took that path, so the
// caller knows the function's return value is already on the stack.
func (cl *ControlLowering) emitBlock(block *ir.BasicBlock, tail bool) bool {
	for _, instr := range block.Instructions {
		hasUses := instr.Register != ir.NoRegister && !instr.Inlineable
		cl.c.EmitStatement(instr, hasUses, false)
	}
	term := block.Terminator
	if term == nil {
		return false
	}
	switch term.Opcode {
	case ir.OpBr:
		depth := cl.depthOf(term.BrTarget)
		cl.c.Tee.ClearTopmostCandidates(int(depth) + 1)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBr, Idx: depth})
	case ir.OpCondBr:
		cl.c.Stack.BeginInstruction()
		cl.c.Stack.Push(term.Operands[0])
		depth := cl.depthOf(term.CondTrueBlk)
		cl.c.Tee.ClearTopmostCandidates(int(depth) + 1)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBrIf, Idx: depth})
		if term.CondFalseBlk != nil {
			depth = cl.depthOf(term.CondFalseBlk)
			cl.c.Tee.ClearTopmostCandidates(int(depth) + 1)
			cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBr, Idx: depth})
		}
	case ir.OpRet:
		if tail && len(cl.scopes) == 0 {
			cl.c.flushDeps(term)
			cl.c.Stack.BeginInstruction()
			if len(term.Operands) > 0 {
				cl.c.Stack.Push(term.Operands[0])
			}
			return true
		}
		cl.c.EmitStatement(term, false, false)
	default:
		cl.c.EmitStatement(term, false, false)
	}
	return false
}

// EmitStackifier consumes stream's flat token vocabulary (spec.md §4.9).
func (cl *ControlLowering) EmitStackifier(stream *ir.StackifierStream) {
	for _, tok := range stream.Tokens {
		cl.emitToken(tok)
	}
}

func (cl *ControlLowering) emitToken(tok ir.Token) {
	switch tok.Kind {
	case ir.TokBasicBlock:
		cl.emitBlock(tok.Block, false)
	case ir.TokLoop:
		cl.pushScope(tok.Target)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpLoop})
	case ir.TokBlock:
		cl.pushScope(tok.Target)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBlock})
	case ir.TokIf:
		cl.c.Stack.BeginInstruction()
		cl.c.Stack.Push(tok.Cond)
		cl.pushScope(tok.Target)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpIf})
	case ir.TokIfNot:
		cl.c.Stack.BeginInstruction()
		cl.c.Stack.Push(tok.Cond)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Eqz})
		cl.pushScope(tok.Target)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpIf})
	case ir.TokElse:
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpElse})
	case ir.TokEnd:
		cl.popScope()
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpEnd})
	case ir.TokBranch:
		depth := cl.depthOf(tok.Target)
		cl.c.Tee.ClearTopmostCandidates(int(depth) + 1)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBr, Idx: depth})
	case ir.TokBrIf:
		cl.c.Stack.BeginInstruction()
		cl.c.Stack.Push(tok.Cond)
		depth := cl.depthOf(tok.Target)
		cl.c.Tee.ClearTopmostCandidates(int(depth) + 1)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBrIf, Idx: depth})
	case ir.TokBrIfNot:
		cl.c.Stack.BeginInstruction()
		cl.c.Stack.Push(tok.Cond)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Eqz})
		depth := cl.depthOf(tok.Target)
		cl.c.Tee.ClearTopmostCandidates(int(depth) + 1)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBrIf, Idx: depth})
	case ir.TokPrologue:
		cl.c.ResolvePhis(tok.EdgeFrom, tok.EdgeTo, cl.scratch)
	case ir.TokSwitch:
		cl.switchCond = tok.Cond
	case ir.TokCase:
		cl.c.Stack.BeginInstruction()
		cl.c.Stack.Push(cl.switchCond)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(tok.CaseValue)})
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Eq})
		depth := cl.depthOf(tok.CaseBlock)
		cl.c.Tee.ClearTopmostCandidates(int(depth) + 1)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBrIf, Idx: depth})
	case ir.TokCondition:
		// A bare condition marker with no paired branch in this token's
		// position; nothing to emit on its own (it only matters paired
		// with the If/IfNot/BrIf/BrIfNot tokens that already consumed
		// tok.Cond directly).
	default:
		panic(fmt.Errorf("emit: control lowering: unhandled token kind %v", tok.Kind))
	}
}

// EmitRelooper walks shape's Simple/Loop/Multiple tree (spec.md §4.9,
// legacy path). Each Loop produces `loop ; block ;`: the block is innermost,
// so a `br 0` leaves the block and a `br 1` jumps back to the loop header;
// each Multiple with N entries produces N+1 nested
// `block`s dispatched by a br_table on the label local.
func (cl *ControlLowering) EmitRelooper(shape *ir.RelooperShape, labelLocal uint32) {
	for shape != nil {
		switch shape.Kind {
		case ir.ShapeSimple:
			cl.emitBlock(shape.Block, false)
		case ir.ShapeLoop:
			cl.pushScope(nil) // loop: br 1 from inside the block = continue
			cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpLoop})
			cl.pushScope(nil) // inner block: br 0 = leave the block
			cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBlock})
			for _, out := range shape.BranchesOut {
				cl.scopes[len(cl.scopes)-1] = out
			}
			cl.EmitRelooper(shape.Inner, labelLocal)
			cl.popScope()
			cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpEnd})
			cl.popScope()
			cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpEnd})
		case ir.ShapeMultiple:
			cl.emitMultiple(shape, labelLocal)
		}
		shape = shape.Next
	}
}

// emitMultiple nests len(Entries)+1 blocks and dispatches with a br_table
// on labelLocal, outermost-last so entry i's body sits i blocks deep
// (spec.md §4.9).
func (cl *ControlLowering) emitMultiple(shape *ir.RelooperShape, labelLocal uint32) {
	n := len(shape.Entries)
	for i := 0; i <= n; i++ {
		cl.pushScope(nil)
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBlock})
	}
	cl.c.Stack.BeginInstruction()
	cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpLocalGet, Idx: labelLocal})
	targets := make([]uint32, n)
	for i := range targets {
		targets[i] = uint32(n - 1 - i)
	}
	cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpBrTable, Targets: targets, Default: uint32(n)})
	for _, entry := range shape.Entries {
		cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpEnd})
		cl.popScope()
		cl.EmitRelooper(entry.Shape, labelLocal)
	}
	cl.c.Buf.Emit(code.Instr{Op: wasmtype.OpEnd})
	cl.popScope()
}
