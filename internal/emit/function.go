package emit

import (
	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// LocalGroup is one run of same-kind local declarations, the shape the
// Code section's per-function locals vector takes (spec.md §3, §4.10
// step 3).
type LocalGroup struct {
	Kind  wasmtype.ValueKind
	Count uint32
}

// CompiledFunction is a function emitter's output: the instruction buffer
// plus everything the encoder needs to frame it (spec.md §4.10).
type CompiledFunction struct {
	Fn         *ir.Function
	Buf        *code.Buffer
	ParamCount uint32
	Locals     []LocalGroup
}

// FunctionEmitter orchestrates one function's compilation: register-to-
// local assignment, the per-kind scratch and label locals, body emission
// via ControlLowering, the synthetic-return and end bytes, and the final
// NOP-removal sweep (spec.md §4.10).
type FunctionEmitter struct {
	Module  *ir.Module
	Globals GlobalLookup
	AddrOfFn func(*ir.Function) uint32
	AddrOfG  func(*ir.GlobalVar) uint32
}

// Emit runs spec.md §4.10's 8 steps for fn.
func (fe *FunctionEmitter) Emit(fn *ir.Function) *CompiledFunction {
	localIdx, locals, paramCount := allocateLocals(fn)
	var labelLocal uint32
	if fn.NeedsLabelLocal {
		labelLocal = addLocal(&locals, wasmtype.I32)
		localIdx[fn.LabelLocalReg] = labelLocal
	}
	scratchIdx := map[wasmtype.ValueKind]uint32{}
	scratch := func(kind wasmtype.ValueKind) uint32 {
		if idx, ok := scratchIdx[kind]; ok {
			return idx
		}
		idx := addLocal(&locals, kind)
		scratchIdx[kind] = idx
		return idx
	}

	localOf := func(reg ir.RegisterID) uint32 { return localIdx[reg] }
	ctx := NewContext(fe.Module, fn, localOf, fe.Globals, fe.AddrOfFn, fe.AddrOfG)
	ctx.Tee.PushScope()

	tailReturned := false
	switch {
	case fn.Stackifier != nil:
		NewControlLowering(ctx, scratch).EmitStackifier(fn.Stackifier)
	case fn.Relooper != nil:
		NewControlLowering(ctx, scratch).EmitRelooper(fn.Relooper, labelLocal)
	default:
		cl := NewControlLowering(ctx, scratch)
		for i, b := range fn.Blocks {
			if cl.emitBlock(b, i == len(fn.Blocks)-1) {
				tailReturned = true
			}
		}
	}

	if !tailReturned && !bodyTerminated(ctx.Buf) && !fn.IsVoid {
		emitSyntheticZero(ctx.Buf, fn.Result)
		ctx.Buf.Emit(code.Instr{Op: wasmtype.OpReturn})
	}
	ctx.Buf.Emit(code.Instr{Op: wasmtype.OpEnd})
	ctx.Tee.PopScope()

	removeDeadTees(ctx.Buf)

	return &CompiledFunction{Fn: fn, Buf: ctx.Buf, ParamCount: paramCount, Locals: locals}
}

// allocateLocals assigns a local index to every register, params first
// (in declaration order) then declared locals grouped by
// wasmtype.LocalGroupOrder, so the locals vector compresses into at most
// four run-length groups (spec.md §3, §4.10 step 1).
func allocateLocals(fn *ir.Function) (map[ir.RegisterID]uint32, []LocalGroup, uint32) {
	localIdx := make(map[ir.RegisterID]uint32, len(fn.RegKind))
	var next uint32

	// Parameters keep their declared order; the register allocator numbers
	// parameter registers 0..len(Params)-1.
	for i := range fn.Params {
		reg := ir.RegisterID(i)
		localIdx[reg] = next
		next++
	}
	paramCount := next

	var locals []LocalGroup
	for _, kind := range wasmtype.LocalGroupOrder {
		count := fn.NumRegs[kind]
		if count == 0 {
			continue
		}
		assigned := 0
		for reg, k := range fn.RegKind {
			if k != kind {
				continue
			}
			if _, isParam := localIdx[reg]; isParam {
				continue
			}
			localIdx[reg] = next
			next++
			assigned++
		}
		if assigned > 0 {
			locals = append(locals, LocalGroup{Kind: kind, Count: uint32(assigned)})
		}
	}
	return localIdx, locals, paramCount
}

// addLocal appends a single local of kind, merging into the last group
// when it already matches, and returns its assigned index.
func addLocal(locals *[]LocalGroup, kind wasmtype.ValueKind) uint32 {
	var idx uint32
	for _, g := range *locals {
		idx += g.Count
	}
	if n := len(*locals); n > 0 && (*locals)[n-1].Kind == kind {
		(*locals)[n-1].Count++
	} else {
		*locals = append(*locals, LocalGroup{Kind: kind, Count: 1})
	}
	return idx
}

// bodyTerminated reports whether the buffer's last emitted instruction is
// a return or unreachable, per spec.md §4.10 step 6.
func bodyTerminated(buf *code.Buffer) bool {
	n := buf.Len()
	if n == 0 {
		return false
	}
	switch buf.At(n - 1).Op {
	case wasmtype.OpReturn, wasmtype.OpUnreachable, wasmtype.OpReturnCall, wasmtype.OpReturnCallIndirect:
		return true
	default:
		return false
	}
}

// emitSyntheticZero pushes a literal zero of kind's type, for the
// fallthrough-without-explicit-return case (spec.md §4.10 step 6).
func emitSyntheticZero(buf *code.Buffer, kind wasmtype.ValueKind) {
	switch kind {
	case wasmtype.I64:
		buf.Emit(code.Instr{Op: wasmtype.OpI64Const, I64: 0})
	case wasmtype.F32:
		buf.Emit(code.Instr{Op: wasmtype.OpF32Const, F32: 0})
	case wasmtype.F64:
		buf.Emit(code.Instr{Op: wasmtype.OpF64Const, F64: 0})
	default:
		buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: 0})
	}
}

// removeDeadTees is the NOP-removal pass of spec.md §4.10 step 8: a
// local.tee immediately followed by a drop is pointless (the value it
// leaves on the stack is discarded right away), so it is rewritten back
// to local.set and the drop is marked removed, in one linear sweep
// without recomputing any other instruction's index.
func removeDeadTees(buf *code.Buffer) {
	instrs := buf.Instrs()
	for i := 0; i+1 < len(instrs); i++ {
		if instrs[i].Op == wasmtype.OpLocalTee && instrs[i+1].Op == wasmtype.OpDrop {
			buf.PatchOpcode(i, wasmtype.OpLocalSet)
			buf.MarkRemoved(i + 1)
		}
	}
}
