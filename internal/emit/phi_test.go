package emit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// scratchLocalFor returns a ScratchLocal that hands out one fixed index per
// kind, mirroring the real FunctionEmitter's per-kind scratch reservation.
func scratchLocalFor(indices map[wasmtype.ValueKind]uint32) ScratchLocal {
	return func(kind wasmtype.ValueKind) uint32 {
		return indices[kind]
	}
}

// TestResolvePhis_TwoCycleSwap is spec.md §8 S6: x = phi [0, entry], [y,
// latch]; y = phi [1, entry], [x, latch]. On the latch edge both incoming
// values are the other PHI's own register, a genuine 2-cycle that must
// come out as a correct swap rather than two colliding spills.
func TestResolvePhis_TwoCycleSwap(t *testing.T) {
	buf := &code.Buffer{}
	localOf := func(reg ir.RegisterID) uint32 { return uint32(reg) }
	c := &Context{Buf: buf, LocalOf: localOf}

	xReg, yReg := ir.RegisterID(0), ir.RegisterID(1)
	xVal := &ir.Value{Kind: wasmtype.I32, Reg: xReg}
	yVal := &ir.Value{Kind: wasmtype.I32, Reg: yReg}

	latch := &ir.BasicBlock{Label: "latch"}
	x := &ir.Phi{Register: xReg, Result: wasmtype.I32}
	y := &ir.Phi{Register: yReg, Result: wasmtype.I32}
	x.Incoming = []ir.PhiIncoming{{From: latch, Value: yVal}}
	y.Incoming = []ir.PhiIncoming{{From: latch, Value: xVal}}
	to := &ir.BasicBlock{Phis: []*ir.Phi{x, y}}

	const tmp = uint32(7)
	scratch := scratchLocalFor(map[wasmtype.ValueKind]uint32{wasmtype.I32: tmp})

	c.ResolvePhis(latch, to, scratch)

	require.Equal(t, []code.Instr{
		{Op: wasmtype.OpLocalGet, Idx: uint32(xReg)},
		{Op: wasmtype.OpLocalSet, Idx: tmp},
		{Op: wasmtype.OpLocalGet, Idx: uint32(yReg)},
		{Op: wasmtype.OpLocalSet, Idx: uint32(xReg)},
		{Op: wasmtype.OpLocalGet, Idx: tmp},
		{Op: wasmtype.OpLocalSet, Idx: uint32(yReg)},
	}, buf.Instrs())
}

// TestResolvePhis_IndependentAssignmentsNeedNoScratch is the acyclic case:
// neither PHI's incoming value is itself some other PHI's destination
// register in this batch, so the batch should go through the ordinary
// push-all/set-in-reverse path without ever calling scratch.
func TestResolvePhis_IndependentAssignmentsNeedNoScratch(t *testing.T) {
	buf := &code.Buffer{}
	tee := NewTeeLocalPeephole(buf)
	tee.PushScope()
	stack := NewOperandStack(buf, tee, func(reg ir.RegisterID) uint32 { return uint32(reg) }, nil)
	c := &Context{Buf: buf, LocalOf: stack.localOf, Stack: stack}

	aReg, bReg, srcReg := ir.RegisterID(0), ir.RegisterID(1), ir.RegisterID(2)
	srcVal := &ir.Value{Kind: wasmtype.I32, Reg: srcReg}

	latch := &ir.BasicBlock{Label: "latch"}
	a := &ir.Phi{Register: aReg, Result: wasmtype.I32}
	b := &ir.Phi{Register: bReg, Result: wasmtype.I32}
	a.Incoming = []ir.PhiIncoming{{From: latch, Value: srcVal}}
	b.Incoming = []ir.PhiIncoming{{From: latch, Value: srcVal}}
	to := &ir.BasicBlock{Phis: []*ir.Phi{a, b}}

	panicked := false
	func() {
		defer func() {
			if recover() != nil {
				panicked = true
			}
		}()
		c.ResolvePhis(latch, to, scratchLocalFor(nil))
	}()
	require.False(t, panicked)

	require.Equal(t, []code.Instr{
		{Op: wasmtype.OpLocalGet, Idx: uint32(srcReg)},
		{Op: wasmtype.OpLocalGet, Idx: uint32(srcReg)},
		{Op: wasmtype.OpLocalSet, Idx: uint32(bReg)},
		{Op: wasmtype.OpLocalSet, Idx: uint32(aReg)},
	}, buf.Instrs())
}
