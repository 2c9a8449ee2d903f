package emit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// These tests mirror how Context wires BeginInstruction/Push together
// (context.go): a candidate's local.set is recorded, then InstructionStart
// is called again for the *next* statement before it reads any operand —
// exactly the point TryConsume must see unchanged for the fold to apply.

func TestTeeLocalPeephole_FoldsImmediateReload(t *testing.T) {
	buf := &code.Buffer{}
	p := NewTeeLocalPeephole(buf)
	p.PushScope()

	v := &ir.Value{Reg: 1}

	setIdx := buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: 0})
	p.AddCandidate(v, 0, setIdx)
	p.InstructionStart(buf.Len())

	require.True(t, p.TryConsume(v, buf.Len()))
	require.Equal(t, wasmtype.OpLocalTee, buf.At(setIdx).Op)
}

func TestTeeLocalPeephole_RejectsWhenStackNotEmptySincePriorSet(t *testing.T) {
	buf := &code.Buffer{}
	p := NewTeeLocalPeephole(buf)
	p.PushScope()

	v := &ir.Value{Reg: 1}
	setIdx := buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: 0})
	p.AddCandidate(v, 0, setIdx)
	p.InstructionStart(buf.Len())

	buf.Emit(code.Instr{Op: wasmtype.OpI32Add}) // moves the cursor past the recorded stack-empty point

	require.False(t, p.TryConsume(v, buf.Len()))
	require.Equal(t, wasmtype.OpLocalSet, buf.At(setIdx).Op)
}

func TestTeeLocalPeephole_FindDepthReachesOlderUnusedCandidate(t *testing.T) {
	buf := &code.Buffer{}
	p := NewTeeLocalPeephole(buf)
	p.PushScope()

	older := &ir.Value{Reg: 1}
	olderIdx := buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: 0})
	p.AddCandidate(older, 0, olderIdx)

	newer := &ir.Value{Reg: 2}
	newerIdx := buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: 1})
	p.AddCandidate(newer, 1, newerIdx)

	require.Equal(t, 1, p.FindDepth(newer))
	require.Equal(t, 2, p.FindDepth(older))
}

func TestTeeLocalPeephole_CandidateInClosedNestedScopeIsUnreachable(t *testing.T) {
	buf := &code.Buffer{}
	p := NewTeeLocalPeephole(buf)
	p.PushScope() // outer, function-body scope

	p.PushScope() // a nested block
	v := &ir.Value{Reg: 1}
	idx := buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: 0})
	p.AddCandidate(v, 0, idx)
	p.InstructionStart(buf.Len())
	p.PopScope() // the nested block closes; its candidates go with it

	require.False(t, p.TryConsume(v, buf.Len()))
	require.Equal(t, wasmtype.OpLocalSet, buf.At(idx).Op)
}
