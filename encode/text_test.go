package encode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

func TestWriteInstrs_LocalGetAdd(t *testing.T) {
	var w strings.Builder
	WriteInstrs(&w, []code.Instr{
		{Op: wasmtype.OpLocalGet, Idx: 0},
		{Op: wasmtype.OpLocalGet, Idx: 1},
		{Op: wasmtype.OpI32Add},
	}, 0)
	require.Equal(t, "local.get 0\nlocal.get 1\ni32.add\n", w.String())
}

func TestWriteInstrs_BlockIndents(t *testing.T) {
	var w strings.Builder
	WriteInstrs(&w, []code.Instr{
		{Op: wasmtype.OpBlock, BlockType: wasmtype.Void},
		{Op: wasmtype.OpLocalGet, Idx: 0},
		{Op: wasmtype.OpEnd},
	}, 0)
	lines := strings.Split(strings.TrimRight(w.String(), "\n"), "\n")
	require.Equal(t, "block", lines[0])
	require.Equal(t, "  local.get 0", lines[1])
	require.Equal(t, "end", lines[2])
}

func TestWriteInstrs_BrTable(t *testing.T) {
	var w strings.Builder
	WriteInstrs(&w, []code.Instr{
		{Op: wasmtype.OpBrTable, Targets: []uint32{0, 1}, Default: 2},
	}, 0)
	require.Equal(t, "br_table 0 1 2\n", w.String())
}

func TestWriteInstrs_I32ConstNegative(t *testing.T) {
	var w strings.Builder
	WriteInstrs(&w, []code.Instr{{Op: wasmtype.OpI32Const, I32: -5}}, 0)
	require.Equal(t, "i32.const -5\n", w.String())
}

func TestWriteFunctionSignature(t *testing.T) {
	var w strings.Builder
	WriteFunctionSignature(&w, wasmtype.FunctionType{
		Params:  []wasmtype.ValueKind{wasmtype.I32, wasmtype.F64},
		Results: []wasmtype.ValueKind{wasmtype.I32},
	})
	require.Equal(t, " (param i32) (param f64) (result i32)", w.String())
}
