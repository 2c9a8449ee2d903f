package encode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

func TestAppendModule_Preamble(t *testing.T) {
	out := AppendModule(nil, nil)
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, out)
}

func TestAppendModule_FramesSections(t *testing.T) {
	out := AppendModule(nil, []Section{{ID: wasmtype.SectionType, Body: []byte{0xaa, 0xbb}}})
	require.Equal(t, []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		byte(wasmtype.SectionType), 0x02, 0xaa, 0xbb,
	}, out)
}

func TestAppendName(t *testing.T) {
	out := AppendName(nil, "abc")
	require.Equal(t, []byte{3, 'a', 'b', 'c'}, out)
}

func TestAppendVecCount(t *testing.T) {
	require.Equal(t, []byte{0}, AppendVecCount(nil, 0))
	require.Equal(t, []byte{5}, AppendVecCount(nil, 5))
}

func TestAppendInstr_LocalGet(t *testing.T) {
	out := AppendInstr(nil, code.Instr{Op: wasmtype.OpLocalGet, Idx: 3})
	require.Equal(t, []byte{byte(wasmtype.OpLocalGet), 3}, out)
}

func TestAppendInstr_I32Const(t *testing.T) {
	out := AppendInstr(nil, code.Instr{Op: wasmtype.OpI32Const, I32: -1})
	require.Equal(t, []byte{byte(wasmtype.OpI32Const), 0x7f}, out)
}

func TestAppendInstr_BrTable(t *testing.T) {
	out := AppendInstr(nil, code.Instr{Op: wasmtype.OpBrTable, Targets: []uint32{0, 1, 2}, Default: 3})
	require.Equal(t, []byte{byte(wasmtype.OpBrTable), 3, 0, 1, 2, 3}, out)
}

func TestAppendFunctionType(t *testing.T) {
	out := AppendFunctionType(nil, wasmtype.FunctionType{
		Params:  []wasmtype.ValueKind{wasmtype.I32, wasmtype.I32},
		Results: []wasmtype.ValueKind{wasmtype.I32},
	})
	require.Equal(t, []byte{
		0x60,
		2, byte(wasmtype.I32), byte(wasmtype.I32),
		1, byte(wasmtype.I32),
	}, out)
}
