// Package encode serializes a compiled module to either the Wasm binary
// format or its WAT text rendering, both driven by the same
// wasmtype.Opcode mnemonic/opcode table (spec.md §4.1, §6).
package encode

import (
	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ieee754"
	"github.com/leaningtech/llvm-duetto/leb128"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// Magic and Version are the fixed 8-byte preamble of every Wasm binary
// module (spec.md §4.12).
var Magic = [4]byte{0x00, 0x61, 0x73, 0x6d}
var Version = [4]byte{0x01, 0x00, 0x00, 0x00}

// Section is one already-encoded section body, paired with its id so the
// driver can assemble them in spec.md §4.12's fixed order.
type Section struct {
	ID   wasmtype.SectionID
	Body []byte
}

// AppendModule writes the preamble followed by every section in order,
// each framed as id-byte, LEB128 length, body (spec.md §4.12).
func AppendModule(dst []byte, sections []Section) []byte {
	dst = append(dst, Magic[:]...)
	dst = append(dst, Version[:]...)
	for _, s := range sections {
		dst = append(dst, byte(s.ID))
		dst = leb128.AppendUint32(dst, uint32(len(s.Body)))
		dst = append(dst, s.Body...)
	}
	return dst
}

// AppendValueKind appends t's single-byte binary encoding.
func AppendValueKind(dst []byte, t wasmtype.ValueKind) []byte {
	return append(dst, byte(t))
}

// AppendVecCount appends a vector's LEB128 element count only; callers
// append the encoded elements after it themselves.
func AppendVecCount(dst []byte, n int) []byte {
	return leb128.AppendUint32(dst, uint32(n))
}

// AppendName appends a Wasm "name": an LEB128 byte length followed by the
// UTF-8 bytes (spec.md §4.1).
func AppendName(dst []byte, s string) []byte {
	dst = leb128.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// AppendFunctionType appends one Type section entry: the 0x60 functype
// tag, the param vector, the result vector (spec.md §4.1, §4.12).
func AppendFunctionType(dst []byte, t wasmtype.FunctionType) []byte {
	dst = append(dst, 0x60)
	dst = AppendVecCount(dst, len(t.Params))
	for _, p := range t.Params {
		dst = AppendValueKind(dst, p)
	}
	dst = AppendVecCount(dst, len(t.Results))
	for _, r := range t.Results {
		dst = AppendValueKind(dst, r)
	}
	return dst
}

// AppendInstrs encodes buf's compacted instruction stream as the body of a
// Code section entry (the locals vector is framed separately by the
// caller, which knows the function's LocalGroup layout).
func AppendInstrs(dst []byte, instrs []code.Instr) []byte {
	for _, in := range instrs {
		dst = AppendInstr(dst, in)
	}
	return dst
}

// AppendInstr encodes one instruction: its opcode byte followed by
// whichever immediates its opcode carries (spec.md §4.1).
func AppendInstr(dst []byte, in code.Instr) []byte {
	dst = append(dst, byte(in.Op))
	switch in.Op {
	case wasmtype.OpBlock, wasmtype.OpLoop, wasmtype.OpIf:
		if in.BlockType == wasmtype.Void {
			dst = append(dst, 0x40)
		} else {
			dst = AppendValueKind(dst, in.BlockType)
		}
	case wasmtype.OpBr, wasmtype.OpBrIf:
		dst = leb128.AppendUint32(dst, in.Idx)
	case wasmtype.OpBrTable:
		dst = leb128.AppendUint32(dst, uint32(len(in.Targets)))
		for _, t := range in.Targets {
			dst = leb128.AppendUint32(dst, t)
		}
		dst = leb128.AppendUint32(dst, in.Default)
	case wasmtype.OpCall, wasmtype.OpReturnCall:
		dst = leb128.AppendUint32(dst, in.Idx)
	case wasmtype.OpCallIndirect, wasmtype.OpReturnCallIndirect:
		dst = leb128.AppendUint32(dst, in.Idx)
		dst = leb128.AppendUint32(dst, in.Idx2)
	case wasmtype.OpLocalGet, wasmtype.OpLocalSet, wasmtype.OpLocalTee,
		wasmtype.OpGlobalGet, wasmtype.OpGlobalSet:
		dst = leb128.AppendUint32(dst, in.Idx)
	case wasmtype.OpI32Const:
		dst = leb128.AppendInt32(dst, in.I32)
	case wasmtype.OpI64Const:
		dst = leb128.AppendInt64(dst, in.I64)
	case wasmtype.OpF32Const:
		dst = append(dst, ieee754.EncodeFloat32(in.F32)...)
	case wasmtype.OpF64Const:
		dst = append(dst, ieee754.EncodeFloat64(in.F64)...)
	case wasmtype.OpMemoryGrow, wasmtype.OpMemorySize:
		dst = append(dst, 0x00) // reserved byte
	default:
		if in.Op.HasMemArg() {
			dst = leb128.AppendUint32(dst, in.MemAlign)
			dst = leb128.AppendUint32(dst, in.MemOffset)
		}
	}
	return dst
}
