package encode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// WriteInstrs renders buf's compacted instruction stream as linear
// (unfolded) WAT, one instruction per line indented by the current block
// nesting depth, matching the binary stream instruction-for-instruction
// (spec.md §6: "text and binary output... driven by the same emit
// routines").
func WriteInstrs(w *strings.Builder, instrs []code.Instr, indent int) {
	for _, in := range instrs {
		switch in.Op {
		case wasmtype.OpElse, wasmtype.OpEnd:
			indent--
		}
		writeIndent(w, indent)
		w.WriteString(mnemonicOrFallback(in.Op))
		writeOperands(w, in)
		w.WriteByte('\n')
		switch in.Op {
		case wasmtype.OpBlock, wasmtype.OpLoop, wasmtype.OpIf, wasmtype.OpElse:
			indent++
		}
	}
}

func mnemonicOrFallback(op wasmtype.Opcode) string {
	if m := op.Mnemonic(); m != "" {
		return m
	}
	return fmt.Sprintf("unknown-opcode-0x%02x", byte(op))
}

func writeIndent(w *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString("  ")
	}
}

func writeOperands(w *strings.Builder, in code.Instr) {
	switch in.Op {
	case wasmtype.OpBlock, wasmtype.OpLoop, wasmtype.OpIf:
		if in.BlockType != wasmtype.Void {
			w.WriteString(" (result ")
			w.WriteString(in.BlockType.String())
			w.WriteByte(')')
		}
	case wasmtype.OpBr, wasmtype.OpBrIf:
		fmt.Fprintf(w, " %d", in.Idx)
	case wasmtype.OpBrTable:
		for _, t := range in.Targets {
			fmt.Fprintf(w, " %d", t)
		}
		fmt.Fprintf(w, " %d", in.Default)
	case wasmtype.OpCall, wasmtype.OpReturnCall:
		fmt.Fprintf(w, " %d", in.Idx)
	case wasmtype.OpCallIndirect, wasmtype.OpReturnCallIndirect:
		fmt.Fprintf(w, " (type %d)", in.Idx)
	case wasmtype.OpLocalGet, wasmtype.OpLocalSet, wasmtype.OpLocalTee,
		wasmtype.OpGlobalGet, wasmtype.OpGlobalSet:
		fmt.Fprintf(w, " %d", in.Idx)
	case wasmtype.OpI32Const:
		fmt.Fprintf(w, " %d", in.I32)
	case wasmtype.OpI64Const:
		fmt.Fprintf(w, " %d", in.I64)
	case wasmtype.OpF32Const:
		w.WriteByte(' ')
		w.WriteString(strconv.FormatFloat(float64(in.F32), 'g', -1, 32))
	case wasmtype.OpF64Const:
		w.WriteByte(' ')
		w.WriteString(strconv.FormatFloat(in.F64, 'g', -1, 64))
	default:
		if in.Op.HasMemArg() {
			if in.MemOffset != 0 {
				fmt.Fprintf(w, " offset=%d", in.MemOffset)
			}
			if in.MemAlign != 0 {
				fmt.Fprintf(w, " align=%d", uint32(1)<<in.MemAlign)
			}
		}
	}
}

// WriteFunctionSignature renders a function's (param ...) (result ...)
// clause.
func WriteFunctionSignature(w *strings.Builder, t wasmtype.FunctionType) {
	for _, p := range t.Params {
		fmt.Fprintf(w, " (param %s)", p.String())
	}
	for _, r := range t.Results {
		fmt.Fprintf(w, " (result %s)", r.String())
	}
}
