// Package validate is a test-only round-trip decoder: it re-parses an
// emitted function body's bytes and checks invariant 1 of spec.md §8
// ("every end matches a block/loop/if"). It is the closest analogue
// available to this repo of "parse text through a reference toolchain and
// compare the binary" — there is no external wasm-validate binary in this
// exercise's retrieval pack — grounded on the teacher's decodeCode /
// decodeTypeSection (wasm/binary/code.go, wasm/binary/section.go) and
// gate-computer-wag/binary/varint.go's Varuint32/Varint32 decoders, which
// here are leb128.DecodeUint32/DecodeInt32.
package validate

import (
	"bytes"
	"io"

	"golang.org/x/xerrors"

	"github.com/leaningtech/llvm-duetto/leb128"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// FunctionBody re-decodes one Code-section entry (length-prefixed locals
// vector + instruction stream) and reports an error if any end/block/loop/if
// nesting is unbalanced, or the stream runs out of bytes mid-instruction.
func FunctionBody(entry []byte) error {
	r := bytes.NewReader(entry)

	size, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return xerrors.Errorf("decode body size: %w", err)
	}
	if int(size) != r.Len() {
		return xerrors.Errorf("body size %d does not match remaining %d bytes", size, r.Len())
	}

	numLocalGroups, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return xerrors.Errorf("decode local group count: %w", err)
	}
	for i := uint32(0); i < numLocalGroups; i++ {
		if _, _, err := leb128.DecodeUint32(r); err != nil {
			return xerrors.Errorf("decode local group %d count: %w", i, err)
		}
		if _, err := r.ReadByte(); err != nil {
			return xerrors.Errorf("decode local group %d type: %w", i, err)
		}
	}

	return checkBalanced(r)
}

// checkBalanced walks the instruction stream tracking block-nesting depth,
// verifying every block/loop/if opens a scope closed by a matching end (and
// that an else only appears inside an open block/loop/if), and that the
// function body's own final end brings the depth to exactly 0. Depth starts
// at 1 for the body's implicit outermost scope.
func checkBalanced(r *bytes.Reader) error {
	depth := 1
	for {
		op, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Errorf("read opcode: %w", err)
		}
		switch wasmtype.Opcode(op) {
		case wasmtype.OpBlock, wasmtype.OpLoop, wasmtype.OpIf:
			if _, err := r.ReadByte(); err != nil { // blocktype
				return xerrors.Errorf("decode blocktype: %w", err)
			}
			depth++
		case wasmtype.OpElse:
			if depth <= 1 {
				return xerrors.New("else outside any block")
			}
		case wasmtype.OpEnd:
			if depth == 0 {
				return xerrors.New("end with no open block/loop/if")
			}
			depth--
		case wasmtype.OpBrTable:
			n, _, err := leb128.DecodeUint32(r)
			if err != nil {
				return xerrors.Errorf("decode br_table count: %w", err)
			}
			for i := uint32(0); i <= n; i++ {
				if _, _, err := leb128.DecodeUint32(r); err != nil {
					return xerrors.Errorf("decode br_table target %d: %w", i, err)
				}
			}
		default:
			if n := immediateBytes(wasmtype.Opcode(op), r); n < 0 {
				return xerrors.Errorf("unknown opcode 0x%02x", op)
			}
		}
	}
	if depth != 0 {
		return xerrors.Errorf("%d unclosed block(s) at end of body", depth)
	}
	return nil
}

// immediateBytes consumes op's fixed-shape immediates (if any) so the
// scanner can keep walking past opcodes it does not otherwise special-case,
// mirroring the teacher's per-opcode decode dispatch. Returns -1 only for a
// byte this scanner cannot classify at all.
func immediateBytes(op wasmtype.Opcode, r *bytes.Reader) int {
	switch op {
	case wasmtype.OpBr, wasmtype.OpBrIf, wasmtype.OpCall, wasmtype.OpReturnCall,
		wasmtype.OpLocalGet, wasmtype.OpLocalSet, wasmtype.OpLocalTee,
		wasmtype.OpGlobalGet, wasmtype.OpGlobalSet,
		wasmtype.OpI32Const, wasmtype.OpMemoryGrow, wasmtype.OpMemorySize:
		leb128.DecodeUint32(r)
		return 1
	case wasmtype.OpI64Const:
		leb128.DecodeInt64(r)
		return 1
	case wasmtype.OpCallIndirect, wasmtype.OpReturnCallIndirect:
		leb128.DecodeUint32(r)
		leb128.DecodeUint32(r)
		return 2
	case wasmtype.OpF32Const:
		r.Seek(4, io.SeekCurrent)
		return 1
	case wasmtype.OpF64Const:
		r.Seek(8, io.SeekCurrent)
		return 1
	default:
		if hasMemArg(op) {
			leb128.DecodeUint32(r)
			leb128.DecodeUint32(r)
			return 2
		}
		if op.Mnemonic() == "" {
			return -1
		}
		return 0 // no immediate: unreachable, nop, drop, select, arithmetic, return, end-less terminators, etc.
	}
}

func hasMemArg(op wasmtype.Opcode) bool {
	return op >= wasmtype.OpI32Load && op <= wasmtype.OpI64Store32
}
