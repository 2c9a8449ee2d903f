package emit

import (
	"fmt"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// GlobalLookup resolves a globalized constant's fingerprint to its module
// global index, per spec.md §4.3's "fingerprint is in globalizedConstants"
// and §4.11's finalized globalization map. Returns ok=false for a
// constant the planner didn't promote.
type GlobalLookup func(fingerprint string) (id uint32, ok bool)

// ConstantEmitter lowers ir.Constant values per spec.md §4.3: literal
// encoding for scalars, `global.get` for globalized constants, and
// recursive opcode lowering for ConstantExpr.
type ConstantEmitter struct {
	buf      *code.Buffer
	stack    *OperandStack
	globals  GlobalLookup
	addrOfFn func(f *ir.Function) uint32
	addrOfG  func(g *ir.GlobalVar) uint32
}

// NewConstantEmitter returns a ConstantEmitter bound to one function's
// buffer and operand stack, plus the module-level collaborators spec.md
// §6 names (getFunctionAddress, getGlobalVariableAddress) and the
// finalized globalization lookup.
func NewConstantEmitter(buf *code.Buffer, stack *OperandStack, globals GlobalLookup, addrOfFn func(f *ir.Function) uint32, addrOfG func(g *ir.GlobalVar) uint32) *ConstantEmitter {
	return &ConstantEmitter{buf: buf, stack: stack, globals: globals, addrOfFn: addrOfFn, addrOfG: addrOfG}
}

// Emit lowers c onto the operand stack.
func (ce *ConstantEmitter) Emit(c *ir.Constant) {
	if id, ok := ce.globals(c.Fingerprint()); ok {
		ce.buf.Emit(code.Instr{Op: wasmtype.OpGlobalGet, Idx: id})
		return
	}
	ce.emitLiteral(c)
}

func (ce *ConstantEmitter) emitLiteral(c *ir.Constant) {
	switch {
	case c.IsNullPointer:
		ce.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: 0})
	case c.Func != nil:
		ce.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(ce.addrOfFn(c.Func))})
	case c.Global != nil:
		ce.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(ce.addrOfG(c.Global))})
	case c.Expr != nil:
		ce.emitExpr(c.Expr)
	default:
		ce.emitScalar(c)
	}
}

func (ce *ConstantEmitter) emitScalar(c *ir.Constant) {
	switch c.Kind {
	case wasmtype.I32:
		ce.buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: c.I32})
	case wasmtype.I64:
		ce.buf.Emit(code.Instr{Op: wasmtype.OpI64Const, I64: c.I64})
	case wasmtype.F32:
		ce.buf.Emit(code.Instr{Op: wasmtype.OpF32Const, F32: c.F32})
	case wasmtype.F64:
		ce.buf.Emit(code.Instr{Op: wasmtype.OpF64Const, F64: c.F64})
	default:
		panic(fmt.Errorf("emit: unsupported constant kind %v", c.Kind))
	}
}

func (ce *ConstantEmitter) emitExpr(e *ir.ConstantExpr) {
	switch e.Op {
	case ir.ConstExprAdd, ir.ConstExprSub, ir.ConstExprAnd, ir.ConstExprOr:
		ce.Emit(e.Operands[0])
		ce.Emit(e.Operands[1])
		ce.buf.Emit(code.Instr{Op: binOpForExpr(e.Op, e.Kind)})
	case ir.ConstExprBitCast:
		ce.Emit(e.Operands[0])
	case ir.ConstExprICmp:
		ce.Emit(e.Operands[0])
		ce.Emit(e.Operands[1])
		ce.buf.Emit(code.Instr{Op: icmpOpcode(e.Predicate, e.Kind)})
	case ir.ConstExprSelect:
		ce.Emit(e.Operands[1])
		ce.Emit(e.Operands[2])
		ce.Emit(e.Operands[0])
		ce.buf.Emit(code.Instr{Op: wasmtype.OpSelect})
	case ir.ConstExprGEP:
		base, g := LowerGEP(ce.buf, ce.stack, e.GEP)
		if base != nil {
			ce.stack.Push(base)
		}
		g.Finish()
	default:
		panic(fmt.Errorf("emit: unsupported constant expr op %v", e.Op))
	}
}

// binOpForExpr maps a ConstantExpr's add/sub/and/or to the width-correct
// Wasm opcode (spec.md §4.3).
func binOpForExpr(op ir.ConstantExprOp, kind wasmtype.ValueKind) wasmtype.Opcode {
	is64 := kind == wasmtype.I64
	switch op {
	case ir.ConstExprAdd:
		if is64 {
			return wasmtype.OpI64Add
		}
		return wasmtype.OpI32Add
	case ir.ConstExprSub:
		if is64 {
			return wasmtype.OpI64Sub
		}
		return wasmtype.OpI32Sub
	case ir.ConstExprAnd:
		if is64 {
			return wasmtype.OpI64And
		}
		return wasmtype.OpI32And
	case ir.ConstExprOr:
		if is64 {
			return wasmtype.OpI64Or
		}
		return wasmtype.OpI32Or
	}
	panic(fmt.Errorf("emit: binOpForExpr: not a binary op %v", op))
}
