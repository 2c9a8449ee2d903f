package emit

import (
	"fmt"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// lowerOpcode emits instr's opcode sequence onto the operand stack
// (spec.md §4.5). It is the single dispatch point shared by statement
// emission and inlineable-operand recursion.
func (c *Context) lowerOpcode(instr *ir.Instruction) {
	switch instr.Opcode {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpSDiv, ir.OpUDiv, ir.OpSRem, ir.OpURem,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv:
		c.lowerBinary(instr)
	case ir.OpFRem:
		c.lowerFRem(instr)
	case ir.OpFNeg:
		c.lowerFNeg(instr)
	case ir.OpICmp:
		c.lowerICmp(instr)
	case ir.OpFCmp:
		c.lowerFCmp(instr)
	case ir.OpLoad:
		c.lowerLoad(instr)
	case ir.OpStore:
		c.lowerStore(instr)
	case ir.OpGEP:
		c.lowerGEP(instr)
	case ir.OpTrunc:
		c.Stack.Push(instr.Operands[0])
	case ir.OpZExt:
		c.lowerZExt(instr)
	case ir.OpSExt:
		c.lowerSExt(instr)
	case ir.OpFPToSI, ir.OpFPToUI:
		c.lowerFPToInt(instr)
	case ir.OpSIToFP, ir.OpUIToFP:
		c.lowerIntToFP(instr)
	case ir.OpFPTrunc:
		c.Stack.Push(instr.Operands[0])
		c.Buf.Emit(code.Instr{Op: wasmtype.OpF32DemoteF64})
	case ir.OpFPExt:
		c.Stack.Push(instr.Operands[0])
		c.Buf.Emit(code.Instr{Op: wasmtype.OpF64PromoteF32})
	case ir.OpBitCast, ir.OpIntToPtr, ir.OpPtrToInt:
		c.Stack.Push(instr.Operands[0])
	case ir.OpSelect:
		c.lowerSelect(instr)
	case ir.OpPhi:
		panic(fmt.Errorf("emit: OpPhi must be resolved by control lowering, not lowerOpcode"))
	case ir.OpBr:
		c.Buf.Emit(code.Instr{Op: wasmtype.OpBr})
	case ir.OpCondBr:
		c.Stack.Push(instr.Operands[0])
		c.Buf.Emit(code.Instr{Op: wasmtype.OpBrIf})
	case ir.OpRet:
		if len(instr.Operands) > 0 {
			c.Stack.Push(instr.Operands[0])
		}
		c.Buf.Emit(code.Instr{Op: wasmtype.OpReturn})
	case ir.OpRetVoid:
		c.Buf.Emit(code.Instr{Op: wasmtype.OpReturn})
	case ir.OpUnreachable:
		c.Buf.Emit(code.Instr{Op: wasmtype.OpUnreachable})
	case ir.OpCallDirect, ir.OpCallIndirect:
		c.lowerCall(instr)
	case ir.OpCallIntrinsic:
		c.lowerIntrinsic(instr)
	case ir.OpSwitch:
		panic(fmt.Errorf("emit: OpSwitch must be lowered by control lowering, not lowerOpcode"))
	default:
		panic(fmt.Errorf("emit: unsupported opcode %v", instr.Opcode))
	}
}

// isF64 and isI64 classify instr's result/operand width for picking
// between the i32/i64/f32/f64 opcode family.
func isF64(k wasmtype.ValueKind) bool { return k == wasmtype.F64 }
func isI64(k wasmtype.ValueKind) bool { return k == wasmtype.I64 }

// lowerBinary pushes both operands — reordered, for a commutative opcode
// whose operands are both non-inlineable (so both live in locals), to favor
// whichever the tee-peephole can still fold (spec.md §4.5) — and
// emits the matching opcode.
func (c *Context) lowerBinary(instr *ir.Instruction) {
	a, b := instr.Operands[0], instr.Operands[1]
	if isCommutative(instr.Opcode) && !a.IsInlineable() && !b.IsInlineable() {
		if c.Stack.Depth(b) >= 0 && (c.Stack.Depth(a) < 0 || c.Stack.Depth(b) < c.Stack.Depth(a)) {
			a, b = b, a
		}
	}
	c.Stack.Push(a)
	c.Stack.Push(b)
	c.Buf.Emit(code.Instr{Op: binaryOpcode(instr.Opcode, instr.Result, instr.Signed)})
}

func isCommutative(op ir.Opcode) bool {
	switch op {
	case ir.OpAdd, ir.OpMul, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpFAdd, ir.OpFMul:
		return true
	default:
		return false
	}
}

func binaryOpcode(op ir.Opcode, kind wasmtype.ValueKind, signed bool) wasmtype.Opcode {
	i64, f64 := isI64(kind), isF64(kind)
	switch op {
	case ir.OpAdd:
		if i64 {
			return wasmtype.OpI64Add
		}
		if kind == wasmtype.F32 {
			return wasmtype.OpF32Add
		}
		if f64 {
			return wasmtype.OpF64Add
		}
		return wasmtype.OpI32Add
	case ir.OpSub:
		if i64 {
			return wasmtype.OpI64Sub
		}
		if kind == wasmtype.F32 {
			return wasmtype.OpF32Sub
		}
		if f64 {
			return wasmtype.OpF64Sub
		}
		return wasmtype.OpI32Sub
	case ir.OpMul:
		if i64 {
			return wasmtype.OpI64Mul
		}
		if kind == wasmtype.F32 {
			return wasmtype.OpF32Mul
		}
		if f64 {
			return wasmtype.OpF64Mul
		}
		return wasmtype.OpI32Mul
	case ir.OpSDiv:
		if i64 {
			return wasmtype.OpI64DivS
		}
		return wasmtype.OpI32DivS
	case ir.OpUDiv:
		if i64 {
			return wasmtype.OpI64DivU
		}
		return wasmtype.OpI32DivU
	case ir.OpSRem:
		if i64 {
			return wasmtype.OpI64RemS
		}
		return wasmtype.OpI32RemS
	case ir.OpURem:
		if i64 {
			return wasmtype.OpI64RemU
		}
		return wasmtype.OpI32RemU
	case ir.OpAnd:
		if i64 {
			return wasmtype.OpI64And
		}
		return wasmtype.OpI32And
	case ir.OpOr:
		if i64 {
			return wasmtype.OpI64Or
		}
		return wasmtype.OpI32Or
	case ir.OpXor:
		if i64 {
			return wasmtype.OpI64Xor
		}
		return wasmtype.OpI32Xor
	case ir.OpShl:
		if i64 {
			return wasmtype.OpI64Shl
		}
		return wasmtype.OpI32Shl
	case ir.OpLShr:
		if i64 {
			return wasmtype.OpI64ShrU
		}
		return wasmtype.OpI32ShrU
	case ir.OpAShr:
		if i64 {
			return wasmtype.OpI64ShrS
		}
		return wasmtype.OpI32ShrS
	case ir.OpFDiv:
		if kind == wasmtype.F32 {
			return wasmtype.OpF32Div
		}
		return wasmtype.OpF64Div
	}
	panic(fmt.Errorf("emit: binaryOpcode: unhandled op %v", op))
}

// lowerFRem has no Wasm instruction: x - trunc(x/y)*y (spec.md §4.5).
func (c *Context) lowerFRem(instr *ir.Instruction) {
	x, y := instr.Operands[0], instr.Operands[1]
	is64 := instr.Result == wasmtype.F64
	divOp, truncOp, mulOp, subOp := wasmtype.OpF32Div, wasmtype.OpF32Trunc, wasmtype.OpF32Mul, wasmtype.OpF32Sub
	if is64 {
		divOp, truncOp, mulOp, subOp = wasmtype.OpF64Div, wasmtype.OpF64Trunc, wasmtype.OpF64Mul, wasmtype.OpF64Sub
	}
	c.Stack.Push(x)
	c.Stack.Push(x)
	c.Stack.Push(y)
	c.Buf.Emit(code.Instr{Op: divOp})
	c.Buf.Emit(code.Instr{Op: truncOp})
	c.Stack.Push(y)
	c.Buf.Emit(code.Instr{Op: mulOp})
	c.Buf.Emit(code.Instr{Op: subOp})
}

// lowerFNeg recognizes fsub(-0.0, x) at the instruction-selection level
// already (instr.Opcode is OpFNeg in that case, per spec.md §4.5's "FSub
// of negative-zero... is recognized and emitted as f32.neg/f64.neg");
// here it only needs the single opcode.
func (c *Context) lowerFNeg(instr *ir.Instruction) {
	c.Stack.Push(instr.Operands[0])
	if instr.Result == wasmtype.F64 {
		c.Buf.Emit(code.Instr{Op: wasmtype.OpF64Neg})
	} else {
		c.Buf.Emit(code.Instr{Op: wasmtype.OpF32Neg})
	}
}

// lowerICmp handles sign extension of narrow operands and null-compare
// shortcuts (spec.md §4.5).
func (c *Context) lowerICmp(instr *ir.Instruction) {
	a, b := instr.Operands[0], instr.Operands[1]
	if isZeroConst(b) {
		c.pushSignAware(a, instr.Width, instr.ICmpPred.IsSigned())
		switch instr.ICmpPred {
		case ir.ICmpEq:
			c.Buf.Emit(code.Instr{Op: eqzOpcode(a.Kind)})
			return
		case ir.ICmpNe:
			return
		}
	} else {
		c.pushSignAware(a, instr.Width, instr.ICmpPred.IsSigned())
		c.pushSignAware(b, instr.Width, instr.ICmpPred.IsSigned())
	}
	c.Buf.Emit(code.Instr{Op: icmpOpcode(instr.ICmpPred, a.Kind)})
}

func isZeroConst(v *ir.Value) bool {
	return v.Const != nil && !v.Const.IsNullPointer && v.Const.Expr == nil &&
		v.Const.I32 == 0 && v.Const.I64 == 0
}

func eqzOpcode(kind wasmtype.ValueKind) wasmtype.Opcode {
	if kind == wasmtype.I64 {
		return wasmtype.OpI64Eqz
	}
	return wasmtype.OpI32Eqz
}

func icmpOpcode(p ir.ICmpPredicate, kind wasmtype.ValueKind) wasmtype.Opcode {
	i64 := kind == wasmtype.I64
	table32 := map[ir.ICmpPredicate]wasmtype.Opcode{
		ir.ICmpEq: wasmtype.OpI32Eq, ir.ICmpNe: wasmtype.OpI32Ne,
		ir.ICmpSLt: wasmtype.OpI32LtS, ir.ICmpSLe: wasmtype.OpI32LeS,
		ir.ICmpSGt: wasmtype.OpI32GtS, ir.ICmpSGe: wasmtype.OpI32GeS,
		ir.ICmpULt: wasmtype.OpI32LtU, ir.ICmpULe: wasmtype.OpI32LeU,
		ir.ICmpUGt: wasmtype.OpI32GtU, ir.ICmpUGe: wasmtype.OpI32GeU,
	}
	table64 := map[ir.ICmpPredicate]wasmtype.Opcode{
		ir.ICmpEq: wasmtype.OpI64Eq, ir.ICmpNe: wasmtype.OpI64Ne,
		ir.ICmpSLt: wasmtype.OpI64LtS, ir.ICmpSLe: wasmtype.OpI64LeS,
		ir.ICmpSGt: wasmtype.OpI64GtS, ir.ICmpSGe: wasmtype.OpI64GeS,
		ir.ICmpULt: wasmtype.OpI64LtU, ir.ICmpULe: wasmtype.OpI64LeU,
		ir.ICmpUGt: wasmtype.OpI64GtU, ir.ICmpUGe: wasmtype.OpI64GeU,
	}
	if i64 {
		return table64[p]
	}
	return table32[p]
}

// pushSignAware pushes v, sign- or zero-extending a narrow integer for a
// signed or unsigned consumer, unless it is already a load extended the
// same way or, for a signed consumer, a known-signed constant: an i32
// literal whose value already fits width bits sign-extended (spec.md §4.5).
func (c *Context) pushSignAware(v *ir.Value, width int, signed bool) {
	c.Stack.Push(v)
	if width == 0 || width >= 32 {
		return
	}
	if v.Def != nil && v.Def.Opcode == ir.OpLoad && v.Def.Signed == signed {
		return
	}
	shift := int32(32 - width)
	if k := v.Const; signed && k != nil && k.Kind == wasmtype.I32 && k.Expr == nil && k.Func == nil &&
		k.Global == nil && (k.I32<<uint(shift))>>uint(shift) == k.I32 {
		return
	}
	if signed {
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: shift})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Shl})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: shift})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32ShrS})
	} else {
		mask := int32((int64(1) << width) - 1)
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: mask})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32And})
	}
}

// lowerFCmp implements spec.md §4.5's ord/uno decomposition and the
// unordered-predicate inversion.
func (c *Context) lowerFCmp(instr *ir.Instruction) {
	a, b := instr.Operands[0], instr.Operands[1]
	switch instr.FCmpPred {
	case ir.FCmpOrd:
		c.pushSelfCompare(a, false)
		c.pushSelfCompare(b, false)
		c.Buf.Emit(code.Instr{Op: andOpcode(a.Kind)})
		return
	case ir.FCmpUno:
		c.pushSelfCompare(a, true)
		c.pushSelfCompare(b, true)
		c.Buf.Emit(code.Instr{Op: orOpcode(a.Kind)})
		return
	}
	if ordered, neg := orderedPredicate(instr.FCmpPred); neg {
		c.Stack.Push(a)
		c.Stack.Push(b)
		c.Buf.Emit(code.Instr{Op: fcmpOpcode(ordered, a.Kind)})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Eqz})
	} else {
		c.Stack.Push(a)
		c.Stack.Push(b)
		c.Buf.Emit(code.Instr{Op: fcmpOpcode(ordered, a.Kind)})
	}
}

// pushSelfCompare pushes v and compares it against itself: eq for
// ordered (true iff not NaN), ne for unordered (true iff NaN).
func (c *Context) pushSelfCompare(v *ir.Value, uno bool) {
	c.Stack.Push(v)
	c.Stack.Push(v)
	if uno {
		c.Buf.Emit(code.Instr{Op: neOpcode(v.Kind)})
	} else {
		c.Buf.Emit(code.Instr{Op: eqOpcode(v.Kind)})
	}
}

func eqOpcode(k wasmtype.ValueKind) wasmtype.Opcode {
	if k == wasmtype.F64 {
		return wasmtype.OpF64Eq
	}
	return wasmtype.OpF32Eq
}

func neOpcode(k wasmtype.ValueKind) wasmtype.Opcode {
	if k == wasmtype.F64 {
		return wasmtype.OpF64Ne
	}
	return wasmtype.OpF32Ne
}

func andOpcode(k wasmtype.ValueKind) wasmtype.Opcode { return wasmtype.OpI32And }
func orOpcode(k wasmtype.ValueKind) wasmtype.Opcode  { return wasmtype.OpI32Or }

// orderedPredicate maps an unordered predicate to its ordered complement
// plus a negate-the-result flag, and passes ordered predicates through
// unchanged (spec.md §4.5).
func orderedPredicate(p ir.FCmpPredicate) (ir.FCmpPredicate, bool) {
	switch p {
	case ir.FCmpUEq:
		return ir.FCmpONe, true
	case ir.FCmpUNe:
		return ir.FCmpOEq, true
	case ir.FCmpULt:
		return ir.FCmpOGe, true
	case ir.FCmpULe:
		return ir.FCmpOGt, true
	case ir.FCmpUGt:
		return ir.FCmpOLe, true
	case ir.FCmpUGe:
		return ir.FCmpOLt, true
	default:
		return p, false
	}
}

func fcmpOpcode(p ir.FCmpPredicate, kind wasmtype.ValueKind) wasmtype.Opcode {
	f64 := kind == wasmtype.F64
	switch p {
	case ir.FCmpOEq:
		if f64 {
			return wasmtype.OpF64Eq
		}
		return wasmtype.OpF32Eq
	case ir.FCmpONe:
		if f64 {
			return wasmtype.OpF64Ne
		}
		return wasmtype.OpF32Ne
	case ir.FCmpOLt:
		if f64 {
			return wasmtype.OpF64Lt
		}
		return wasmtype.OpF32Lt
	case ir.FCmpOLe:
		if f64 {
			return wasmtype.OpF64Le
		}
		return wasmtype.OpF32Le
	case ir.FCmpOGt:
		if f64 {
			return wasmtype.OpF64Gt
		}
		return wasmtype.OpF32Gt
	case ir.FCmpOGe:
		if f64 {
			return wasmtype.OpF64Ge
		}
		return wasmtype.OpF32Ge
	}
	panic(fmt.Errorf("emit: fcmpOpcode: unhandled predicate %v", p))
}

// lowerLoad picks the opcode by width and inferred signedness (spec.md
// §4.5), folding a non-negative GEP constant part into the memarg offset
// when the address operand is a GEP.
func (c *Context) lowerLoad(instr *ir.Instruction) {
	addr := instr.Operands[0]
	align, offset := c.pushAddress(addr)
	c.Buf.Emit(code.Instr{Op: loadOpcode(instr.Result, instr.Width, instr.Signed), MemAlign: align, MemOffset: offset})
}

func loadOpcode(kind wasmtype.ValueKind, width int, signed bool) wasmtype.Opcode {
	switch {
	case width == 8 && kind != wasmtype.I64:
		if signed {
			return wasmtype.OpI32Load8S
		}
		return wasmtype.OpI32Load8U
	case width == 16 && kind != wasmtype.I64:
		if signed {
			return wasmtype.OpI32Load16S
		}
		return wasmtype.OpI32Load16U
	case width == 8:
		if signed {
			return wasmtype.OpI64Load8S
		}
		return wasmtype.OpI64Load8U
	case width == 16:
		if signed {
			return wasmtype.OpI64Load16S
		}
		return wasmtype.OpI64Load16U
	case width == 32 && kind == wasmtype.I64:
		if signed {
			return wasmtype.OpI64Load32S
		}
		return wasmtype.OpI64Load32U
	case kind == wasmtype.I64:
		return wasmtype.OpI64Load
	case kind == wasmtype.F32:
		return wasmtype.OpF32Load
	case kind == wasmtype.F64:
		return wasmtype.OpF64Load
	default:
		return wasmtype.OpI32Load
	}
}

// lowerStore masks narrow values first and recognizes a float/double zero
// store, lowering it to an integer zero store to avoid a float literal
// (spec.md §4.5).
func (c *Context) lowerStore(instr *ir.Instruction) {
	addr, val := instr.Operands[0], instr.Operands[1]
	if isFloatZero(val) {
		align, offset := c.pushAddress(addr)
		if val.Kind == wasmtype.F64 {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpI64Const, I64: 0})
			c.Buf.Emit(code.Instr{Op: wasmtype.OpI64Store, MemAlign: align, MemOffset: offset})
		} else {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: 0})
			c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Store, MemAlign: align, MemOffset: offset})
		}
		return
	}
	align, offset := c.pushAddress(addr)
	c.Stack.Push(val)
	if instr.Width != 0 && instr.Width < 32 {
		mask := int32((int64(1) << instr.Width) - 1)
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: mask})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32And})
	}
	c.Buf.Emit(code.Instr{Op: storeOpcode(val.Kind, instr.Width), MemAlign: align, MemOffset: offset})
}

func isFloatZero(v *ir.Value) bool {
	if v.Const == nil || v.Const.Expr != nil {
		return false
	}
	if v.Kind == wasmtype.F32 {
		return v.Const.F32 == 0
	}
	if v.Kind == wasmtype.F64 {
		return v.Const.F64 == 0
	}
	return false
}

func storeOpcode(kind wasmtype.ValueKind, width int) wasmtype.Opcode {
	switch {
	case width == 8 && kind != wasmtype.I64:
		return wasmtype.OpI32Store8
	case width == 16 && kind != wasmtype.I64:
		return wasmtype.OpI32Store16
	case width == 8:
		return wasmtype.OpI64Store8
	case width == 16:
		return wasmtype.OpI64Store16
	case width == 32 && kind == wasmtype.I64:
		return wasmtype.OpI64Store32
	case kind == wasmtype.I64:
		return wasmtype.OpI64Store
	case kind == wasmtype.F32:
		return wasmtype.OpF32Store
	case kind == wasmtype.F64:
		return wasmtype.OpF64Store
	default:
		return wasmtype.OpI32Store
	}
}

// pushAddress pushes addr onto the stack and returns the memarg
// (alignment-log2, always 0 whatever the access width, and offset) to attach to the
// following load/store, folding a GEP's constant part into the offset
// immediate when possible (spec.md §4.4, §4.5).
func (c *Context) pushAddress(addr *ir.Value) (align, offset uint32) {
	if addr.Def != nil && addr.Def.Opcode == ir.OpGEP {
		base, g := LowerGEP(c.Buf, c.Stack, addr.Def.GEP)
		if base != nil {
			c.Stack.Push(base)
		}
		if off, ok := g.FoldableOffset(); ok {
			g.ConsumeFoldableOffset()
			return 0, off
		}
		g.Finish()
		return 0, 0
	}
	c.Stack.Push(addr)
	return 0, 0
}

// lowerGEP emits a bare GEP result (not immediately absorbed by a
// load/store's memarg): the full address computation, constant part
// included.
func (c *Context) lowerGEP(instr *ir.Instruction) {
	base, g := LowerGEP(c.Buf, c.Stack, instr.GEP)
	if base != nil {
		c.Stack.Push(base)
	}
	g.Finish()
}

// lowerZExt masks to the narrow width; lowerSExt shifts, unless the
// operand is already a signed load (spec.md §4.5).
func (c *Context) lowerZExt(instr *ir.Instruction) {
	v := instr.Operands[0]
	c.Stack.Push(v)
	if instr.Result == wasmtype.I64 && v.Kind != wasmtype.I64 {
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI64ExtendI32U})
	}
	if instr.Width != 0 && instr.Width < 32 {
		mask := int32((int64(1) << instr.Width) - 1)
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: mask})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32And})
	}
}

func (c *Context) lowerSExt(instr *ir.Instruction) {
	v := instr.Operands[0]
	c.Stack.Push(v)
	alreadySigned := v.Def != nil && v.Def.Opcode == ir.OpLoad && v.Def.Signed
	if !alreadySigned && instr.Width != 0 && instr.Width < 32 {
		shift := int32(32 - instr.Width)
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: shift})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Shl})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: shift})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32ShrS})
	}
	if instr.Result == wasmtype.I64 && v.Kind != wasmtype.I64 {
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI64ExtendI32S})
	}
}

// lowerFPToInt inserts a trap-avoidance pre-check in AvoidWasmTraps mode
// (spec.md §4.5): `trunc_s/u` traps on out-of-range input, so an in-range
// comparison (lower bound inclusive, upper bound exclusive) guards an `if`
// whose then-arm runs the trunc and whose else-arm yields a safe default
// (INT_MIN signed, 0 unsigned); the trunc never runs on out-of-range input.
func (c *Context) lowerFPToInt(instr *ir.Instruction) {
	v := instr.Operands[0]
	signed := instr.Opcode == ir.OpFPToSI
	op := fpToIntOpcode(signed, instr.Result, v.Kind)
	if !c.Module.Options.AvoidWasmTraps {
		c.Stack.Push(v)
		c.Buf.Emit(code.Instr{Op: op})
		return
	}

	geOp, ltOp := fpCompareOpcodes(v.Kind)
	lower, upper := outOfRangeBounds(signed, instr.Result)

	c.Stack.Push(v)
	c.Buf.Emit(fpConst(v.Kind, lower))
	c.Buf.Emit(code.Instr{Op: geOp}) // [v>=lower]

	c.Stack.Push(v)
	c.Buf.Emit(fpConst(v.Kind, upper))
	c.Buf.Emit(code.Instr{Op: ltOp}) // [v>=lower, v<upper]

	c.Buf.Emit(code.Instr{Op: wasmtype.OpI32And}) // [inRange]
	c.Buf.Emit(code.Instr{Op: wasmtype.OpIf, BlockType: instr.Result})
	c.Stack.Push(v)
	c.Buf.Emit(code.Instr{Op: op}) // then: [trunc]
	c.Buf.Emit(code.Instr{Op: wasmtype.OpElse})
	c.Buf.Emit(safeDefaultConst(signed, instr.Result)) // else: [default]
	c.Buf.Emit(code.Instr{Op: wasmtype.OpEnd})
}

// fpCompareOpcodes returns the >= and < comparison opcodes matching kind
// (f32 or f64), so the pre-check's bounds are compared at the operand's
// own precision rather than being rounded through the other width.
func fpCompareOpcodes(kind wasmtype.ValueKind) (ge, lt wasmtype.Opcode) {
	if kind == wasmtype.F64 {
		return wasmtype.OpF64Ge, wasmtype.OpF64Lt
	}
	return wasmtype.OpF32Ge, wasmtype.OpF32Lt
}

// fpConst builds a f32.const/f64.const instruction carrying val, matching
// kind so it can be compared directly against the operand being checked.
func fpConst(kind wasmtype.ValueKind, val float64) code.Instr {
	if kind == wasmtype.F64 {
		return code.Instr{Op: wasmtype.OpF64Const, F64: val}
	}
	return code.Instr{Op: wasmtype.OpF32Const, F32: float32(val)}
}

// outOfRangeBounds returns the bounds of the valid domain for
// trunc_s/trunc_u into to — the lower bound is the smallest in-range value,
// the upper bound the first out-of-range one: [-2^(bits-1), 2^(bits-1)) for
// signed, [0, 2^bits) for unsigned.
func outOfRangeBounds(signed bool, to wasmtype.ValueKind) (lower, upper float64) {
	bits := 32
	if to == wasmtype.I64 {
		bits = 64
	}
	if !signed {
		return 0, float64(uint64(1) << bits)
	}
	half := float64(uint64(1) << (bits - 1))
	return -half, half
}

// safeDefaultConst is the value substituted for an out-of-range trunc:
// the target type's minimum for a signed conversion, zero for unsigned
// (spec.md §4.5).
func safeDefaultConst(signed bool, to wasmtype.ValueKind) code.Instr {
	if to == wasmtype.I64 {
		if signed {
			return code.Instr{Op: wasmtype.OpI64Const, I64: -9223372036854775808}
		}
		return code.Instr{Op: wasmtype.OpI64Const, I64: 0}
	}
	if signed {
		return code.Instr{Op: wasmtype.OpI32Const, I32: -2147483648}
	}
	return code.Instr{Op: wasmtype.OpI32Const, I32: 0}
}

func fpToIntOpcode(signed bool, to, from wasmtype.ValueKind) wasmtype.Opcode {
	f64 := from == wasmtype.F64
	switch {
	case to == wasmtype.I64 && signed && f64:
		return wasmtype.OpI64TruncF64S
	case to == wasmtype.I64 && signed:
		return wasmtype.OpI64TruncF32S
	case to == wasmtype.I64 && f64:
		return wasmtype.OpI64TruncF64U
	case to == wasmtype.I64:
		return wasmtype.OpI64TruncF32U
	case signed && f64:
		return wasmtype.OpI32TruncF64S
	case signed:
		return wasmtype.OpI32TruncF32S
	case f64:
		return wasmtype.OpI32TruncF64U
	default:
		return wasmtype.OpI32TruncF32U
	}
}

func (c *Context) lowerIntToFP(instr *ir.Instruction) {
	v := instr.Operands[0]
	c.Stack.Push(v)
	c.Buf.Emit(code.Instr{Op: intToFPOpcode(instr.Opcode == ir.OpSIToFP, instr.Result, v.Kind)})
}

func intToFPOpcode(signed bool, to, from wasmtype.ValueKind) wasmtype.Opcode {
	i64 := from == wasmtype.I64
	switch {
	case to == wasmtype.F64 && signed && i64:
		return wasmtype.OpF64ConvertI64S
	case to == wasmtype.F64 && signed:
		return wasmtype.OpF64ConvertI32S
	case to == wasmtype.F64 && i64:
		return wasmtype.OpF64ConvertI64U
	case to == wasmtype.F64:
		return wasmtype.OpF64ConvertI32U
	case signed && i64:
		return wasmtype.OpF32ConvertI64S
	case signed:
		return wasmtype.OpF32ConvertI32S
	case i64:
		return wasmtype.OpF32ConvertI64U
	default:
		return wasmtype.OpF32ConvertI32U
	}
}

func (c *Context) lowerSelect(instr *ir.Instruction) {
	cond, t, f := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	c.Stack.Push(t)
	c.Stack.Push(f)
	c.Stack.Push(cond)
	c.Buf.Emit(code.Instr{Op: wasmtype.OpSelect})
}
