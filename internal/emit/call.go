package emit

import (
	"fmt"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// lowerCall emits a direct or indirect call, choosing the tail-call
// opcode when the instruction was marked as being in tail position
// (spec.md §4.5).
func (c *Context) lowerCall(instr *ir.Instruction) {
	for _, arg := range instr.Args {
		c.Stack.Push(arg)
	}
	if instr.Opcode == ir.OpCallDirect {
		if instr.Callee.Declared && !c.Module.Options.UseWasmLoader {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpUnreachable})
			return
		}
		op := wasmtype.OpCall
		if instr.TailCall {
			op = wasmtype.OpReturnCall
		}
		c.Buf.Emit(code.Instr{Op: op, Idx: ir.GetFunctionID(instr.Callee)})
		return
	}
	c.Stack.Push(instr.CalleeValue)
	op := wasmtype.OpCallIndirect
	if instr.TailCall {
		op = wasmtype.OpReturnCallIndirect
	}
	c.Buf.Emit(code.Instr{Op: op, Idx: instr.CalleeType, Idx2: 0})
}

// lowerIntrinsic dispatches the fixed intrinsic vocabulary of spec.md
// §4.5.
func (c *Context) lowerIntrinsic(instr *ir.Instruction) {
	switch instr.Intrinsic {
	case ir.IntrinsicTrap:
		c.Buf.Emit(code.Instr{Op: wasmtype.OpUnreachable})
	case ir.IntrinsicStackSave:
		c.Buf.Emit(code.Instr{Op: wasmtype.OpGlobalGet, Idx: 0})
	case ir.IntrinsicStackRestore:
		c.Stack.Push(instr.Args[0])
		c.Buf.Emit(code.Instr{Op: wasmtype.OpGlobalSet, Idx: 0})
	case ir.IntrinsicMemcpy:
		c.callRuntime(ir.RuntimeMemcpy, instr.Args, true)
	case ir.IntrinsicMemset:
		c.callRuntime(ir.RuntimeMemset, instr.Args, true)
	case ir.IntrinsicMemmove:
		c.callRuntime(ir.RuntimeMemmove, instr.Args, true)
	case ir.IntrinsicAllocate, ir.IntrinsicAllocateArray:
		c.callRuntime(ir.RuntimeMalloc, instr.Args, false)
	case ir.IntrinsicReallocate:
		c.callRuntime(ir.RuntimeRealloc, instr.Args, false)
	case ir.IntrinsicDeallocate:
		c.callRuntime(ir.RuntimeFree, instr.Args, true)
	case ir.IntrinsicDowncast, ir.IntrinsicVirtualCast:
		c.Stack.Push(instr.Args[0])
		c.Stack.Push(instr.Args[1])
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Add})
	case ir.IntrinsicUpcastCollapsed, ir.IntrinsicCastUser, ir.IntrinsicDowncastCurrent:
		c.Stack.Push(instr.Args[0])
	case ir.IntrinsicGrowMemory:
		c.lowerGrowMemory(instr)
	default:
		switch {
		case instr.Intrinsic.IsMathBuiltin():
			c.lowerMathBuiltin(instr)
		case instr.Intrinsic.IsWasmTypedMath():
			c.lowerWasmTypedMath(instr)
		default:
			panic(fmt.Errorf("emit: unknown intrinsic %v", instr.Intrinsic))
		}
	}
}

// callRuntime resolves sym to its runtime function and emits a direct
// call, dropping the result when the caller doesn't use it (spec.md
// §4.5's "result dropped" for memcpy/memset/memmove, and §7's "missing
// runtime symbol" fatal error).
func (c *Context) callRuntime(sym ir.RuntimeSymbol, args []*ir.Value, dropResult bool) {
	fn, ok := c.Module.Runtime[sym]
	if !ok {
		panic(fmt.Errorf("emit: missing runtime symbol %v", sym))
	}
	for _, arg := range args {
		c.Stack.Push(arg)
	}
	c.Buf.Emit(code.Instr{Op: wasmtype.OpCall, Idx: ir.GetFunctionID(fn)})
	if dropResult && len(fn.ResultKinds()) > 0 {
		c.Stack.Drop()
	}
}

// lowerGrowMemory emits either a call to the imported host growth
// function, or the native memory.grow opcode, depending on the
// use-wasm-loader option (spec.md §4.5, §6).
func (c *Context) lowerGrowMemory(instr *ir.Instruction) {
	c.Stack.Push(instr.Args[0])
	if c.Module.Options.UseWasmLoader && c.Module.GrowMemoryImport != nil {
		c.Buf.Emit(code.Instr{Op: wasmtype.OpCall, Idx: ir.GetFunctionID(c.Module.GrowMemoryImport)})
		return
	}
	c.Buf.Emit(code.Instr{Op: wasmtype.OpMemoryGrow})
}

// lowerMathBuiltin lowers a float-math-builtin intrinsic per spec.md
// §4.5/§6's Options.MathMode. In JS_BUILTINS mode, the builtin is an
// imported host function taking f64 only: arguments are promoted f32→f64,
// the import is called directly, and the result is demoted back if the
// original arguments were f32. In WASM_BUILTINS mode, the builtin is a
// module-local, address-taken function matching the operand's own
// precision, invoked by call_indirect through the function table — no
// promotion, since a WASM_BUILTINS build carries both f32 and f64 variants.
func (c *Context) lowerMathBuiltin(instr *ir.Instruction) {
	sym := mathRuntimeSymbol(instr.Intrinsic)
	fn, ok := c.Module.Runtime[sym]
	if !ok {
		panic(fmt.Errorf("emit: missing runtime symbol for math builtin %v", instr.Intrinsic))
	}

	if c.Module.Options.MathMode == ir.MathModeWasmBuiltins {
		for _, arg := range instr.Args {
			c.Stack.Push(arg)
		}
		c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Const, I32: int32(c.AddrOfFn(fn))})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpCallIndirect, Idx: ir.GetFunctionTypeIndex(fn), Idx2: 0})
		return
	}

	narrow := len(instr.Args) > 0 && instr.Args[0].Kind == wasmtype.F32
	for _, arg := range instr.Args {
		c.Stack.Push(arg)
		if narrow {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF64PromoteF32})
		}
	}
	c.Buf.Emit(code.Instr{Op: wasmtype.OpCall, Idx: ir.GetFunctionID(fn)})
	if narrow {
		c.Buf.Emit(code.Instr{Op: wasmtype.OpF32DemoteF64})
	}
}

// mathRuntimeSymbol maps a math-builtin intrinsic to the RuntimeSymbol the
// module driver resolves it against (spec.md §4.5, §7's "missing runtime
// symbol").
func mathRuntimeSymbol(i ir.Intrinsic) ir.RuntimeSymbol {
	switch i {
	case ir.IntrinsicSin:
		return ir.RuntimeSin
	case ir.IntrinsicCos:
		return ir.RuntimeCos
	case ir.IntrinsicExp:
		return ir.RuntimeExp
	case ir.IntrinsicLog:
		return ir.RuntimeLog
	case ir.IntrinsicPow:
		return ir.RuntimePow
	case ir.IntrinsicAtan:
		return ir.RuntimeAtan
	case ir.IntrinsicAtan2:
		return ir.RuntimeAtan2
	case ir.IntrinsicAcos:
		return ir.RuntimeAcos
	case ir.IntrinsicAsin:
		return ir.RuntimeAsin
	default:
		return ir.RuntimeTan
	}
}

func (c *Context) lowerWasmTypedMath(instr *ir.Instruction) {
	v := instr.Args[0]
	c.Stack.Push(v)
	f64 := v.Kind == wasmtype.F64
	switch instr.Intrinsic {
	case ir.IntrinsicCtlz:
		if v.Kind == wasmtype.I64 {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpI64Clz})
		} else {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpI32Clz})
		}
	case ir.IntrinsicFabs:
		if f64 {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF64Abs})
		} else {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF32Abs})
		}
	case ir.IntrinsicCeil:
		if f64 {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF64Ceil})
		} else {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF32Ceil})
		}
	case ir.IntrinsicFloor:
		if f64 {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF64Floor})
		} else {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF32Floor})
		}
	case ir.IntrinsicTruncF:
		if f64 {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF64Trunc})
		} else {
			c.Buf.Emit(code.Instr{Op: wasmtype.OpF32Trunc})
		}
	case ir.IntrinsicMinNum, ir.IntrinsicMaxNum, ir.IntrinsicCopysign:
		c.Stack.Push(instr.Args[1])
		c.Buf.Emit(code.Instr{Op: wasmTypedMathBinOp(instr.Intrinsic, f64)})
	}
}

func wasmTypedMathBinOp(i ir.Intrinsic, f64 bool) wasmtype.Opcode {
	switch i {
	case ir.IntrinsicMinNum:
		if f64 {
			return wasmtype.OpF64Min
		}
		return wasmtype.OpF32Min
	case ir.IntrinsicMaxNum:
		if f64 {
			return wasmtype.OpF64Max
		}
		return wasmtype.OpF32Max
	default:
		if f64 {
			return wasmtype.OpF64Copysign
		}
		return wasmtype.OpF32Copysign
	}
}
