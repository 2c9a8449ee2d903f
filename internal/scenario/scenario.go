// Package scenario builds the small literal IR modules of spec.md §8's S1
// and S2 scenarios, shared between cmd/wasm2mod's demo mode and the
// emitter's own tests so both exercise the exact same hand-built input.
package scenario

import (
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

func param(kind wasmtype.ValueKind, idx int) *ir.Value {
	return &ir.Value{Kind: kind, Reg: ir.RegisterID(idx), Param: idx}
}

// EmptyReturn builds S1: `define i32 @f() { ret i32 0 }`.
func EmptyReturn() *ir.Module {
	ret := &ir.Instruction{
		Opcode:   ir.OpRet,
		Operands: []*ir.Value{{Kind: wasmtype.I32, Reg: ir.NoRegister, Const: &ir.Constant{Kind: wasmtype.I32, I32: 0}}},
	}
	block := &ir.BasicBlock{Label: "entry", Terminator: ret}
	fn := &ir.Function{
		Name:   "f",
		Result: wasmtype.I32,
		Blocks: []*ir.BasicBlock{block},
		Entry:  block,
	}
	return oneFunctionModule(fn)
}

// AddTwoParams builds S2: two i32 parameters, `ret i32 add i32 %a, %b`, the
// add inlined directly into the return (spec.md §8 S2).
func AddTwoParams() *ir.Module {
	a := param(wasmtype.I32, 0)
	b := param(wasmtype.I32, 1)
	add := &ir.Instruction{
		Opcode:     ir.OpAdd,
		Result:     wasmtype.I32,
		Operands:   []*ir.Value{a, b},
		Register:   ir.NoRegister,
		Inlineable: true,
	}
	ret := &ir.Instruction{
		Opcode:   ir.OpRet,
		Operands: []*ir.Value{add.AsValue()},
	}
	block := &ir.BasicBlock{Label: "entry", Terminator: ret}
	fn := &ir.Function{
		Name:   "f",
		Params: []ir.ValueKind{wasmtype.I32, wasmtype.I32},
		Result: wasmtype.I32,
		Blocks: []*ir.BasicBlock{block},
		Entry:  block,
	}
	return oneFunctionModule(fn)
}

func oneFunctionModule(fn *ir.Function) *ir.Module {
	return &ir.Module{
		Functions: []*ir.Function{fn},
		Entry:     fn,
		Options:   ir.Options{HeapSizeMiB: 1, NoGrowMemory: true},
	}
}
