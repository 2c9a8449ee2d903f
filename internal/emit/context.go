package emit

import (
	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// Context bundles one function's emission state: the buffer it writes
// to and the collaborators that schedule writes into it (spec.md §5:
// "each function must own an independent OperandStack, TeeLocalPeephole,
// and DependencyTracker"). Read-only, module-wide analyses are passed in
// by reference and shared across functions.
type Context struct {
	Module *ir.Module
	Fn     *ir.Function
	Buf    *code.Buffer
	Stack  *OperandStack
	Tee    *TeeLocalPeephole
	Deps   *DependencyTracker
	Const  *ConstantEmitter

	LocalOf LocalIndexer

	// AddrOfFn resolves a function to its function-table index, the
	// getFunctionTableIndex(f) collaborator (spec.md §6). Only meaningful
	// for address-taken functions; used for indirect calls, including
	// MathModeWasmBuiltins math builtins (spec.md §4.5).
	AddrOfFn func(*ir.Function) uint32
}

// NewContext wires up a fresh Context for fn. localOf and globals are the
// module-level collaborators (register-to-local map, globalization
// lookup, function/global address resolution) supplied by the caller
// (spec.md §6).
func NewContext(mod *ir.Module, fn *ir.Function, localOf LocalIndexer, globals GlobalLookup, addrOfFn func(*ir.Function) uint32, addrOfG func(*ir.GlobalVar) uint32) *Context {
	buf := &code.Buffer{}
	tee := NewTeeLocalPeephole(buf)
	ctx := &Context{
		Module:   mod,
		Fn:       fn,
		Buf:      buf,
		Tee:      tee,
		Deps:     NewDependencyTracker(),
		LocalOf:  localOf,
		AddrOfFn: addrOfFn,
	}
	ctx.Stack = NewOperandStack(buf, tee, localOf, ctx.emitInline)
	ctx.Const = NewConstantEmitter(buf, ctx.Stack, globals, addrOfFn, addrOfG)
	ctx.Stack.emitConst = ctx.Const.Emit
	return ctx
}

// emitInline is the InlineEmitter callback handed to OperandStack: it
// recurses into an inlineable producer's defining instruction, emitting
// it directly onto the stack without a local.get (spec.md §4.6).
func (c *Context) emitInline(instr *ir.Instruction) {
	c.lowerOpcode(instr)
}

// EmitStatement emits instr as a top-level, non-inlineable instruction:
// flush its dependencies, record the stack-empty point, lower its
// opcode, then either drop, set a local, or leave the result on the
// stack for the caller depending on its use count and position (spec.md
// §4.8, §4.10).
func (c *Context) EmitStatement(instr *ir.Instruction, hasUses, isLastAndConsumed bool) {
	c.flushDeps(instr)
	c.Stack.BeginInstruction()
	c.lowerOpcode(instr)
	if instr.Result == wasmtype.Void {
		return
	}
	switch {
	case isLastAndConsumed:
		// Result stays on the stack for the caller (e.g. the value a
		// `return` consumes, or an operand of the instruction that
		// follows in the same statement sequence).
	case hasUses:
		c.Stack.SetLocal(instr.AsValue())
	default:
		c.Stack.Drop()
	}
}

// flushDeps recursively emits instr's unmet memory/local dependencies
// under a peephole sub-scope, so tee candidates created while flushing
// don't leak into instr's own scheduling (spec.md §4.8).
func (c *Context) flushDeps(instr *ir.Instruction) {
	deps := c.Deps.Flush(instr)
	if len(deps) == 0 {
		return
	}
	c.Tee.PushScope()
	for _, dep := range deps {
		c.Stack.BeginInstruction()
		c.lowerOpcode(dep)
		if dep.Result != wasmtype.Void {
			c.Stack.SetLocal(dep.AsValue())
		}
	}
	c.Tee.PopScope()
}
