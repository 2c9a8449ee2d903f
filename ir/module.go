package ir

// GlobalVar is an IR-level global variable living in linear memory, or (once
// the globalization planner or the layout planner promotes it) as a module
// global (spec.md §3 GlobalConstant, encoding GLOBAL).
type GlobalVar struct {
	Name    string
	Kind    ValueKind
	Init    *Constant
	Mutable bool

	// Address is this global's linear-memory address, the
	// getGlobalVariableAddress(g) collaborator of spec.md §6. Meaningless
	// once PromoteToGlobal is set.
	Address uint32

	// SingleScalarAddressNeverTaken is set by the (external) layout
	// planner for globals eligible for the GLOBAL encoding (spec.md §3,
	// §4.11: "IR global variable marked by the layout planner as 'single
	// scalar, address never taken'").
	SingleScalarAddressNeverTaken bool

	// PromoteToGlobal is filled in by the GlobalizationPlanner once it
	// decides to apply the GLOBAL encoding; GlobalIndex is then valid.
	PromoteToGlobal bool
	GlobalIndex      uint32
}

// DataSegment is one initialized region of linear memory, emitted by the
// module driver's data section assembly (spec.md §4.12).
type DataSegment struct {
	Offset uint32
	Bytes  []byte
}

// MathMode selects how math builtins are lowered (spec.md §6 Options).
type MathMode int

const (
	MathModeJSBuiltins MathMode = iota
	MathModeWasmBuiltins
)

// EmitMode selects binary vs. textual output (spec.md §6 Options).
type EmitMode int

const (
	EmitWasm EmitMode = iota
	EmitWast
)

// Options mirrors spec.md §6's options list verbatim.
type Options struct {
	HeapSizeMiB    uint32
	UseWasmLoader  bool
	PrettyCode     bool // emit Name section
	UseCFGLegacy   bool // relooper vs. stackifier
	SharedMemory   bool
	NoGrowMemory   bool
	ExportedTable  bool
	Mode           EmitMode
	AvoidWasmTraps bool
	MathMode       MathMode
}

// RuntimeSymbol names a runtime function the emitter must resolve to a
// function index before it can lower memcpy/memset/memmove/allocation
// intrinsics (spec.md §4.5, §7 "Missing runtime symbol").
type RuntimeSymbol int

const (
	RuntimeMalloc RuntimeSymbol = iota
	RuntimeRealloc
	RuntimeFree
	RuntimeMemcpy
	RuntimeMemset
	RuntimeMemmove

	// The float-math-builtin symbols (spec.md §4.5): resolved to an
	// imported host function in MathModeJSBuiltins, or to a module-local,
	// address-taken function reached through the function table in
	// MathModeWasmBuiltins (spec.md §6 Options.MathMode).
	RuntimeSin
	RuntimeCos
	RuntimeExp
	RuntimeLog
	RuntimePow
	RuntimeAtan
	RuntimeAtan2
	RuntimeAcos
	RuntimeAsin
	RuntimeTan
)

// Module is the whole compilation unit: every function, global, data
// segment and the handful of distinguished functions (entry point, static
// constructors, exports, imports) the module driver needs (spec.md §4.12,
// §6).
type Module struct {
	Functions []*Function
	Globals   []*GlobalVar
	Data      []*DataSegment

	Entry        *Function
	Constructors []*Function
	Exports      []*Function
	ExportNames  map[*Function]string
	Imports      []*Function

	// Runtime maps each symbol this module actually needs to the resolved
	// function, or leaves it absent if unresolved (fatal per spec.md §7
	// if a lowering needs it).
	Runtime map[RuntimeSymbol]*Function

	// StackPointerGlobal backs the `stacksave`/`stackrestore` intrinsics
	// (spec.md §4.5) and reserves global id 0 (spec.md §4.11).
	StackPointerGlobal *GlobalVar

	// GrowMemoryImport is the imported host function used for
	// `grow_memory` when Options.UseWasmLoader is set instead of the
	// native memory.grow opcode (spec.md §4.5).
	GrowMemoryImport *Function

	Options Options
}
