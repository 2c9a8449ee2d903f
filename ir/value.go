// Package ir defines the data model the emitter consumes: SSA values,
// instructions, basic blocks, functions, constants, and the relooper/
// stackifier control-flow representations. spec.md §6 lists these as
// external collaborators (register allocator, pointer classifier, linear
// memory layout planner, relooper/stackifier); nothing else in this
// exercise's retrieval pack supplies concrete Go types for them, so this
// package gives the emitter something real to consume. It intentionally
// stays a thin data model — no analysis, no optimization (spec.md §1
// Non-goals).
package ir

import "github.com/leaningtech/llvm-duetto/wasmtype"

// ValueKind aliases wasmtype.ValueKind so the IR and the emitted Wasm share
// one vocabulary for value types (spec.md §3).
type ValueKind = wasmtype.ValueKind

// PointerKind classifies how a pointer value must be addressed, per the
// pointer classifier consumed in spec.md §6.
type PointerKind int

const (
	// CompleteObject is a self-contained pointer (e.g. to a scalar or a
	// whole array) that needs no extra offset bookkeeping.
	CompleteObject PointerKind = iota
	// Regular needs an explicit byte offset alongside the base pointer.
	Regular
	// ByteLayout is a raw linear-memory address.
	ByteLayout
)

// RegisterID is the register allocator's dense per-function id for a
// non-inlineable SSA value (spec.md §3).
type RegisterID int32

// NoRegister marks an inlineable value, which never occupies a local.
const NoRegister RegisterID = -1

// Value is one SSA value: either the defining Instruction (for computed
// values) or a Constant/Param/Global leaf.
type Value struct {
	Kind ValueKind

	// Reg is the value's register, or NoRegister if the value is
	// inlineable (spec.md §3 RegisterID, §4.6).
	Reg RegisterID

	// Ptr is meaningful only when Kind == AnyRef or the value is used as
	// an address; NoRegister-typed raw pointers still carry a PointerKind
	// of ByteLayout by construction.
	Ptr PointerKind

	// Def is non-nil for computed values.
	Def *Instruction

	// Const is non-nil for constant leaves (spec.md §4.3).
	Const *Constant

	// Param is the parameter index for function-argument leaves, or -1.
	Param int

	name string
}

// Name returns a debug label, falling back to a synthetic one. Used only by
// the optional Name section and error messages, never by codegen decisions.
func (v *Value) Name() string {
	if v.name != "" {
		return v.name
	}
	if v.Def != nil {
		return v.Def.Name()
	}
	return "<val>"
}

// SetName assigns a debug label.
func (v *Value) SetName(n string) { v.name = n }

// IsInlineable reports whether v's producer is inlineable, i.e. has no
// register assigned (spec.md §4.6). Constants and parameters delegate to
// the instruction emitter's own rules (constants are always inlineable
// unless globalized; parameters always live in a local).
func (v *Value) IsInlineable() bool {
	return v.Def != nil && v.Def.Inlineable
}
