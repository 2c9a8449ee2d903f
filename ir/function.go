package ir

// BasicBlock is a single-entry, single-exit straight-line sequence of
// instructions terminated by a control instruction (br/condbr/switch/ret/
// unreachable), or (for a join block) led by Phis.
type BasicBlock struct {
	Label        string
	Phis         []*Phi
	Instructions []*Instruction
	// Terminator is the last instruction of the block; nil only for a
	// block under construction.
	Terminator *Instruction
}

// Function is one compiled function: its signature, its register count
// per ValueKind, and its body — either a flat list of basic blocks (for
// the single-block/degenerate case), a RelooperShape tree, or a
// StackifierStream, per the CFG restructuring already performed upstream
// (spec.md §1, §4.9).
type Function struct {
	Name    string
	Params  []ValueKind
	Result  ValueKind // ValueKind(0) means void
	IsVoid  bool

	Blocks []*BasicBlock
	Entry  *BasicBlock

	// Exactly one of Relooper/Stackifier is set once control lowering has
	// a shape to consume; both nil means "single block, no control flow
	// restructuring needed" (spec.md §4.10 step 5).
	Relooper   *RelooperShape
	Stackifier *StackifierStream

	// NumRegs is the register allocator's per-ValueKind count, used to lay
	// out locals in the fixed i32/f64/f32/anyref group order (spec.md §3).
	NumRegs map[ValueKind]int

	// RegKind maps a RegisterID to its ValueKind, needed because the
	// function emitter allocates locals grouped by kind rather than by
	// register id (spec.md §3, §4.10 step 1).
	RegKind map[RegisterID]ValueKind

	// NeedsLabelLocal is set by the relooper-legacy control lowering path
	// when a Multiple shape's br_table dispatch needs a label local
	// (spec.md §4.9, §4.10 step 2).
	NeedsLabelLocal bool
	LabelLocalReg   RegisterID

	// HasAddressTaken marks functions whose address escapes (e.g. via a
	// function pointer) and which therefore need a function-table slot
	// (spec.md §4.3 "Function pointer to a never-address-taken function").
	HasAddressTaken bool

	// Declared marks an import: a function with no body, whose calls
	// either trap (no loader) or become an imported call (spec.md §7).
	Declared bool

	// Index is this function's id, assigned by the module's layout
	// planner and consumed as the getFunctionId(f) collaborator
	// (spec.md §6).
	Index uint32
	// TypeIndex is the index into the module's deduplicated type table,
	// the getFunctionTypeIndex(fty) collaborator.
	TypeIndex uint32
}

// ResultKinds returns this function's result list (empty when void, else
// the single Result kind), for type-table interning.
func (f *Function) ResultKinds() []ValueKind {
	if f.IsVoid {
		return nil
	}
	return []ValueKind{f.Result}
}
