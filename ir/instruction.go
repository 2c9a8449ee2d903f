package ir

// Instruction is one SSA instruction. Its meaning is scoped by Opcode; only
// the fields relevant to that opcode are populated. This mirrors how
// spec.md §4.5 describes "each IR opcode maps to a small opcode sequence"
// driven by a handful of per-instruction flags (signedness, width,
// predicate) rather than a different Go type per opcode.
type Instruction struct {
	Opcode Opcode
	Result ValueKind

	// Operands, in source order. Their count and meaning are opcode
	// specific (e.g. 2 for OpAdd, 1 for OpLoad's address, N for OpPhi's
	// incoming values paired with Block's predecessors).
	Operands []*Value

	// Register is this instruction's assigned register, or NoRegister if
	// Inlineable. Every defined Value wraps back to this instruction via
	// Value.Def.
	Register RegisterID

	// Inlineable mirrors spec.md §6's isInlineable(instruction) collaborator:
	// true if this instruction's emission folds into its single consumer's
	// operand stream rather than flowing through a local.
	Inlineable bool

	// Width is the IR integer width in bits (spec.md §4.5, "sign vs
	// unsigned on ≤32-bit integers"), meaningful for Load/Store/Trunc/
	// ZExt/SExt/ICmp on sub-32-bit values. 0 means "full width of Result".
	Width int

	// Signed records inferred signedness for Load (per spec.md §4.5,
	// "signedness is inferred from uses") and for ICmp/SExt/ZExt/FPToSI/
	// FPToUI's fixed signedness.
	Signed bool

	// ICmpPred / FCmpPred are meaningful for OpICmp / OpFCmp.
	ICmpPred ICmpPredicate
	FCmpPred FCmpPredicate

	// GEP is meaningful for OpGEP: the flattened chain (spec.md §4.4).
	GEP *GEPChain

	// Pointer kind of this instruction's result, when it produces a
	// pointer (spec.md §6 getPointerKind collaborator).
	PtrKind PointerKind

	// Call target. Exactly one of Callee/Intrinsic is set for a call
	// opcode; CalleeValue is set instead for OpCallIndirect.
	Callee      *Function
	CalleeValue *Value // indirect callee pointer
	CalleeType  uint32 // OpCallIndirect's function-type index
	Intrinsic   Intrinsic
	Args        []*Value
	TailCall    bool // next instruction is `return` of this call (spec.md §4.5)

	// Switch: operand 0 is the scrutinee; Cases/Targets/Default describe
	// the dense-range br_table vs. sparse if/else decision (spec.md §4.9).
	// This instruction is only ever seen in relooper-legacy bodies; the
	// upstream "lower-switch" pass has already rewritten anything too
	// sparse or too large (spec.md §4.9, §7).
	Cases       []int64
	CaseBlocks  []*BasicBlock
	DefaultBlk  *BasicBlock

	// Branch targets for OpBr/OpCondBr, used only by the single-block /
	// already-structured path; the relooper and stackifier paths consume
	// their own tree/token representations instead (spec.md §4.9).
	BrTarget     *BasicBlock
	CondTrueBlk  *BasicBlock
	CondFalseBlk *BasicBlock

	name string
}

// MayWriteMemory reports whether emitting i can change the contents of
// linear memory, for the dependency tracker's memory graph (spec.md §4.8).
func (i *Instruction) MayWriteMemory() bool {
	switch i.Opcode {
	case OpStore:
		return true
	case OpCallDirect, OpCallIndirect:
		return true
	case OpCallIntrinsic:
		return i.Intrinsic.HasSideEffects()
	default:
		return false
	}
}

// MayReadMemory reports whether emitting i reads linear memory without
// necessarily writing it (spec.md §4.8's "may-read-memory" instructions).
func (i *Instruction) MayReadMemory() bool {
	switch i.Opcode {
	case OpLoad:
		return true
	case OpCallDirect, OpCallIndirect:
		return true
	case OpCallIntrinsic:
		return i.Intrinsic.HasSideEffects()
	default:
		return false
	}
}

// Name returns a debug label for error messages and the optional Name
// section.
func (i *Instruction) Name() string {
	if i.name != "" {
		return i.name
	}
	return "<instr>"
}

// SetName assigns a debug label.
func (i *Instruction) SetName(n string) { i.name = n }

// AsValue wraps i as the Value it defines. Every non-void instruction has
// exactly one result value; callers build it once at construction time.
func (i *Instruction) AsValue() *Value {
	return &Value{Kind: i.Result, Reg: i.Register, Def: i, Ptr: i.PtrKind}
}

// PhiIncoming is one (predecessor block, incoming value) pair of a Phi
// instruction (spec.md §4.9 PHI resolution).
type PhiIncoming struct {
	From  *BasicBlock
	Value *Value
}

// Phi is a join-point value selector (spec.md glossary PHI). It is kept
// distinct from Instruction because PHI resolution (spec.md §4.9, §9) is a
// whole-edge algorithm operating on all of a block's Phis together, not a
// single instruction emitted in place.
type Phi struct {
	Register RegisterID
	Result   ValueKind
	Block    *BasicBlock
	Incoming []PhiIncoming

	name string
}

func (p *Phi) Name() string {
	if p.name != "" {
		return p.name
	}
	return "<phi>"
}

func (p *Phi) SetName(n string) { p.name = n }

// AsValue wraps p as the Value it defines, so PHI resolution can reuse
// OperandStack.SetLocal/TryConsume's tee-candidate bookkeeping exactly
// like any other non-inlineable producer (spec.md §4.9).
func (p *Phi) AsValue() *Value {
	return &Value{Kind: p.Result, Reg: p.Register}
}
