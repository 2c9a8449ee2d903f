package ir

// This file gives the emitter's "external collaborators" (spec.md §6)
// concrete accessors. In a full compiler these would be separate
// subsystems (register allocator, pointer classifier, linear-memory
// layout planner); here they are plain Module/Function/Value fields,
// exposed through the exact method names spec.md §6 names so the mapping
// from spec to code stays obvious at the call sites in internal/emit.

// GetRegisterID returns v's register, or NoRegister if v is inlineable.
func GetRegisterID(v *Value) RegisterID {
	return v.Reg
}

// GetGlobalVariableAddress is the getGlobalVariableAddress(g) collaborator.
func GetGlobalVariableAddress(g *GlobalVar) uint32 {
	return g.Address
}

// GetFunctionAddress is the getFunctionAddress(f) collaborator: the
// function-table index, or 0 if f never had its address taken (spec.md §4.3,
// §7).
func GetFunctionAddress(f *Function) uint32 {
	if f == nil || !f.HasAddressTaken {
		return 0
	}
	return f.Index
}

// FunctionHasAddress is the functionHasAddress(f) collaborator.
func FunctionHasAddress(f *Function) bool {
	return f != nil && f.HasAddressTaken
}

// GetFunctionID is the getFunctionId(f) collaborator.
func GetFunctionID(f *Function) uint32 {
	return f.Index
}

// GetFunctionTypeIndex is the getFunctionTypeIndex(fty) collaborator.
func GetFunctionTypeIndex(f *Function) uint32 {
	return f.TypeIndex
}

// GetPointerKind is the getPointerKind(value) collaborator.
func GetPointerKind(v *Value) PointerKind {
	return v.Ptr
}

// IsInlineable is the isInlineable(instruction) collaborator.
func IsInlineable(i *Instruction) bool {
	return i.Inlineable
}

// GetEntryPoint is the getEntryPoint() collaborator.
func (m *Module) GetEntryPoint() *Function { return m.Entry }

// GetConstructors is the getConstructors() collaborator.
func (m *Module) GetConstructors() []*Function { return m.Constructors }

// GetExports is the getExports() collaborator.
func (m *Module) GetExports() []*Function { return m.Exports }

// GetImports is the getImports() collaborator.
func (m *Module) GetImports() []*Function { return m.Imports }
