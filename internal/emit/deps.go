package emit

import "github.com/leaningtech/llvm-duetto/ir"

// DependencyTracker builds, per basic block, the two dependency graphs
// spec.md §4.8 describes: a memory-ordering graph (so a store is never
// reordered past an earlier load or store it must observe) and a local
// graph (so a register isn't overwritten while an earlier local.get for
// it is still pending). Only non-inlineable instructions get nodes;
// inlineable ones fold their dependencies into whichever non-inlineable
// instruction eventually consumes them.
type DependencyTracker struct {
	memDep map[*ir.Instruction][]*ir.Instruction
	locDep map[*ir.Instruction][]*ir.Instruction

	lastStore        *ir.Instruction
	loadsSinceStore  []*ir.Instruction
	lastDefOfReg     map[ir.RegisterID]*ir.Instruction
	getsSinceLastDef map[ir.RegisterID][]*ir.Instruction
}

// NewDependencyTracker returns a tracker ready to scan one basic block.
func NewDependencyTracker() *DependencyTracker {
	return &DependencyTracker{
		memDep:           make(map[*ir.Instruction][]*ir.Instruction),
		locDep:           make(map[*ir.Instruction][]*ir.Instruction),
		lastDefOfReg:     make(map[ir.RegisterID]*ir.Instruction),
		getsSinceLastDef: make(map[ir.RegisterID][]*ir.Instruction),
	}
}

// Reset clears all state for the next basic block; dependencies never
// span block boundaries (spec.md §4.8: "for each basic block").
func (d *DependencyTracker) Reset() {
	d.memDep = make(map[*ir.Instruction][]*ir.Instruction)
	d.locDep = make(map[*ir.Instruction][]*ir.Instruction)
	d.lastStore = nil
	d.loadsSinceStore = nil
	d.lastDefOfReg = make(map[ir.RegisterID]*ir.Instruction)
	d.getsSinceLastDef = make(map[ir.RegisterID][]*ir.Instruction)
}

// Visit records the dependencies of instr, which must be visited in
// program order, and must be called for every instruction including
// inlineable ones (inlineable instructions contribute no graph node, but
// still advance the load/store and register bookkeeping they touch).
func (d *DependencyTracker) Visit(instr *ir.Instruction) {
	if instr.MayWriteMemory() {
		deps := make([]*ir.Instruction, 0, 1+len(d.loadsSinceStore))
		if d.lastStore != nil {
			deps = append(deps, d.lastStore)
		}
		deps = append(deps, d.loadsSinceStore...)
		if !instr.Inlineable {
			d.memDep[instr] = deps
		}
		d.lastStore = instr
		d.loadsSinceStore = nil
	} else if instr.MayReadMemory() {
		if !instr.Inlineable {
			if d.lastStore != nil {
				d.memDep[instr] = []*ir.Instruction{d.lastStore}
			}
			d.loadsSinceStore = append(d.loadsSinceStore, instr)
		}
	}

	if instr.Inlineable {
		return
	}

	if instr.Register != ir.NoRegister {
		if prev, ok := d.lastDefOfReg[instr.Register]; ok {
			deps := append([]*ir.Instruction{prev}, d.getsSinceLastDef[instr.Register]...)
			d.locDep[instr] = append(d.locDep[instr], deps...)
		}
		d.lastDefOfReg[instr.Register] = instr
		d.getsSinceLastDef[instr.Register] = nil
	}

	for _, op := range instr.Operands {
		if op.Reg != ir.NoRegister {
			d.getsSinceLastDef[op.Reg] = append(d.getsSinceLastDef[op.Reg], instr)
		}
	}
}

// MemoryDeps returns instr's recorded memory-ordering predecessors.
func (d *DependencyTracker) MemoryDeps(instr *ir.Instruction) []*ir.Instruction {
	return d.memDep[instr]
}

// LocalDeps returns instr's recorded local-overwrite predecessors.
func (d *DependencyTracker) LocalDeps(instr *ir.Instruction) []*ir.Instruction {
	return d.locDep[instr]
}

// Flush returns every dependency of instr (memory and local, deduplicated,
// in first-seen order) that must be emitted before instr itself. The
// caller emits these recursively under a peephole sub-scope so candidates
// created while flushing don't leak into instr's own scope (spec.md §4.8:
// "under a sub-scope of the TeeLocalPeephole").
func (d *DependencyTracker) Flush(instr *ir.Instruction) []*ir.Instruction {
	seen := make(map[*ir.Instruction]bool)
	var out []*ir.Instruction
	add := func(list []*ir.Instruction) {
		for _, dep := range list {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
			}
		}
	}
	add(d.memDep[instr])
	add(d.locDep[instr])
	return out
}
