package emit

import (
	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// ScratchLocal returns a per-ValueKind scratch local index reserved by the
// FunctionEmitter for breaking PHI assignment cycles (spec.md §4.9). One
// scratch local per kind is enough: a cycle is rotated through exactly one
// temporary, and cycles of the same kind are resolved one at a time, so
// the scratch is always free again before the next one needs it.
type ScratchLocal func(kind wasmtype.ValueKind) uint32

// phiAssignment is one PHI destination plus the incoming value it should
// be set to on this edge.
type phiAssignment struct {
	dest *ir.Phi
	src  *ir.Value
}

// ResolvePhis assigns every PHI in `to` whose incoming edge is `from`
// (spec.md §4.9 "PHI resolution"). Assignments whose PHI already shares a
// register with its incoming value are elided. Assignments that form a
// register-level cycle (spec.md §8 S6's swap) are resolved first, directly,
// with one scratch-local rotation per cycle; everything left over is
// acyclic and is emitted as a push-all/set-in-reverse batch, which is
// itself safe without spilling since every push happens before any set.
func (c *Context) ResolvePhis(from, to *ir.BasicBlock, scratch ScratchLocal) {
	var assigns []phiAssignment
	for _, phi := range to.Phis {
		for _, inc := range phi.Incoming {
			if inc.From != from {
				continue
			}
			if phi.Register != ir.NoRegister && phi.Register == inc.Value.Reg {
				break
			}
			assigns = append(assigns, phiAssignment{dest: phi, src: inc.Value})
			break
		}
	}
	if len(assigns) == 0 {
		return
	}

	rest := c.breakCycles(assigns, scratch)
	if len(rest) == 0 {
		return
	}

	c.Stack.BeginInstruction()
	for _, a := range rest {
		c.Stack.Push(a.src)
	}
	for i := len(rest) - 1; i >= 0; i-- {
		c.Stack.SetLocal(rest[i].dest.AsValue())
	}
}

// breakCycles finds every register-level cycle among assigns — a chain of
// destinations where each assignment's source register is the next
// assignment's destination, closing back on itself — and resolves each one
// directly via emitCycleSwap. It returns the assignments that aren't part
// of any cycle, for the caller's ordinary push-all/set-in-reverse batch.
func (c *Context) breakCycles(assigns []phiAssignment, scratch ScratchLocal) []phiAssignment {
	byDestReg := make(map[ir.RegisterID]int, len(assigns))
	for i, a := range assigns {
		byDestReg[a.dest.Register] = i
	}

	inCycle := make([]bool, len(assigns))
	for i := range assigns {
		if inCycle[i] {
			continue
		}
		cycle := findCycle(assigns, byDestReg, i)
		if cycle == nil {
			continue
		}
		for _, idx := range cycle {
			inCycle[idx] = true
		}
		c.emitCycleSwap(assigns, cycle, scratch)
	}

	rest := make([]phiAssignment, 0, len(assigns))
	for i, a := range assigns {
		if !inCycle[i] {
			rest = append(rest, a)
		}
	}
	return rest
}

// findCycle walks the chain of "my source is that assignment's
// destination" starting at assigns[start], and returns the indices of a
// cycle that closes back on start, or nil if the chain runs off into a
// register nothing in this batch writes (an ordinary dependency, not a
// cycle) or closes on some other, already-discovered cycle.
func findCycle(assigns []phiAssignment, byDestReg map[ir.RegisterID]int, start int) []int {
	order := map[int]int{start: 0}
	chain := []int{start}
	i := start
	for {
		src := assigns[i].src
		if src.Reg == ir.NoRegister || src.Reg == assigns[i].dest.Register {
			return nil
		}
		next, ok := byDestReg[src.Reg]
		if !ok {
			return nil
		}
		if pos, seen := order[next]; seen {
			if pos == 0 {
				return chain
			}
			return nil
		}
		order[next] = len(chain)
		chain = append(chain, next)
		i = next
	}
}

// emitCycleSwap resolves one register-level cycle in place, the literal
// sequence spec.md §8 S6 names for its two-element case: save the first
// element's current value to scratch, shift every other element's current
// value into the slot before it, then close the loop by writing the saved
// value into the last slot.
//
//	local.get x; local.set tmp        // tmp = x_old
//	local.get y; local.set x          // x = y_old
//	local.get tmp; local.set y        // y = tmp (x_old)
func (c *Context) emitCycleSwap(assigns []phiAssignment, cycle []int, scratch ScratchLocal) {
	kind := assigns[cycle[0]].dest.Result
	tmp := scratch(kind)

	first := assigns[cycle[0]].dest.Register
	c.Buf.Emit(code.Instr{Op: wasmtype.OpLocalGet, Idx: c.LocalOf(first)})
	c.Buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: tmp})

	for k := 0; k < len(cycle)-1; k++ {
		dest := assigns[cycle[k]].dest.Register
		next := assigns[cycle[k+1]].dest.Register
		c.Buf.Emit(code.Instr{Op: wasmtype.OpLocalGet, Idx: c.LocalOf(next)})
		c.Buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: c.LocalOf(dest)})
	}

	last := assigns[cycle[len(cycle)-1]].dest.Register
	c.Buf.Emit(code.Instr{Op: wasmtype.OpLocalGet, Idx: tmp})
	c.Buf.Emit(code.Instr{Op: wasmtype.OpLocalSet, Idx: c.LocalOf(last)})
}
