// Package globalize implements the constant-globalization cost model of
// spec.md §4.11: deciding which repeated float/double constants are worth
// promoting to module globals instead of re-encoding their literal at
// every use site.
package globalize

import (
	"sort"

	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/leb128"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// candidate tracks one constant's use count and the order it was first
// seen, for the deterministic (useCount desc, insertionIndex asc) sort
// spec.md §4.11 specifies.
type candidate struct {
	fingerprint string
	constant    *ir.Constant
	useCount    int
	firstSeen   int
}

// Planner scans every function body once via Visit, then Finalize assigns
// global ids to whichever constants and single-scalar globals are worth
// promoting.
type Planner struct {
	byFingerprint map[string]*candidate
	order         int

	scalarGlobals []*ir.GlobalVar
}

// NewPlanner returns an empty planner.
func NewPlanner() *Planner {
	return &Planner{byFingerprint: make(map[string]*candidate)}
}

// VisitConstantUse records one use of c as a non-GEP-absorbed, non-null,
// non-function-pointer operand (spec.md §4.11's exclusion list; the
// caller — the instruction emitter's statement walk — is responsible for
// not calling this for excluded uses).
func (p *Planner) VisitConstantUse(c *ir.Constant) {
	if c.IsNullPointer || c.Func != nil {
		return
	}
	if c.Kind != wasmtype.F32 && c.Kind != wasmtype.F64 {
		// Integer constants are never globalized (spec.md §4.11: "worse in
		// size and cost").
		return
	}
	fp := c.Fingerprint()
	cand, ok := p.byFingerprint[fp]
	if !ok {
		cand = &candidate{fingerprint: fp, constant: c, firstSeen: p.order}
		p.byFingerprint[fp] = cand
		p.order++
	}
	cand.useCount++
}

// VisitEligibleGlobal records g as a GLOBAL-encoding candidate: an IR
// global the layout planner marked "single scalar, address never taken"
// (spec.md §4.11).
func (p *Planner) VisitEligibleGlobal(g *ir.GlobalVar) {
	if g.SingleScalarAddressNeverTaken {
		p.scalarGlobals = append(p.scalarGlobals, g)
	}
}

// ConstantGlobalDef is one promoted float/double constant's Global
// section entry: an immutable global whose init expression is the
// constant's own literal.
type ConstantGlobalDef struct {
	ID       uint32
	Constant *ir.Constant
}

// Plan is the finalized globalization decision: fingerprint -> assigned
// global id, the scalar IR globals promoted outright, and the promoted
// constants' own Global section entries, both in ascending id order so
// the module driver can emit the Global section as one pass.
type Plan struct {
	ids     map[string]uint32
	nextID  uint32
	Globals []*ir.GlobalVar
	Consts  []ConstantGlobalDef
}

// Lookup implements emit.GlobalLookup.
func (pl *Plan) Lookup(fingerprint string) (uint32, bool) {
	id, ok := pl.ids[fingerprint]
	return id, ok
}

// Finalize sorts candidates by (useCount descending, insertionIndex
// ascending), assigns tentative ids starting at 1 (id 0 is reserved for
// the stack-top pointer), and keeps only the ones whose FULL-encoding
// cost beats re-encoding the literal at every use (spec.md §4.11).
func (p *Planner) Finalize() *Plan {
	cands := make([]*candidate, 0, len(p.byFingerprint))
	for _, c := range p.byFingerprint {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].useCount != cands[j].useCount {
			return cands[i].useCount > cands[j].useCount
		}
		return cands[i].firstSeen < cands[j].firstSeen
	})

	plan := &Plan{ids: make(map[string]uint32), nextID: 1}
	for _, g := range p.scalarGlobals {
		g.PromoteToGlobal = true
		g.GlobalIndex = plan.nextID
		plan.nextID++
		plan.Globals = append(plan.Globals, g)
	}
	for _, cand := range cands {
		if !worthGlobalizing(cand.constant, cand.useCount, plan.nextID) {
			continue
		}
		plan.ids[cand.fingerprint] = plan.nextID
		plan.Consts = append(plan.Consts, ConstantGlobalDef{ID: plan.nextID, Constant: cand.constant})
		plan.nextID++
	}
	return plan
}

// worthGlobalizing applies spec.md §4.11's cost model: choose FULL iff
// definitionCost + referenceCost*useCount < literalCost*useCount. A
// constant used only once can never win (the definition byte overhead has
// no chance to amortize), so the common case is rejected before computing
// the per-kind byte costs.
func worthGlobalizing(c *ir.Constant, useCount int, tentativeID uint32) bool {
	if useCount < 2 {
		return false
	}
	var literalCost int
	switch c.Kind {
	case wasmtype.F32:
		literalCost = 5 // opcode byte + 4-byte payload
	case wasmtype.F64:
		literalCost = 9 // opcode byte + 8-byte payload
	default:
		return false
	}
	referenceCost := 1 + leb128.Len(tentativeID)
	definitionCost := 1 + 1 + literalCost + 1 // type byte + mutability byte + init expr + end byte
	return definitionCost+referenceCost*useCount < literalCost*useCount
}
