package module

import (
	"strings"

	"import.name/pan"

	"github.com/leaningtech/llvm-duetto/code"
	"github.com/leaningtech/llvm-duetto/encode"
	"github.com/leaningtech/llvm-duetto/internal/emit"
	"github.com/leaningtech/llvm-duetto/internal/globalize"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/leb128"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// Driver assembles one ir.Module into a complete binary (or WAT text)
// module: type interning, import/function/table/memory/global/export/
// start/element/code/data/name section assembly, in the fixed order
// spec.md §4.12 requires.
type Driver struct {
	mod   *ir.Module
	types *wasmtype.TypeTable
	plan  *globalize.Plan

	addrTable []*ir.Function // function-table entries, index order

	// Logf, when non-nil, receives one line per globalization decision and
	// one per emitted section's byte size (cmd/wasm2mod's -v flag).
	Logf func(format string, args ...interface{})
}

// Emit compiles mod to a complete Wasm module. Any fatal emitter error
// (spec.md §7's taxonomy) is recovered here, at the one boundary spec.md
// §7 names ("nothing is retried... partial output is discarded"), and
// returned as an ordinary error instead of propagating as a panic.
func Emit(mod *ir.Module) (out []byte, err error) {
	defer func() { err = pan.Error(recover()) }()
	d := newDriver(mod, nil)
	return d.assemble(), nil
}

// EmitText is Emit's WAT-text counterpart (spec.md §6).
func EmitText(mod *ir.Module) (out string, err error) {
	defer func() { err = pan.Error(recover()) }()
	d := newDriver(mod, nil)
	return d.assembleText(), nil
}

// EmitVerbose is Emit, additionally routing globalization decisions and
// per-section byte sizes through logf (cmd/wasm2mod's -v flag).
func EmitVerbose(mod *ir.Module, logf func(string, ...interface{})) (out []byte, err error) {
	defer func() { err = pan.Error(recover()) }()
	d := newDriver(mod, logf)
	return d.assemble(), nil
}

func newDriver(mod *ir.Module, logf func(string, ...interface{})) *Driver {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	d := &Driver{
		mod:   mod,
		types: wasmtype.NewTypeTable(),
		Logf:  logf,
	}
	d.assignFunctionIndices()
	d.internTypes()
	d.buildFunctionTable()
	d.plan = d.runGlobalizationPlanner()
	return d
}

// assignFunctionIndices gives every function (imports first, then locals,
// per the Wasm binary's single function-index space) its Index field.
func (d *Driver) assignFunctionIndices() {
	var next uint32
	for _, f := range d.importFunctions() {
		f.Index = next
		next++
	}
	for _, f := range d.mod.Functions {
		if f.Declared {
			continue // already indexed above via importFunctions
		}
		f.Index = next
		next++
	}
}

// importFunctions is every function occupying an import slot in the
// function-index space: the explicit Imports list plus the distinguished
// GrowMemoryImport when the loader path needs one (spec.md §4.5, §6).
func (d *Driver) importFunctions() []*ir.Function {
	imports := append([]*ir.Function{}, d.mod.Imports...)
	if gm := d.mod.GrowMemoryImport; gm != nil {
		imports = append(imports, gm)
	}
	return imports
}

func (d *Driver) internTypes() {
	for _, f := range allFunctions(d.mod) {
		f.TypeIndex = d.types.Intern(wasmtype.FunctionType{Params: f.Params, Results: f.ResultKinds()})
	}
}

func allFunctions(mod *ir.Module) []*ir.Function {
	all := make([]*ir.Function, 0, len(mod.Imports)+len(mod.Functions)+1)
	all = append(all, mod.Imports...)
	all = append(all, mod.Functions...)
	if mod.GrowMemoryImport != nil {
		all = append(all, mod.GrowMemoryImport)
	}
	return all
}

// buildFunctionTable collects every address-taken function into one
// funcref table, in Index order, so table offsets are deterministic
// (spec.md §4.12 "places the function table at offset 0").
func (d *Driver) buildFunctionTable() {
	for _, f := range d.mod.Functions {
		if f.HasAddressTaken {
			d.addrTable = append(d.addrTable, f)
		}
	}
}

// runGlobalizationPlanner scans every function body's instructions for
// globalizable constant operands (spec.md §4.11) and finalizes the plan
// consumed by internal/emit's ConstantEmitter.
func (d *Driver) runGlobalizationPlanner() *globalize.Plan {
	p := globalize.NewPlanner()
	for _, g := range d.mod.Globals {
		p.VisitEligibleGlobal(g)
	}
	for _, f := range d.mod.Functions {
		if f.Declared {
			continue
		}
		walkFunctionConstants(f, p.VisitConstantUse)
	}
	plan := p.Finalize()
	d.Logf("globalize: %d scalar global(s), %d constant(s) promoted", len(plan.Globals), len(plan.Consts))
	for _, c := range plan.Consts {
		d.Logf("globalize: constant (id=%d, kind=%v) promoted to global", c.ID, c.Constant.Kind)
	}
	return plan
}

// walkFunctionConstants visits the Constant operands of the instructions
// listed in f.Blocks. Block terminators and phi incomings are not visited,
// and blocks reachable only through f.Relooper or f.Stackifier (not listed
// in f.Blocks) are not scanned.
func walkFunctionConstants(f *ir.Function, visit func(*ir.Constant)) {
	for _, b := range f.Blocks {
		walkBlockConstants(b, visit)
	}
}

func walkBlockConstants(b *ir.BasicBlock, visit func(*ir.Constant)) {
	for _, instr := range b.Instructions {
		for _, op := range instr.Operands {
			if op.Const != nil {
				visit(op.Const)
			}
		}
	}
}

func (d *Driver) addrOfFn(f *ir.Function) uint32 {
	for i, t := range d.addrTable {
		if t == f {
			return uint32(i)
		}
	}
	return 0
}

func (d *Driver) addrOfGlobal(g *ir.GlobalVar) uint32 {
	return g.Address
}

// compileFunctions runs the FunctionEmitter over every local (non-import)
// function, in declared order.
func (d *Driver) compileFunctions() []*emit.CompiledFunction {
	fe := &emit.FunctionEmitter{
		Module:   d.mod,
		Globals:  d.plan.Lookup,
		AddrOfFn: d.addrOfFn,
		AddrOfG:  d.addrOfGlobal,
	}
	var out []*emit.CompiledFunction
	for _, f := range d.mod.Functions {
		if f.Declared {
			continue
		}
		out = append(out, fe.Emit(f))
	}
	return out
}

// assemble builds the complete binary module, section by section, in the
// fixed order spec.md §4.12 names.
func (d *Driver) assemble() []byte {
	compiled := d.compileFunctions()

	var sections []encode.Section
	add := func(name string, id wasmtype.SectionID, body []byte) {
		if body == nil {
			return
		}
		sections = append(sections, encode.Section{ID: id, Body: body})
		d.Logf("section %s: %d byte(s)", name, len(body))
	}
	add("type", wasmtype.SectionType, d.encodeTypeSection())
	add("import", wasmtype.SectionImport, d.encodeImportSection())
	add("function", wasmtype.SectionFunction, d.encodeFunctionSection())
	add("table", wasmtype.SectionTable, d.encodeTableSection())
	memBody := d.encodeMemorySection()
	sections = append(sections, encode.Section{ID: wasmtype.SectionMemory, Body: memBody})
	d.Logf("section memory: %d byte(s)", len(memBody))
	add("global", wasmtype.SectionGlobal, d.encodeGlobalSection())
	add("export", wasmtype.SectionExport, d.encodeExportSection())
	add("start", wasmtype.SectionStart, d.encodeStartSection())
	add("element", wasmtype.SectionElement, d.encodeElementSection())
	add("code", wasmtype.SectionCode, d.encodeCodeSection(compiled))
	add("data", wasmtype.SectionData, d.encodeDataSection())
	if d.mod.Options.PrettyCode {
		add("name", wasmtype.SectionCustom, d.encodeNameSection(compiled))
	}

	out := encode.AppendModule(nil, sections)
	d.Logf("module: %d byte(s) total", len(out))
	return out
}

func (d *Driver) encodeTypeSection() []byte {
	types := d.types.Types()
	if len(types) == 0 {
		return nil
	}
	body := encode.AppendVecCount(nil, len(types))
	for _, t := range types {
		body = encode.AppendFunctionType(body, t)
	}
	return body
}

func (d *Driver) encodeImportSection() []byte {
	imports := d.importFunctions()
	if len(imports) == 0 {
		return nil
	}
	body := encode.AppendVecCount(nil, len(imports))
	for _, f := range imports {
		body = encode.AppendName(body, "env")
		body = encode.AppendName(body, f.Name)
		body = append(body, 0x00) // import kind: func
		body = leb128.AppendUint32(body, f.TypeIndex)
	}
	return body
}

func (d *Driver) encodeFunctionSection() []byte {
	var locals []*ir.Function
	for _, f := range d.mod.Functions {
		if !f.Declared {
			locals = append(locals, f)
		}
	}
	if len(locals) == 0 {
		return nil
	}
	body := encode.AppendVecCount(nil, len(locals))
	for _, f := range locals {
		body = leb128.AppendUint32(body, f.TypeIndex)
	}
	return body
}

func (d *Driver) encodeTableSection() []byte {
	if len(d.addrTable) == 0 && !d.mod.Options.ExportedTable {
		return nil
	}
	body := encode.AppendVecCount(nil, 1)
	body = append(body, 0x70) // funcref
	n := uint32(len(d.addrTable))
	body = append(body, 0x00) // flags: min only
	body = leb128.AppendUint32(body, n)
	return body
}

func (d *Driver) encodeMemorySection() []byte {
	min, max := MemoryLimits(d.mod.Options)
	body := encode.AppendVecCount(nil, 1)
	switch {
	case d.mod.Options.SharedMemory:
		body = append(body, 0x03) // shared, has max
		body = leb128.AppendUint32(body, min)
		body = leb128.AppendUint32(body, max)
	case d.mod.Options.NoGrowMemory:
		body = append(body, 0x01) // has max, min==max
		body = leb128.AppendUint32(body, min)
		body = leb128.AppendUint32(body, min)
	default:
		body = append(body, 0x00) // min only
		body = leb128.AppendUint32(body, min)
	}
	return body
}

func (d *Driver) encodeGlobalSection() []byte {
	n := 1 + len(d.plan.Globals) + len(d.plan.Consts)
	body := encode.AppendVecCount(nil, n)
	body = appendGlobalDef(body, wasmtype.I32, true, func(b []byte) []byte {
		return appendI32ConstExpr(b, 0)
	})
	for _, g := range d.plan.Globals {
		kind := g.Kind
		body = appendGlobalDef(body, kind, g.Mutable, func(b []byte) []byte {
			return appendConstInitExpr(b, g.Init)
		})
	}
	for _, c := range d.plan.Consts {
		body = appendGlobalDef(body, c.Constant.Kind, false, func(b []byte) []byte {
			return appendConstInitExpr(b, c.Constant)
		})
	}
	return body
}

func appendGlobalDef(dst []byte, kind wasmtype.ValueKind, mutable bool, initExpr func([]byte) []byte) []byte {
	dst = encode.AppendValueKind(dst, kind)
	if mutable {
		dst = append(dst, 0x01)
	} else {
		dst = append(dst, 0x00)
	}
	dst = initExpr(dst)
	dst = append(dst, byte(wasmtype.OpEnd))
	return dst
}

func appendI32ConstExpr(dst []byte, v int32) []byte {
	dst = append(dst, byte(wasmtype.OpI32Const))
	return leb128.AppendInt32(dst, v)
}

func appendConstInitExpr(dst []byte, c *ir.Constant) []byte {
	if c == nil {
		return appendI32ConstExpr(dst, 0)
	}
	return encode.AppendInstr(dst, literalInstr(c))
}

func literalInstr(c *ir.Constant) code.Instr {
	switch c.Kind {
	case wasmtype.I64:
		return code.Instr{Op: wasmtype.OpI64Const, I64: c.I64}
	case wasmtype.F32:
		return code.Instr{Op: wasmtype.OpF32Const, F32: c.F32}
	case wasmtype.F64:
		return code.Instr{Op: wasmtype.OpF64Const, F64: c.F64}
	default:
		return code.Instr{Op: wasmtype.OpI32Const, I32: c.I32}
	}
}

func (d *Driver) encodeExportSection() []byte {
	type exp struct {
		name string
		kind byte
		idx  uint32
	}
	var exports []exp
	exports = append(exports, exp{"memory", 0x02, 0})
	if d.mod.Options.ExportedTable {
		exports = append(exports, exp{"table", 0x01, 0})
	}
	if e := d.mod.Entry; e != nil {
		exports = append(exports, exp{d.exportNameOf(e, "_start"), 0x00, e.Index})
	}
	for _, f := range d.mod.Constructors {
		exports = append(exports, exp{d.exportNameOf(f, f.Name), 0x00, f.Index})
	}
	for _, f := range d.mod.Exports {
		exports = append(exports, exp{d.exportNameOf(f, f.Name), 0x00, f.Index})
	}

	body := encode.AppendVecCount(nil, len(exports))
	for _, e := range exports {
		body = encode.AppendName(body, e.name)
		body = append(body, e.kind)
		body = leb128.AppendUint32(body, e.idx)
	}
	return body
}

func (d *Driver) exportNameOf(f *ir.Function, fallback string) string {
	if name, ok := d.mod.ExportNames[f]; ok {
		return name
	}
	return fallback
}

func (d *Driver) encodeStartSection() []byte {
	if d.mod.Options.UseWasmLoader {
		return nil
	}
	e := d.mod.Entry
	if e == nil {
		return nil
	}
	return leb128.AppendUint32(nil, e.Index)
}

func (d *Driver) encodeElementSection() []byte {
	if len(d.addrTable) == 0 {
		return nil
	}
	body := encode.AppendVecCount(nil, 1)
	body = leb128.AppendUint32(body, 0) // table index 0
	body = appendI32ConstExpr(body, 0)  // offset 0
	body = append(body, byte(wasmtype.OpEnd))
	body = encode.AppendVecCount(body, len(d.addrTable))
	for _, f := range d.addrTable {
		body = leb128.AppendUint32(body, f.Index)
	}
	return body
}

func (d *Driver) encodeCodeSection(compiled []*emit.CompiledFunction) []byte {
	if len(compiled) == 0 {
		return nil
	}
	body := encode.AppendVecCount(nil, len(compiled))
	for _, cf := range compiled {
		body = append(body, encodeFunctionBody(cf)...)
	}
	return body
}

func encodeFunctionBody(cf *emit.CompiledFunction) []byte {
	var inner []byte
	inner = encode.AppendVecCount(inner, len(cf.Locals))
	for _, g := range cf.Locals {
		inner = leb128.AppendUint32(inner, g.Count)
		inner = encode.AppendValueKind(inner, g.Kind)
	}
	inner = encode.AppendInstrs(inner, cf.Buf.Compact())

	var out []byte
	out = leb128.AppendUint32(out, uint32(len(inner)))
	out = append(out, inner...)
	return out
}

func (d *Driver) encodeDataSection() []byte {
	var all []*ir.DataSegment
	for _, seg := range d.mod.Data {
		all = append(all, SplitRuns(seg)...)
	}
	if len(all) == 0 {
		return nil
	}
	body := encode.AppendVecCount(nil, len(all))
	for _, seg := range all {
		body = leb128.AppendUint32(body, 0) // memory index 0
		body = appendI32ConstExpr(body, int32(seg.Offset))
		body = append(body, byte(wasmtype.OpEnd))
		body = encode.AppendVecCount(body, len(seg.Bytes))
		body = append(body, seg.Bytes...)
	}
	return body
}

func (d *Driver) encodeNameSection(compiled []*emit.CompiledFunction) []byte {
	names := make(map[uint32]string, len(compiled))
	for _, cf := range compiled {
		if cf.Fn.Name != "" {
			names[cf.Fn.Index] = cf.Fn.Name
		}
	}
	for _, f := range d.importFunctions() {
		if f.Name != "" {
			names[f.Index] = f.Name
		}
	}
	return encode.AppendNameSection(names)
}

// assembleText renders the same module as WAT, driven by the same
// per-instruction mnemonic table as assemble (spec.md §6).
func (d *Driver) assembleText() string {
	compiled := d.compileFunctions()
	var w strings.Builder
	w.WriteString("(module\n")
	for _, cf := range compiled {
		w.WriteString("  (func $")
		w.WriteString(cf.Fn.Name)
		encode.WriteFunctionSignature(&w, wasmtype.FunctionType{Params: cf.Fn.Params, Results: cf.Fn.ResultKinds()})
		w.WriteByte('\n')
		encode.WriteInstrs(&w, cf.Buf.Compact(), 2)
		w.WriteString("  )\n")
	}
	w.WriteString(")\n")
	return w.String()
}
