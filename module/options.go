// Package module assembles a complete Wasm binary (or its WAT text
// rendering) from a compiled ir.Module: type/import/function/table/
// memory/global/export/start/element/code/data/name sections in the
// fixed order spec.md §4.12 requires.
package module

import (
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

// MemoryLimits derives the Memory section's [min, max] page counts from
// Options.HeapSizeMiB, rounding up to whole 64KiB pages (spec.md §4.12). A
// module that does not grow its memory declares min == max, so the host
// never has to honor a memory.grow past the size the layout planner
// already accounted for.
func MemoryLimits(opt ir.Options) (min, max uint32) {
	pages := (opt.HeapSizeMiB*1024*1024 + wasmtype.PageSize - 1) / wasmtype.PageSize
	if pages == 0 {
		pages = 1
	}
	min = pages
	if opt.NoGrowMemory {
		max = min
	} else {
		max = min * 4
	}
	return min, max
}
