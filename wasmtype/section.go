package wasmtype

// SectionID is the one-byte section tag that precedes every section's
// LEB-encoded byte length (spec.md §4.12). Grounded on
// tetratelabs/wazero's wasm/section.go enumeration.
type SectionID byte

const (
	SectionCustom   SectionID = 0
	SectionType     SectionID = 1
	SectionImport   SectionID = 2
	SectionFunction SectionID = 3
	SectionTable    SectionID = 4
	SectionMemory   SectionID = 5
	SectionGlobal   SectionID = 6
	SectionExport   SectionID = 7
	SectionStart    SectionID = 8
	SectionElement  SectionID = 9
	SectionCode     SectionID = 10
	SectionData     SectionID = 11
)

// PageSize is the fixed size of a Wasm linear-memory page (spec.md §4.12).
const PageSize = 65536
