package wasmtype

// FunctionType is a Wasm function signature: zero or more parameters, and
// (in the 1.0 MVP) at most one result.
type FunctionType struct {
	Params  []ValueKind
	Results []ValueKind
}

func (t FunctionType) key() string {
	b := make([]byte, 0, len(t.Params)+len(t.Results)+1)
	for _, p := range t.Params {
		b = append(b, byte(p))
	}
	b = append(b, '|')
	for _, r := range t.Results {
		b = append(b, byte(r))
	}
	return string(b)
}

// TypeTable deduplicates structurally identical FunctionTypes into a single
// type index, in first-seen order, so that two compilations of the same IR
// assign the same indices byte-for-byte (spec.md §8, determinism property).
// Grounded on wazero's wasm/value.go hasSameSignature helper, generalized
// into a map.
type TypeTable struct {
	types   []FunctionType
	indexOf map[string]uint32
}

// NewTypeTable returns an empty table.
func NewTypeTable() *TypeTable {
	return &TypeTable{indexOf: make(map[string]uint32)}
}

// Intern returns the index of t, adding it to the table if this is the
// first time an equivalent signature has been seen.
func (tt *TypeTable) Intern(t FunctionType) uint32 {
	k := t.key()
	if idx, ok := tt.indexOf[k]; ok {
		return idx
	}
	idx := uint32(len(tt.types))
	tt.types = append(tt.types, t)
	tt.indexOf[k] = idx
	return idx
}

// Types returns the interned function types in assignment order.
func (tt *TypeTable) Types() []FunctionType {
	return tt.types
}
