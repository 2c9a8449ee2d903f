package ir

// GEPTerm is one scaled addend of a flattened GEP chain: value * size,
// optionally subtracted (spec.md §4.4).
type GEPTerm struct {
	Value    *Value
	Size     uint32
	Subtract bool
}

// GEPChain is the canonical flattened form of a GEP chain:
// Σ(scaled added values) − Σ(scaled subtracted values) + constPart
// (spec.md §4.4). Base is either a global variable address (folded into
// ConstPart by the caller), a null pointer (dropped), or an extra
// (value, 1) term already present in Terms — the GEPEmitter doesn't care
// which, it only walks Terms and ConstPart.
type GEPChain struct {
	Terms     []GEPTerm
	ConstPart int64
	Base      *Value // nil once folded into Terms/ConstPart
}

// GEPListener is the callback capability compileGEP drives, per spec.md §6
// ("compileGEP(value, listener) → basePointer"). Implemented by
// internal/emit's GEPEmitter to receive the flattened chain without the ir
// package needing to depend on the emitter.
type GEPListener interface {
	AddTerm(term GEPTerm)
	AddConst(v int64)
}

// CompileGEP is the compileGEP(value, listener) collaborator of spec.md §6:
// it drives listener's AddTerm/AddConst callbacks over chain's flattened
// terms and returns the base pointer value, which is nil when the base was
// a global address or a null pointer already folded into ConstPart/Terms.
func CompileGEP(chain *GEPChain, listener GEPListener) *Value {
	for _, t := range chain.Terms {
		listener.AddTerm(t)
	}
	if chain.ConstPart != 0 {
		listener.AddConst(chain.ConstPart)
	}
	return chain.Base
}
