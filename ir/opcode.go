package ir

// Opcode enumerates the IR-level operations the instruction emitter
// (spec.md §4.5) knows how to lower. This is a deliberately small,
// LLVM-shaped instruction set: arithmetic, compares, memory, control, and a
// fixed intrinsic vocabulary, matching the "already processed by register
// allocation, pointer classification, ... and linear-memory layout" input
// spec.md §1 describes.
type Opcode int

const (
	OpInvalid Opcode = iota

	// Arithmetic / bitwise, integer.
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr // logical (unsigned) shift right
	OpAShr // arithmetic (signed) shift right

	// Arithmetic, float.
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem
	OpFNeg

	// Compares.
	OpICmp
	OpFCmp

	// Memory.
	OpLoad
	OpStore
	OpGEP

	// Conversions.
	OpTrunc
	OpZExt
	OpSExt
	OpFPToSI
	OpFPToUI
	OpSIToFP
	OpUIToFP
	OpFPTrunc // double -> float
	OpFPExt   // float -> double
	OpBitCast
	OpIntToPtr
	OpPtrToInt

	OpSelect

	// Control.
	OpPhi
	OpBr
	OpCondBr
	OpSwitch
	OpRet
	OpRetVoid
	OpUnreachable

	// Calls.
	OpCallDirect
	OpCallIndirect
	OpCallIntrinsic
)

// ICmpPredicate is the signed/unsigned-aware integer comparison kind.
type ICmpPredicate int

const (
	ICmpEq ICmpPredicate = iota
	ICmpNe
	ICmpSLt
	ICmpSLe
	ICmpSGt
	ICmpSGe
	ICmpULt
	ICmpULe
	ICmpUGt
	ICmpUGe
)

// IsSigned reports whether p requires a sign-extended operand (spec.md
// §4.5, "Sign vs. unsigned on ≤32-bit integers").
func (p ICmpPredicate) IsSigned() bool {
	switch p {
	case ICmpSLt, ICmpSLe, ICmpSGt, ICmpSGe:
		return true
	default:
		return false
	}
}

// FCmpPredicate is the float comparison kind, including the ordered/
// unordered variants spec.md §4.5 describes lowering via ord/uno helpers.
type FCmpPredicate int

const (
	FCmpOEq FCmpPredicate = iota
	FCmpONe
	FCmpOLt
	FCmpOLe
	FCmpOGt
	FCmpOGe
	FCmpOrd // ord(x,y): neither operand is NaN
	FCmpUno // uno(x,y): either operand is NaN
	FCmpUEq
	FCmpUNe
	FCmpULt
	FCmpULe
	FCmpUGt
	FCmpUGe
)

// Intrinsic names the fixed vocabulary of runtime/builtin calls spec.md
// §4.5 lowers specially.
type Intrinsic int

const (
	IntrinsicTrap Intrinsic = iota
	IntrinsicStackSave
	IntrinsicStackRestore
	IntrinsicMemcpy
	IntrinsicMemset
	IntrinsicMemmove
	IntrinsicAllocate
	IntrinsicReallocate
	IntrinsicDeallocate
	IntrinsicAllocateArray
	IntrinsicDowncast
	IntrinsicVirtualCast
	IntrinsicUpcastCollapsed
	IntrinsicCastUser
	IntrinsicDowncastCurrent
	IntrinsicGrowMemory

	// Math builtins, argument-promoted under JS_BUILTINS mode.
	IntrinsicSin
	IntrinsicCos
	IntrinsicExp
	IntrinsicLog
	IntrinsicPow
	IntrinsicAtan
	IntrinsicAtan2
	IntrinsicAcos
	IntrinsicAsin
	IntrinsicTan

	// Wasm-typed math, lowered to a direct opcode regardless of mode.
	IntrinsicCtlz
	IntrinsicFabs
	IntrinsicCeil
	IntrinsicFloor
	IntrinsicTruncF
	IntrinsicMinNum
	IntrinsicMaxNum
	IntrinsicCopysign
)

// IsMathBuiltin reports whether i is one of the JS_BUILTINS-mode-sensitive
// math functions (spec.md §4.5).
func (i Intrinsic) IsMathBuiltin() bool {
	return i >= IntrinsicSin && i <= IntrinsicTan
}

// IsWasmTypedMath reports whether i lowers directly to a Wasm opcode in
// every mode.
func (i Intrinsic) IsWasmTypedMath() bool {
	return i >= IntrinsicCtlz && i <= IntrinsicCopysign
}

// HasSideEffects reports whether calling i can write memory or otherwise
// change observable state, for the dependency tracker's memory graph
// (spec.md §4.8: "call, atomic, intrinsic marked as having side
// effects"). Math builtins and casts are pure.
func (i Intrinsic) HasSideEffects() bool {
	switch i {
	case IntrinsicMemcpy, IntrinsicMemset, IntrinsicMemmove,
		IntrinsicAllocate, IntrinsicReallocate, IntrinsicDeallocate, IntrinsicAllocateArray,
		IntrinsicStackRestore, IntrinsicGrowMemory, IntrinsicTrap:
		return true
	default:
		return false
	}
}
