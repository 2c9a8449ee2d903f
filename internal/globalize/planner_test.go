package globalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/wasmtype"
)

func f64(v float64) *ir.Constant { return &ir.Constant{Kind: wasmtype.F64, F64: v} }
func f32(v float32) *ir.Constant { return &ir.Constant{Kind: wasmtype.F32, F32: v} }

func TestFinalize_PromotesFrequentDouble(t *testing.T) {
	p := NewPlanner()
	c := f64(3.14159)
	for i := 0; i < 5; i++ {
		p.VisitConstantUse(f64(3.14159))
	}
	_ = c
	plan := p.Finalize()
	require.Len(t, plan.Consts, 1)
	id, ok := plan.Lookup(f64(3.14159).Fingerprint())
	require.True(t, ok)
	require.Equal(t, uint32(1), id)
}

func TestFinalize_RejectsSingleUse(t *testing.T) {
	p := NewPlanner()
	p.VisitConstantUse(f64(2.5))
	plan := p.Finalize()
	require.Empty(t, plan.Consts)
}

func TestFinalize_RejectsIntegerConstants(t *testing.T) {
	p := NewPlanner()
	for i := 0; i < 10; i++ {
		p.VisitConstantUse(&ir.Constant{Kind: wasmtype.I32, I32: 7})
	}
	plan := p.Finalize()
	require.Empty(t, plan.Consts)
}

func TestFinalize_OrdersByUseCountThenFirstSeen(t *testing.T) {
	p := NewPlanner()
	// seen first, used 3 times
	p.VisitConstantUse(f32(1))
	p.VisitConstantUse(f32(1))
	p.VisitConstantUse(f32(1))
	// seen second, used 4 times
	p.VisitConstantUse(f32(2))
	p.VisitConstantUse(f32(2))
	p.VisitConstantUse(f32(2))
	p.VisitConstantUse(f32(2))

	plan := p.Finalize()
	require.Len(t, plan.Consts, 2)
	require.Equal(t, uint32(1), plan.Consts[0].ID)
	require.Equal(t, float32(2), plan.Consts[0].Constant.F32)
	require.Equal(t, uint32(2), plan.Consts[1].ID)
	require.Equal(t, float32(1), plan.Consts[1].Constant.F32)
}

func TestFinalize_ScalarGlobalsTakeLowIDsFirst(t *testing.T) {
	p := NewPlanner()
	g := &ir.GlobalVar{Name: "g", Kind: wasmtype.F64, SingleScalarAddressNeverTaken: true, Init: f64(0)}
	p.VisitEligibleGlobal(g)
	for i := 0; i < 4; i++ {
		p.VisitConstantUse(f64(9.5))
	}
	plan := p.Finalize()
	require.Len(t, plan.Globals, 1)
	require.Equal(t, uint32(1), plan.Globals[0].GlobalIndex)
	require.True(t, g.PromoteToGlobal)
	require.Len(t, plan.Consts, 1)
	require.Equal(t, uint32(2), plan.Consts[0].ID)
}

func TestFinalize_IgnoresNullPointerAndFunctionPointer(t *testing.T) {
	p := NewPlanner()
	for i := 0; i < 5; i++ {
		p.VisitConstantUse(&ir.Constant{Kind: wasmtype.F64, IsNullPointer: true})
	}
	fn := &ir.Function{Name: "g"}
	for i := 0; i < 5; i++ {
		p.VisitConstantUse(&ir.Constant{Kind: wasmtype.F64, Func: fn})
	}
	plan := p.Finalize()
	require.Empty(t, plan.Consts)
}
