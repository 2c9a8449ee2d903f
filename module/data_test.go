package module

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaningtech/llvm-duetto/ir"
)

func TestSplitRuns_AllZero(t *testing.T) {
	seg := &ir.DataSegment{Offset: 0, Bytes: make([]byte, 20)}
	require.Nil(t, SplitRuns(seg))
}

func TestSplitRuns_NoGap(t *testing.T) {
	seg := &ir.DataSegment{Offset: 100, Bytes: []byte{1, 2, 0, 0, 3, 4}}
	out := SplitRuns(seg)
	require.Len(t, out, 1)
	require.Equal(t, uint32(100), out[0].Offset)
	require.Equal(t, []byte{1, 2, 0, 0, 3, 4}, out[0].Bytes)
}

func TestSplitRuns_SplitsOnLongGap(t *testing.T) {
	gap := make([]byte, minZeroGap)
	data := append([]byte{1, 2, 3}, gap...)
	data = append(data, 4, 5)
	seg := &ir.DataSegment{Offset: 10, Bytes: data}

	out := SplitRuns(seg)
	require.Len(t, out, 2)
	require.Equal(t, uint32(10), out[0].Offset)
	require.Equal(t, []byte{1, 2, 3}, out[0].Bytes)
	require.Equal(t, uint32(10+3+minZeroGap), out[1].Offset)
	require.Equal(t, []byte{4, 5}, out[1].Bytes)
}

func TestSplitRuns_NeverEmitsZeroLengthChunk(t *testing.T) {
	seg := &ir.DataSegment{Offset: 0, Bytes: []byte{1, 0, 0, 0, 0, 0, 0, 2}}
	out := SplitRuns(seg)
	for _, s := range out {
		require.NotEmpty(t, s.Bytes)
	}
}

func TestMemoryLimits_NoGrow(t *testing.T) {
	min, max := MemoryLimits(ir.Options{HeapSizeMiB: 1, NoGrowMemory: true})
	require.Equal(t, min, max)
	require.Equal(t, uint32(16), min) // 1 MiB / 64 KiB pages
}

func TestMemoryLimits_Grows(t *testing.T) {
	min, max := MemoryLimits(ir.Options{HeapSizeMiB: 1})
	require.Equal(t, uint32(16), min)
	require.Equal(t, uint32(64), max)
}
