package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func body(b ...byte) []byte {
	out := []byte{byte(len(b) + 1), 0x00} // size, 0 local groups
	return append(out, b...)
}

func TestFunctionBody_S1(t *testing.T) {
	// spec.md §8 S1: `00 41 00 0b`
	require.NoError(t, FunctionBody(body(0x41, 0x00, 0x0b)))
}

func TestFunctionBody_S2(t *testing.T) {
	// spec.md §8 S2: `00 20 00 20 01 6a 0b`
	require.NoError(t, FunctionBody(body(0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b)))
}

func TestFunctionBody_UnbalancedEnd(t *testing.T) {
	require.Error(t, FunctionBody(body(0x0b, 0x0b)))
}

func TestFunctionBody_UnclosedBlock(t *testing.T) {
	require.Error(t, FunctionBody(body(0x02, 0x40, 0x0b)))
}

func TestFunctionBody_Nested(t *testing.T) {
	// block(void) { block(void) end } end, then the function's own end
	require.NoError(t, FunctionBody(body(0x02, 0x40, 0x02, 0x40, 0x0b, 0x0b, 0x0b)))
}

func TestFuzz(t *testing.T) {
	require.Equal(t, 1, Fuzz(body(0x41, 0x00, 0x0b)))
	require.Equal(t, 0, Fuzz(body(0x0b, 0x0b)))
}
