package module

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaningtech/llvm-duetto/internal/scenario"
	"github.com/leaningtech/llvm-duetto/internal/validate"
	"github.com/leaningtech/llvm-duetto/leb128"
)

// section extracts the body bytes of the first occurrence of id, skipping
// the 8-byte preamble, by walking the [id][size][body] framing spec.md
// §4.12 specifies.
func section(t *testing.T, mod []byte, id byte) []byte {
	t.Helper()
	require.True(t, len(mod) >= 8)
	r := bytes.NewReader(mod[8:])
	for r.Len() > 0 {
		secID, err := r.ReadByte()
		require.NoError(t, err)
		size, _, err := leb128.DecodeUint32(r)
		require.NoError(t, err)
		body := make([]byte, size)
		n, err := r.Read(body)
		require.NoError(t, err)
		require.Equal(t, int(size), n)
		if secID == id {
			return body
		}
	}
	return nil
}

// firstCodeEntry strips the Code section's outer vector count and the one
// function body's own length prefix, returning exactly the bytes spec.md
// §8's S1/S2 scenarios specify.
func firstCodeEntry(t *testing.T, code []byte) []byte {
	t.Helper()
	r := bytes.NewReader(code)
	_, _, err := leb128.DecodeUint32(r) // vector count
	require.NoError(t, err)
	size, _, err := leb128.DecodeUint32(r)
	require.NoError(t, err)
	body := make([]byte, size)
	_, err = r.Read(body)
	require.NoError(t, err)
	return body
}

func TestEmit_S1_EmptyReturn(t *testing.T) {
	mod, err := Emit(scenario.EmptyReturn())
	require.NoError(t, err)

	code := section(t, mod, 10)
	require.NotNil(t, code)
	entry := firstCodeEntry(t, code)
	require.Equal(t, []byte{0x00, 0x41, 0x00, 0x0b}, entry)
	require.NoError(t, validate.FunctionBody(append(leb128.AppendUint32(nil, uint32(len(entry))), entry...)))
}

func TestEmit_S2_AddTwoParams(t *testing.T) {
	mod, err := Emit(scenario.AddTwoParams())
	require.NoError(t, err)

	code := section(t, mod, 10)
	entry := firstCodeEntry(t, code)
	require.Equal(t, []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}, entry)
}

func TestEmit_Deterministic(t *testing.T) {
	a, err := Emit(scenario.AddTwoParams())
	require.NoError(t, err)
	b, err := Emit(scenario.AddTwoParams())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEmit_Preamble(t *testing.T) {
	mod, err := Emit(scenario.EmptyReturn())
	require.NoError(t, err)
	require.Equal(t, []byte("\x00asm\x01\x00\x00\x00"), mod[:8])
}

func TestEmitText_S2(t *testing.T) {
	text, err := EmitText(scenario.AddTwoParams())
	require.NoError(t, err)
	require.Contains(t, text, "local.get")
	require.Contains(t, text, "i32.add")
}

func TestEmitVerbose_LogsSections(t *testing.T) {
	var lines []string
	_, err := EmitVerbose(scenario.EmptyReturn(), func(format string, args ...interface{}) {
		lines = append(lines, format)
	})
	require.NoError(t, err)
	require.NotEmpty(t, lines)
}
