package encode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendNameSection_SortsByID(t *testing.T) {
	body := AppendNameSection(map[uint32]string{2: "bar", 0: "foo"})
	require.Equal(t, []byte{
		4, 'n', 'a', 'm', 'e',
		1,       // function-names subsection id
		11,      // subsection byte length
		2,       // vector count
		0, 3, 'f', 'o', 'o',
		2, 3, 'b', 'a', 'r',
	}, body)
}

func TestAppendNameSection_Empty(t *testing.T) {
	body := AppendNameSection(nil)
	require.Equal(t, []byte{4, 'n', 'a', 'm', 'e', 1, 1, 0}, body)
}
