package encode

import (
	"sort"

	"github.com/leaningtech/llvm-duetto/leb128"
)

// nameSubsectionFunction is the Name section's function-names subsection
// id (spec.md §4.12, Options.PrettyCode).
const nameSubsectionFunction = 1

// AppendNameSection builds the custom "name" section body: the section
// name string followed by a function-names subsection whose entries this
// function sorts by id (spec.md §4.12 emits this only when
// Options.PrettyCode is set).
func AppendNameSection(names map[uint32]string) []byte {
	var body []byte
	body = AppendName(body, "name")

	ids := make([]uint32, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sub []byte
	sub = AppendVecCount(sub, len(ids))
	for _, id := range ids {
		sub = leb128.AppendUint32(sub, id)
		sub = AppendName(sub, names[id])
	}

	body = append(body, nameSubsectionFunction)
	body = leb128.AppendUint32(body, uint32(len(sub)))
	body = append(body, sub...)
	return body
}
