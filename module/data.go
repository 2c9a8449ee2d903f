package module

import "github.com/leaningtech/llvm-duetto/ir"

// minZeroGap is the shortest run of zero bytes worth splitting a data
// segment at: a new chunk costs at least 5 bytes of framing (an offset
// i32.const expr plus the LEB128 length prefix), so a gap shorter than
// that is cheaper to emit as literal zero bytes inside one chunk
// (spec.md §4.12).
const minZeroGap = 6

// SplitRuns scans seg's initializer for runs of minZeroGap or more
// consecutive zero bytes and splits the segment there, producing one
// DataSegment per non-zero run with the gap's address advance folded into
// the next run's Offset. A segment with no qualifying gap is returned
// unchanged as a single-element slice.
func SplitRuns(seg *ir.DataSegment) []*ir.DataSegment {
	var out []*ir.DataSegment
	data := seg.Bytes
	i := 0
	for i < len(data) {
		if data[i] == 0 {
			j := i
			for j < len(data) && data[j] == 0 {
				j++
			}
			if j-i >= minZeroGap {
				i = j
				continue
			}
		}
		start := i
		for i < len(data) {
			if data[i] == 0 {
				j := i
				for j < len(data) && data[j] == 0 {
					j++
				}
				if j-i >= minZeroGap {
					break
				}
				i = j
				continue
			}
			i++
		}
		out = append(out, &ir.DataSegment{
			Offset: seg.Offset + uint32(start),
			Bytes:  data[start:i],
		})
	}
	if len(out) == 0 {
		return nil // the whole segment was zero; spec.md §8 invariant 6 forbids a zero-length chunk
	}
	return out
}
