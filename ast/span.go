package ast

// Location is a 1-based line/column pair, the unit source positions are
// reported in for guest tracebacks (spec.md §7).
type Location struct {
	Line   int
	Column int
}

// Span is a half-open source range, grounded on the teacher's pos.go/
// range.go (Range{Start,End int} plus a Span{Start,End Location} pair):
// the same shape, generalized from a PEG grammar's byte offsets to this
// interpreter's statement/expression positions.
type Span struct {
	Start, End Location
}

// LineIndex converts byte offsets to Locations via binary search over
// recorded newline offsets, the same technique as the teacher's
// pos.go:LineIndex.
type LineIndex struct {
	lineStarts []int // byte offset of the start of each line
}

// NewLineIndex scans src once for newlines.
func NewLineIndex(src string) *LineIndex {
	idx := &LineIndex{lineStarts: []int{0}}
	for i, b := range []byte(src) {
		if b == '\n' {
			idx.lineStarts = append(idx.lineStarts, i+1)
		}
	}
	return idx
}

// At converts a byte offset to a Location.
func (li *LineIndex) At(offset int) Location {
	lo, hi := 0, len(li.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Location{Line: lo + 1, Column: offset - li.lineStarts[lo] + 1}
}
