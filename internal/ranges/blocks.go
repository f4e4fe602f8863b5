// Package ranges holds the pure interval arithmetic behind number-range
// allocation: closed-interval overlap/containment predicates and the
// block-unit presentation transform. Nothing here touches storage.
package ranges

import "fmt"

// BlockSize is the number of raw numbers in one presentation block.
// A block pair (bs, be) reserves the raw interval bs*1000+1 .. be*1000,
// so block pairs round-trip through the raw representation.
const BlockSize = 1000

// BlockToRaw converts a block-unit pair to the raw interval it reserves.
func BlockToRaw(blockStart, blockEnd int64) (startNumber, endNumber int64) {
	return blockStart*BlockSize + 1, blockEnd * BlockSize
}

// RawToBlock converts a raw interval back to its block-unit pair.
func RawToBlock(startNumber, endNumber int64) (blockStart, blockEnd int64) {
	return startNumber / BlockSize, endNumber / BlockSize
}

// Overlaps reports whether the closed intervals [s1,e1] and [s2,e2] intersect.
// The single predicate covers all three cases: either endpoint falling inside
// the other interval, and full containment in either direction.
func Overlaps(s1, e1, s2, e2 int64) bool {
	return s1 <= e2 && s2 <= e1
}

// Contains reports whether [s,e] lies entirely within [outerStart,outerEnd].
func Contains(outerStart, outerEnd, s, e int64) bool {
	return s >= outerStart && e <= outerEnd
}

// FormatBlocks renders a raw interval in block units for validation messages.
func FormatBlocks(startNumber, endNumber int64) string {
	bs, be := RawToBlock(startNumber, endNumber)
	return fmt.Sprintf("%d-%d", bs, be)
}
