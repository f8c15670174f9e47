package dataset

import (
	"sort"

	roaring "github.com/RoaringBitmap/roaring"
)

// LengthBuckets groups pair indices by sequence length, one roaring bitmap
// per length.
type LengthBuckets struct {
	byLength map[int]*roaring.Bitmap
}

func NewLengthBuckets() *LengthBuckets {
	return &LengthBuckets{byLength: make(map[int]*roaring.Bitmap)}
}

// Add records pair index idx under length.
func (lb *LengthBuckets) Add(length int, idx uint32) {
	bm, ok := lb.byLength[length]
	if !ok {
		bm = roaring.New()
		lb.byLength[length] = bm
	}
	bm.Add(idx)
}

// Lengths returns the occupied lengths in ascending order.
func (lb *LengthBuckets) Lengths() []int {
	out := make([]int, 0, len(lb.byLength))
	for l := range lb.byLength {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Count returns how many indices are stored under length.
func (lb *LengthBuckets) Count(length int) int {
	bm, ok := lb.byLength[length]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Ordered returns every index sorted by ascending length, ascending index
// within a length.
func (lb *LengthBuckets) Ordered() []uint32 {
	var total uint64
	for _, bm := range lb.byLength {
		total += bm.GetCardinality()
	}
	out := make([]uint32, 0, total)
	for _, l := range lb.Lengths() {
		out = append(out, lb.byLength[l].ToArray()...)
	}
	return out
}
