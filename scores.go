package ivfile

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SCORE ACCUMULATOR
// ═══════════════════════════════════════════════════════════════════════════════
// A sparse id → value list used while ranking. It has two orders:
//
//	by ID    → while merging (binary search for the slot of an id)
//	by Value → once, at the end, to pick the top k
//
// EXAMPLE (overlap-only search touching docs 7 then 2 then 7):
// -------------------------------------------------------------
//
//	slot(7) → [{7, v}]
//	slot(2) → [{2, v}, {7, v}]   ← inserted before 7, order kept
//	slot(7) → found at index 1
// ═══════════════════════════════════════════════════════════════════════════════

// ScoreEntry pairs an id with a value. During ranking the id is a document;
// when counting query words it is a word.
type ScoreEntry struct {
	ID    uint32
	Value float32
}

// Scores is a list of score entries. Lower values rank first.
type Scores []ScoreEntry

// slot returns the entry for id in a list sorted by ID, inserting one with
// value init when it is missing.
func (s *Scores) slot(id uint32, init func() float32) *ScoreEntry {
	list := *s
	i := sort.Search(len(list), func(i int) bool {
		return list[i].ID >= id
	})
	if i == len(list) || list[i].ID != id {
		list = append(list, ScoreEntry{})
		copy(list[i+1:], list[i:])
		list[i] = ScoreEntry{ID: id, Value: init()}
		*s = list
	}
	return &(*s)[i]
}

// SortByID orders entries by ascending id.
func (s Scores) SortByID() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].ID < s[j].ID
	})
}

// SortByValue orders entries by ascending value. Ties keep their current
// relative order.
func (s Scores) SortByValue() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Value < s[j].Value
	})
}

// Truncate keeps the first k entries; k == 0 keeps everything.
func (s Scores) Truncate(k int) Scores {
	if k > 0 && k < len(s) {
		return s[:k]
	}
	return s
}

// Clone returns an independent copy of s.
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	return append(Scores(make([]ScoreEntry, 0, len(s))), s...)
}

// IDs returns the ids in list order.
func (s Scores) IDs() []uint32 {
	ids := make([]uint32, len(s))
	for i, e := range s {
		ids[i] = e.ID
	}
	return ids
}

// Restrict keeps only the entries whose id is in allowed, preserving order.
// A nil allowed keeps every entry.
func Restrict(s Scores, allowed *roaring.Bitmap) Scores {
	if allowed == nil {
		return s.Clone()
	}
	out := make(Scores, 0, len(s))
	for _, e := range s {
		if allowed.Contains(e.ID) {
			out = append(out, e)
		}
	}
	return out
}
