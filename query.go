package ivfile

import (
	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY BUILDER: Boolean word filters with Roaring Bitmaps
// ═══════════════════════════════════════════════════════════════════════════════
// Ranking answers "how close is every document"; a boolean filter answers
// "which documents hold these words". The builder combines both:
//
//	results := NewQueryBuilder(idx).
//	    Word(12).
//	    And().
//	    Group(func(q *QueryBuilder) {
//	        q.Word(40).Or().Word(41)
//	    }).
//	    And().Not().Word(7).
//	    Execute()
//
// Word ids here are zero-based, as stored in the index.
// ═══════════════════════════════════════════════════════════════════════════════

// QueryBuilder provides a fluent interface for boolean word queries.
type QueryBuilder struct {
	index  *InvertedIndex
	stack  []*roaring.Bitmap // intermediate results
	ops    []QueryOp         // pending operations
	negate bool              // whether the next operand is negated
	words  []WordID          // positive words, used by Rank
}

// QueryOp represents a pending boolean operation.
type QueryOp int

const (
	OpNone QueryOp = iota
	OpAnd
	OpOr
)

// NewQueryBuilder creates a query builder over index.
func NewQueryBuilder(index *InvertedIndex) *QueryBuilder {
	return &QueryBuilder{
		index: index,
		stack: make([]*roaring.Bitmap, 0),
		ops:   make([]QueryOp, 0),
		words: make([]WordID, 0),
	}
}

// Word pushes the documents holding word. Unknown words match nothing.
func (qb *QueryBuilder) Word(word WordID) *QueryBuilder {
	if !qb.negate {
		qb.words = append(qb.words, word)
	}

	bitmap := qb.index.DocBitmap(word)
	if qb.negate {
		bitmap = qb.negateBitmap(bitmap)
		qb.negate = false
	}

	qb.pushBitmap(bitmap)
	return qb
}

// And intersects the previous operand with the next one.
func (qb *QueryBuilder) And() *QueryBuilder {
	qb.ops = append(qb.ops, OpAnd)
	return qb
}

// Or unites the previous operand with the next one.
func (qb *QueryBuilder) Or() *QueryBuilder {
	qb.ops = append(qb.ops, OpOr)
	return qb
}

// Not negates the next operand.
func (qb *QueryBuilder) Not() *QueryBuilder {
	qb.negate = true
	return qb
}

// Group evaluates fn as a sub-query and pushes its result as one operand.
//
//	qb.Group(func(q *QueryBuilder) {
//	    q.Word(3).Or().Word(4)
//	}).And().Word(9)
//	// (3 OR 4) AND 9
func (qb *QueryBuilder) Group(fn func(*QueryBuilder)) *QueryBuilder {
	sub := NewQueryBuilder(qb.index)
	fn(sub)
	result := sub.Execute()

	if qb.negate {
		result = qb.negateBitmap(result)
		qb.negate = false
	} else {
		qb.words = append(qb.words, sub.words...)
	}

	qb.pushBitmap(result)
	return qb
}

// Execute applies the operations left to right and returns the matching
// document ids.
func (qb *QueryBuilder) Execute() *roaring.Bitmap {
	if len(qb.stack) == 0 {
		return roaring.NewBitmap()
	}

	result := qb.stack[0]
	for i := 1; i < len(qb.stack); i++ {
		if i-1 >= len(qb.ops) {
			break
		}
		switch qb.ops[i-1] {
		case OpAnd:
			result = roaring.And(result, qb.stack[i])
		case OpOr:
			result = roaring.Or(result, qb.stack[i])
		}
	}
	return result
}

// Rank scores the matching documents against a query made of the builder's
// positive words (each counted once) and returns the k best.
//
// EXAMPLE:
// --------
//
//	top, err := NewQueryBuilder(idx).Word(3).And().Word(9).Rank(DistCos, 10)
func (qb *QueryBuilder) Rank(dist Dist, k int) (Scores, error) {
	allowed := qb.Execute()

	tokens := make([]uint32, len(qb.words))
	for i, w := range qb.words {
		tokens[i] = w + 1
	}

	scores, err := qb.index.Search(tokens, dist, false, 0)
	if err != nil {
		return nil, err
	}
	return Restrict(scores, allowed).Truncate(k), nil
}

// negateBitmap returns every document except those in bitmap.
func (qb *QueryBuilder) negateBitmap(bitmap *roaring.Bitmap) *roaring.Bitmap {
	all := roaring.NewBitmap()
	all.AddRange(0, uint64(qb.index.DocCount()))
	return roaring.AndNot(all, bitmap)
}

func (qb *QueryBuilder) pushBitmap(bitmap *roaring.Bitmap) {
	qb.stack = append(qb.stack, bitmap)
}

// ═══════════════════════════════════════════════════════════════════════════════
// DOCUMENT BITMAPS
// ═══════════════════════════════════════════════════════════════════════════════

// DocBitmap returns the documents that hold word.
func (idx *InvertedIndex) DocBitmap(word WordID) *roaring.Bitmap {
	bitmap := roaring.NewBitmap()
	if int(word) >= len(idx.words) {
		return bitmap
	}
	for _, p := range idx.words[word].Postings {
		bitmap.Add(p.Doc)
	}
	return bitmap
}

// Candidates returns the documents sharing at least one word with a query
// given as one-based labels: exactly the documents an overlap-only search
// scores.
func (idx *InvertedIndex) Candidates(tokens []uint32) *roaring.Bitmap {
	bitmaps := make([]*roaring.Bitmap, 0, len(tokens))
	for _, t := range tokens {
		if t == 0 || int(t) > len(idx.words) {
			continue
		}
		bitmaps = append(bitmaps, idx.DocBitmap(t-1))
	}
	return roaring.FastOr(bitmaps...)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONVENIENCE METHODS FOR COMMON PATTERNS
// ═══════════════════════════════════════════════════════════════════════════════

// AllOf finds documents holding every word.
func AllOf(index *InvertedIndex, words ...WordID) *roaring.Bitmap {
	if len(words) == 0 {
		return roaring.NewBitmap()
	}

	qb := NewQueryBuilder(index).Word(words[0])
	for _, w := range words[1:] {
		qb.And().Word(w)
	}
	return qb.Execute()
}

// AnyOf finds documents holding at least one of the words.
func AnyOf(index *InvertedIndex, words ...WordID) *roaring.Bitmap {
	if len(words) == 0 {
		return roaring.NewBitmap()
	}

	qb := NewQueryBuilder(index).Word(words[0])
	for _, w := range words[1:] {
		qb.Or().Word(w)
	}
	return qb.Execute()
}

// WordExcluding finds documents holding include but not exclude.
func WordExcluding(index *InvertedIndex, include, exclude WordID) *roaring.Bitmap {
	return NewQueryBuilder(index).
		Word(include).
		And().Not().Word(exclude).
		Execute()
}
