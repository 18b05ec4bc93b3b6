// Package ivfile implements the scoring core of a bag-of-visual-words
// retrieval engine.
//
// ═══════════════════════════════════════════════════════════════════════════════
// WHAT IS A BAG OF VISUAL WORDS?
// ═══════════════════════════════════════════════════════════════════════════════
// An external quantizer maps every local feature of an image to a discrete
// "visual word" id. An image then becomes a multiset of word ids, exactly like
// a text document is a multiset of terms.
//
// Example: Given these documents (one-based word labels):
//
//	Doc 0: [1, 1, 2]
//	Doc 1: [2, 3]
//	Doc 2: [1, 4]
//
// The inverted index (zero-based word ids) looks like:
//
//	word 0 → [Doc0:count 2, Doc2:count 1]
//	word 1 → [Doc0:count 1, Doc1:count 1]
//	word 2 → [Doc1:count 1]
//	word 3 → [Doc2:count 1]
//
// Ranking a query only walks the posting lists of the words the query holds,
// so the cost is proportional to the touched postings, never to
// vocabulary × documents.
//
// LIFECYCLE:
// ----------
//
//	idx, _ := ivfile.New(params)
//	idx.BuildDocuments(batch, wordCount, 0)
//	idx.ComputeStats()
//	results, _ := idx.Search(query, ivfile.DistL2, false, 10)
//
// An InvertedIndex is not safe for concurrent use; callers serialize access.
// ═══════════════════════════════════════════════════════════════════════════════
package ivfile

import (
	"io"
	"log/slog"
	"sort"

	"github.com/wizenheimer/ivfile/metrics"
)

// WordID is a dense, zero-based visual word id.
type WordID = uint32

// DocID is a dense, zero-based document id.
type DocID = uint32

// ═══════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURES
// ═══════════════════════════════════════════════════════════════════════════════
//
//	InvertedIndex
//	├── words: []WordEntry       (one per vocabulary entry)
//	│   └── Postings: []Posting  (strictly ascending by Doc)
//	├── docs:  []DocumentEntry   (one per document)
//	└── params: {Weight, Norm}
// ═══════════════════════════════════════════════════════════════════════════════

// Posting records how often a word occurs in one document and the value
// computed from that count by ComputeStats.
type Posting struct {
	Doc   DocID
	Count uint64
	Value float32
}

// WordEntry owns the posting list of one word.
type WordEntry struct {
	DocFrequency   uint64    // number of postings
	TotalFrequency uint64    // occurrences over all documents
	Postings       []Posting // ascending by Doc, no duplicates
}

// DocumentEntry holds per-document aggregates.
//
// Norm0, Norm1, Norm2 and Words are only meaningful after ComputeStats.
type DocumentEntry struct {
	TokenCount      uint64
	UniqueWordCount uint64
	Norm0           float32 // distinct words
	Norm1           float32 // sum of weighted values
	Norm2           float32 // sum of squared weighted values
	Words           []WordID
}

// InvertedIndex maps visual words to the documents that contain them.
type InvertedIndex struct {
	words  []WordEntry
	docs   []DocumentEntry
	params Params

	statsComputed bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an InvertedIndex.
type Option func(*InvertedIndex)

// WithLogger routes the index's diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *InvertedIndex) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// WithMetrics records build and search activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *InvertedIndex) {
		idx.metrics = m
	}
}

// New creates an empty index. It fails with ErrInvalidParams when a scheme
// is out of range.
func New(params Params, opts ...Option) (*InvertedIndex, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	idx := &InvertedIndex{
		params: params,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// INDEXING: Filling the posting lists
// ═══════════════════════════════════════════════════════════════════════════════
// Both Build forms share one step per token (see addToken):
//
//	Step 1: locate the document in the word's posting list (binary search)
//	Step 2: insert a new posting there if absent (DocFrequency++)
//	Step 3: bump the posting count and the word's TotalFrequency
//
// Labels are one-based; 0 and labels past the configured sizes are skipped
// without error.
// ═══════════════════════════════════════════════════════════════════════════════

// Build fills the index from parallel per-token label arrays: token i is word
// wordLabels[i] in document docLabels[i], both one-based.
//
// The word and document arrays are resized to wordCount and docCount,
// keeping existing entries below those sizes. Shrinking the document array
// also drops the postings of the removed documents.
func (idx *InvertedIndex) Build(wordLabels, docLabels []uint32, wordCount, docCount int) {
	idx.words = resize(idx.words, wordCount)
	if docCount < len(idx.docs) {
		idx.dropPostingsFrom(DocID(max(docCount, 0)))
	}
	idx.docs = resize(idx.docs, docCount)
	idx.statsComputed = false

	ntokens := min(len(wordLabels), len(docLabels))
	var indexed int
	for i := 0; i < ntokens; i++ {
		wl, dl := wordLabels[i], docLabels[i]
		if wl == 0 || int(wl) > wordCount || dl == 0 || int(dl) > docCount {
			continue
		}

		doc := dl - 1
		idx.addToken(wl-1, doc)
		idx.docs[doc].TokenCount++
		indexed++
	}

	idx.logger.Info("built index",
		slog.Int("words", wordCount),
		slog.Int("docs", docCount),
		slog.Int("tokens", indexed))
	idx.metrics.ObserveBuild(docCount, indexed)
}

// BuildDocuments fills the index from one token sequence per document.
// Document d of the batch gets id d+idOffset.
//
// The document array grows to idOffset+len(batch) and never shrinks, so a
// later batch with a disjoint idOffset appends to the documents already
// indexed. Every token of a document counts toward its TokenCount, including
// labels that are skipped.
func (idx *InvertedIndex) BuildDocuments(batch [][]uint32, wordCount int, idOffset uint32) {
	idx.words = resize(idx.words, wordCount)
	if n := int(idOffset) + len(batch); n > len(idx.docs) {
		idx.docs = resize(idx.docs, n)
	}
	idx.statsComputed = false

	var ntokens int
	for d, tokens := range batch {
		doc := DocID(d) + idOffset
		idx.docs[doc].TokenCount += uint64(len(tokens))

		for _, wl := range tokens {
			if wl == 0 || int(wl) > wordCount {
				continue
			}
			idx.addToken(wl-1, doc)
			ntokens++
		}
	}

	idx.logger.Info("built index from documents",
		slog.Int("words", wordCount),
		slog.Int("batch", len(batch)),
		slog.Int("offset", int(idOffset)),
		slog.Int("tokens", ntokens))
	idx.metrics.ObserveBuild(len(batch), ntokens)
}

// addToken records one occurrence of word in doc.
func (idx *InvertedIndex) addToken(word WordID, doc DocID) {
	w := &idx.words[word]
	w.TotalFrequency++

	i, found := findPosting(w.Postings, doc)
	if !found {
		w.Postings = append(w.Postings, Posting{})
		copy(w.Postings[i+1:], w.Postings[i:])
		w.Postings[i] = Posting{Doc: doc}
		w.DocFrequency++
	}
	w.Postings[i].Count++
}

// dropPostingsFrom removes every posting of a document >= first, keeping
// DocFrequency and TotalFrequency in step.
func (idx *InvertedIndex) dropPostingsFrom(first DocID) {
	for i := range idx.words {
		w := &idx.words[i]
		cut, _ := findPosting(w.Postings, first)
		for _, p := range w.Postings[cut:] {
			w.TotalFrequency -= p.Count
		}
		clear(w.Postings[cut:])
		w.Postings = w.Postings[:cut]
		w.DocFrequency = uint64(cut)
	}
}

// findPosting returns the position of doc in postings, or the position it
// would be inserted at to keep the list ascending.
func findPosting(postings []Posting, doc DocID) (int, bool) {
	i := sort.Search(len(postings), func(i int) bool {
		return postings[i].Doc >= doc
	})
	return i, i < len(postings) && postings[i].Doc == doc
}

// resize returns s with length n, keeping the first min(len(s), n) entries
// and zeroing the rest.
func resize[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if n <= len(s) {
		clear(s[n:])
		return s[:n]
	}
	grown := make([]T, n)
	copy(grown, s)
	return grown
}

// Clear drops every word and document.
func (idx *InvertedIndex) Clear() {
	idx.words = nil
	idx.docs = nil
	idx.statsComputed = false
}

// ═══════════════════════════════════════════════════════════════════════════════
// READ ACCESSORS
// ═══════════════════════════════════════════════════════════════════════════════

// Params returns the weighting and normalization schemes of the index.
func (idx *InvertedIndex) Params() Params { return idx.params }

// WordCount returns the vocabulary size.
func (idx *InvertedIndex) WordCount() int { return len(idx.words) }

// DocCount returns the number of document slots.
func (idx *InvertedIndex) DocCount() int { return len(idx.docs) }

// StatsComputed reports whether ComputeStats ran since the last change.
func (idx *InvertedIndex) StatsComputed() bool { return idx.statsComputed }

// Word returns a copy of the entry for word.
func (idx *InvertedIndex) Word(word WordID) (WordEntry, bool) {
	if int(word) >= len(idx.words) {
		return WordEntry{}, false
	}
	w := idx.words[word]
	w.Postings = append([]Posting(nil), w.Postings...)
	return w, true
}

// Document returns a copy of the entry for doc.
func (idx *InvertedIndex) Document(doc DocID) (DocumentEntry, bool) {
	if int(doc) >= len(idx.docs) {
		return DocumentEntry{}, false
	}
	d := idx.docs[doc]
	d.Words = append([]WordID(nil), d.Words...)
	return d, true
}
