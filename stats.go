package ivfile

import "log/slog"

// ComputeStats turns raw posting counts into weighted, normalized values and
// fills the per-document norms and word lists. It must run after the last
// Build and before any Search.
//
// TWO PASSES:
// -----------
// Pass 1: weight every posting and accumulate the document norms
//
//	Norm0 += 1, Norm1 += value, Norm2 += value²
//
// Pass 2: normalize every posting by its document's (now final) norm.
//
// The passes cannot be merged: a document's norm is only complete once every
// word has been visited.
func (idx *InvertedIndex) ComputeStats() {
	wt, norm := idx.params.Weight, idx.params.Norm
	idx.logger.Info("computing stats",
		slog.String("weight", wt.String()),
		slog.String("norm", norm.String()))

	for i := range idx.docs {
		d := &idx.docs[i]
		d.Norm0, d.Norm1, d.Norm2 = 0, 0, 0
		d.UniqueWordCount = 0
		d.Words = d.Words[:0]
	}

	ndocs := len(idx.docs)
	for i := range idx.words {
		w := &idx.words[i]
		w.DocFrequency = uint64(len(w.Postings))

		for j := range w.Postings {
			p := &w.Postings[j]
			d := &idx.docs[p.Doc]

			p.Value = weight(float32(p.Count), w.DocFrequency, d.TokenCount, ndocs, wt)

			d.Norm0++
			d.Norm1 += p.Value
			d.Norm2 += p.Value * p.Value
			d.Words = append(d.Words, WordID(i))
			d.UniqueWordCount++
		}
	}

	for i := range idx.words {
		w := &idx.words[i]
		for j := range w.Postings {
			p := &w.Postings[j]
			p.Value = normalize(p.Value, &idx.docs[p.Doc], norm)
		}
	}

	idx.statsComputed = true
}
