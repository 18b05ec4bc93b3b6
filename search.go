package ivfile

import (
	"fmt"
	"log/slog"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RANKING: Scoring a query against every document
// ═══════════════════════════════════════════════════════════════════════════════
// A naive distance between a query histogram q and a document histogram p
// walks the whole vocabulary:
//
//	D(q, p) = Σ_w dist(q_w, p_w)
//
// Most dimensions are zero on at least one side. Split the sum:
//
//	D(q, p) = Σ_w dist(q_w, 0) + Σ_w dist(0, p_w)          ← self terms
//	        + Σ_{w ∈ q∩p} [dist(q_w, p_w) - dist(q_w, 0) - dist(p_w, 0)]
//
// The self terms are per-document constants (selfDistance). The correction
// term only involves words present in both, which is exactly what walking the
// query's posting lists visits. The cost is the number of touched postings.
//
// EXAMPLE (DistL2, no weighting, no normalization):
// -------------------------------------------------
// Query q = {w0: 2, w1: 1}, Doc0 p = {w0: 2, w1: 1}
//
//	start:    |q|² + |p|² = 5 + 5 = 10
//	word w0:  10 - (4 + 4) + (2-2)² = 2
//	word w1:  2  - (1 + 1) + (1-1)² = 0   ← identical histograms score 0
//
// POSTPROCESSING:
// ---------------
// Similarity schemes are turned into "lower is better" distances:
//
//	DistJac     → 1 - |A∩B| / (|A| + |B| - |A∩B|)
//	DistCos     → 1 - dot
//	DistHistInt → 1 - Σ min
// ═══════════════════════════════════════════════════════════════════════════════

// Search ranks the indexed documents against one query given as one-based
// word labels. Invalid labels are ignored.
//
// With overlapOnly only documents sharing at least one word with the query
// are returned; otherwise every document is. k limits the result to the k
// lowest scores, 0 keeps all of them.
func (idx *InvertedIndex) Search(tokens []uint32, dist Dist, overlapOnly bool, k int) (Scores, error) {
	results, err := idx.SearchBatch([][]uint32{tokens}, dist, overlapOnly, k, false)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// SearchBatch runs Search for every query and returns one ranked list per
// query, in input order. With verbose set, progress is logged at info level.
func (idx *InvertedIndex) SearchBatch(queries [][]uint32, dist Dist, overlapOnly bool, k int, verbose bool) ([]Scores, error) {
	if !dist.Valid() {
		return nil, fmt.Errorf("%w: dist %d", ErrInvalidScheme, int32(dist))
	}
	if len(idx.words) > 0 && !idx.statsComputed {
		return nil, ErrStatsNotComputed
	}

	wt, norm := idx.params.Weight, idx.params.Norm
	logger := idx.logger.With(
		slog.String("weight", wt.String()),
		slog.String("norm", norm.String()),
		slog.String("dist", dist.String()))

	// Every document starts at twice its self term; the per-query fold in
	// rank halves it and adds the query's own self term.
	var baseline Scores
	if !overlapOnly {
		baseline = make(Scores, len(idx.docs))
		for i := range idx.docs {
			baseline[i] = ScoreEntry{
				ID:    DocID(i),
				Value: 2 * selfDistance(&idx.docs[i], dist, norm),
			}
		}
	}

	results := make([]Scores, len(queries))
	for d, tokens := range queries {
		if verbose && d == 0 {
			logger.Info("searching", slog.Int("query", d), slog.Int("queries", len(queries)))
		}

		start := time.Now()
		results[d] = idx.rank(tokens, wt, norm, dist, overlapOnly, k, baseline.Clone())
		idx.metrics.ObserveSearch(dist.String(), time.Since(start), len(results[d]))

		logger.Debug("query ranked",
			slog.Int("query", d),
			slog.Int("tokens", len(tokens)),
			slog.Int("results", len(results[d])))
	}

	if verbose {
		logger.Info("search complete", slog.Int("queries", len(queries)))
	}
	return results, nil
}

// rank scores one query into scores, which is either empty (overlap-only)
// or holds one entry per document in id order.
func (idx *InvertedIndex) rank(tokens []uint32, wt Weight, norm Norm, dist Dist, overlapOnly bool, k int, scores Scores) Scores {
	if len(idx.words) == 0 {
		return scores
	}
	nwords, ndocs := len(idx.words), len(idx.docs)

	// STEP 1: count the valid query words, ascending by word id
	var counts Scores
	for _, t := range tokens {
		if t == 0 || int(t) > nwords {
			continue
		}
		counts.slot(t-1, zeroScore).Value++
	}

	// STEP 2: weight the counts and build the query's norms
	query := DocumentEntry{
		TokenCount:      uint64(len(tokens)),
		UniqueWordCount: uint64(len(counts)),
	}
	for i := range counts {
		c := &counts[i]
		c.Value = weight(c.Value, idx.words[c.ID].DocFrequency, query.TokenCount, ndocs, wt)
		query.Norm0++
		query.Norm1 += c.Value
		query.Norm2 += c.Value * c.Value
	}

	// STEP 3: fold the query's self term into the baseline
	querySelf := selfDistance(&query, dist, norm)
	if !overlapOnly && norm == NormNone {
		for i := range scores {
			scores[i].Value = scores[i].Value/2 + querySelf
		}
	}

	// STEP 4: correct the scores of every touched (word, document) pair
	for i := range counts {
		c := &counts[i]
		c.Value = normalize(c.Value, &query, norm)
		queryZero := distance(c.Value, 0, dist)

		for _, p := range idx.words[c.ID].Postings {
			var e *ScoreEntry
			if !overlapOnly || len(scores) == ndocs {
				e = &scores[p.Doc]
			} else {
				e = scores.slot(p.Doc, func() float32 {
					return querySelf + selfDistance(&idx.docs[p.Doc], dist, norm)
				})
			}

			e.Value -= queryZero + distance(p.Value, 0, dist)
			e.Value += distance(c.Value, p.Value, dist)
		}
	}

	// STEP 5: turn similarities into distances
	switch dist {
	case DistJac:
		for i := range scores {
			e := &scores[i]
			union := idx.docs[e.ID].Norm0 + query.Norm0 - e.Value
			if union == 0 {
				e.Value = 1
				continue
			}
			e.Value = 1 - e.Value/union
		}
	case DistCos, DistHistInt:
		for i := range scores {
			scores[i].Value = 1 - scores[i].Value
		}
	}

	// STEP 6: lowest distance first, keep k
	scores.SortByValue()
	return scores.Truncate(k)
}

func zeroScore() float32 { return 0 }
