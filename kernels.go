package ivfile

import "math"

// ═══════════════════════════════════════════════════════════════════════════════
// SCORING KERNELS
// ═══════════════════════════════════════════════════════════════════════════════
// Pure functions over a closed set of schemes. They never touch index state:
// everything they need (document frequency, token counts, norms) is passed in.
//
// EXAMPLE (WeightTFIDF, 10 documents, word present in 2 of them):
// ---------------------------------------------------------------
// A document of 4 tokens containing the word twice:
//
//	tf    = 2 / 4                  = 0.5
//	idf   = log2(10 / (2 + 1e-10)) ≈ 2.3219
//	value = tf * idf               ≈ 1.1610
// ═══════════════════════════════════════════════════════════════════════════════

// epsilon keeps denominators away from zero.
const epsilon = 1e-10

// weight turns a raw count into a weighted value.
//
// docFrequency is the number of documents holding the word, tokenCount the
// number of tokens of the document the count belongs to and docCount the
// number of indexed documents.
func weight(count float32, docFrequency, tokenCount uint64, docCount int, wt Weight) float32 {
	switch wt {
	case WeightBin:
		if count > 0 {
			return 1
		}
		return 0
	case WeightTF:
		return count / float32(max(tokenCount, 1))
	case WeightTFIDF:
		tf := count / float32(max(tokenCount, 1))
		idf := math.Log2(float64(docCount) / (float64(docFrequency) + epsilon))
		return float32(float64(tf) * idf)
	default:
		return count
	}
}

// normalize divides a weighted value by the document aggregate picked by norm.
// The norms must be final: dividing by a partial sum skews every value.
func normalize(val float32, doc *DocumentEntry, norm Norm) float32 {
	switch norm {
	case NormL0:
		return float32(float64(val) / (epsilon + float64(doc.Norm0)))
	case NormL1:
		return float32(float64(val) / (epsilon + float64(doc.Norm1)))
	case NormL2:
		return float32(float64(val) / (epsilon + math.Sqrt(float64(doc.Norm2))))
	default:
		return val
	}
}

// distance compares one dimension of two histograms.
func distance(a, b float32, dist Dist) float32 {
	switch dist {
	case DistL1:
		d := a - b
		if d < 0 {
			return -d
		}
		return d
	case DistL2:
		d := a - b
		return d * d
	case DistHam:
		return float32(truncate(a) ^ truncate(b))
	case DistCos:
		return a * b
	case DistJac:
		if a == 0 || b == 0 {
			return 0
		}
		return 1
	case DistHistInt:
		if a <= b {
			return a
		}
		return b
	default:
		// DistKL is reserved and leaves the value untouched.
		return a
	}
}

// truncate converts a value to an unsigned integer, rounding toward zero.
func truncate(v float32) uint32 {
	return uint32(int64(v))
}

// selfDistance is the distance of a document to the empty histogram: the
// value every score starts from before touched dimensions are corrected.
// With normalization active values are bounded and the self term is 1.
func selfDistance(doc *DocumentEntry, dist Dist, norm Norm) float32 {
	switch dist {
	case DistCos, DistJac, DistHistInt:
		return 0
	}
	if norm != NormNone {
		return 1
	}
	switch dist {
	case DistL1:
		return doc.Norm1
	case DistL2:
		return doc.Norm2
	case DistHam:
		return doc.Norm0
	default:
		return 0
	}
}
