package ivfile

// Quantizer maps a local feature descriptor to a visual word. Training,
// loading and persisting the vocabulary are the quantizer's own business.
type Quantizer interface {
	// Quantize returns a word id in [0, MaxWordID()].
	Quantize(descriptor []float32) uint32
	// MaxWordID returns the largest id Quantize can return.
	MaxWordID() uint32
}

// VocabularySize returns the word count an index needs to hold every word q
// can produce.
func VocabularySize(q Quantizer) int {
	return int(q.MaxWordID()) + 1
}

// Labels quantizes descriptors into one-based word labels, the form Build,
// BuildDocuments and Search take. Label 0 stays reserved for "no word".
func Labels(q Quantizer, descriptors [][]float32) []uint32 {
	labels := make([]uint32, len(descriptors))
	for i, d := range descriptors {
		labels[i] = q.Quantize(d) + 1
	}
	return labels
}

// PathWord folds the cluster chosen at each level of a hierarchical
// quantizer into one word id. The first level is the least significant
// digit, in base clusters.
//
// EXAMPLE (3 clusters, depth 3):
// ------------------------------
//
//	path [2, 0, 1] → 2*1 + 0*3 + 1*9 = 11
func PathWord(path []uint32, clusters uint32) uint32 {
	var word uint32
	p := uint32(1)
	for _, c := range path {
		word += c * p
		p *= clusters
	}
	return word
}

// MaxWord returns the largest word id of a hierarchical quantizer with the
// given branching factor and depth: clusters^depth - 1.
func MaxWord(clusters uint32, depth int) uint32 {
	p := uint32(1)
	for i := 0; i < depth; i++ {
		p *= clusters
	}
	return p - 1
}
