package ivfile

import (
	"bufio"
	"fmt"
	"io"
)

// Dump writes a human-readable listing of the index to w: one line per
// document when showDocs is set, one block per word when showWords is set.
//
//	Documents:
//	----------
//	Doc 0: tokens=3 words=2 norm0=2 norm1=1 norm2=0.5555556
//
//	Words:
//	------
//	Word 0: (docs=2, total=3)
//		<doc=0, count=2, val=0.6666667><doc=2, count=1, val=0.5>
func (idx *InvertedIndex) Dump(w io.Writer, showDocs, showWords bool) error {
	bw := bufio.NewWriter(w)

	if showDocs {
		fmt.Fprint(bw, "Documents:\n----------\n")
		for i := range idx.docs {
			d := &idx.docs[i]
			fmt.Fprintf(bw, "Doc %d: tokens=%d words=%d norm0=%v norm1=%v norm2=%v\n",
				i, d.TokenCount, d.UniqueWordCount, d.Norm0, d.Norm1, d.Norm2)
		}
	}

	if showWords {
		if showDocs {
			fmt.Fprintln(bw)
		}
		fmt.Fprint(bw, "Words:\n------\n")
		for i := range idx.words {
			wd := &idx.words[i]
			fmt.Fprintf(bw, "Word %d: (docs=%d, total=%d)\n\t", i, wd.DocFrequency, wd.TotalFrequency)
			for _, p := range wd.Postings {
				fmt.Fprintf(bw, "<doc=%d, count=%d, val=%v>", p.Doc, p.Count, p.Value)
			}
			fmt.Fprintln(bw)
		}
	}

	return bw.Flush()
}
