package ivfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION: Saving and Loading the Index
// ═══════════════════════════════════════════════════════════════════════════════
// Fixed field order, little-endian, no versioning, no framing beyond the
// explicit counts:
//
//	[Params]
//	  - Norm:   int32
//	  - Weight: int32
//
//	[Documents]
//	  - DocCount: uint32
//	  - For each document:
//	      TokenCount: uint64
//
//	[Words]
//	  - WordCount: uint32
//	  - For each word:
//	      DocFrequency:   uint64
//	      TotalFrequency: uint64
//
//	[Postings] (for each word in order, DocFrequency records)
//	  - Count: uint64
//	  - Doc:   uint64
//	  - Value: float32
//
// Norms and per-document word lists are not stored: run ComputeStats after
// loading. A word's posting count on load is its stored DocFrequency.
// ═══════════════════════════════════════════════════════════════════════════════

const (
	paramsSize  = 4 + 4
	docSize     = 8
	wordSize    = 8 + 8
	postingSize = 8 + 8 + 4
)

// maxPrealloc caps how many records Decode reserves up front from a count
// read off the stream; larger tables grow as records arrive.
const maxPrealloc = 1 << 16

// zstdSuffix marks files whose byte stream is wrapped in a zstd frame.
const zstdSuffix = ".zst"

// Encode writes the index to w.
//
// It fails with ErrCorruptIndex, before writing anything, when a word's
// DocFrequency does not match its posting list.
func (idx *InvertedIndex) Encode(w io.Writer) error {
	for i := range idx.words {
		if got, want := len(idx.words[i].Postings), idx.words[i].DocFrequency; uint64(got) != want {
			return fmt.Errorf("%w: word %d has %d postings, doc frequency %d",
				ErrCorruptIndex, i, got, want)
		}
	}
	if uint64(len(idx.docs)) > math.MaxUint32 || uint64(len(idx.words)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d docs, %d words exceed uint32", ErrCorruptIndex, len(idx.docs), len(idx.words))
	}

	bw := bufio.NewWriter(w)
	enc := newIndexEncoder(bw)

	enc.putInt32(int32(idx.params.Norm))
	enc.putInt32(int32(idx.params.Weight))
	if err := enc.flush("writing params"); err != nil {
		return err
	}

	enc.putUint32(uint32(len(idx.docs)))
	for i := range idx.docs {
		enc.putUint64(idx.docs[i].TokenCount)
		if err := enc.flush("writing documents"); err != nil {
			return err
		}
	}

	enc.putUint32(uint32(len(idx.words)))
	for i := range idx.words {
		enc.putUint64(idx.words[i].DocFrequency)
		enc.putUint64(idx.words[i].TotalFrequency)
		if err := enc.flush("writing words"); err != nil {
			return err
		}
	}

	for i := range idx.words {
		for _, p := range idx.words[i].Postings {
			enc.putUint64(p.Count)
			enc.putUint64(uint64(p.Doc))
			enc.putFloat32(p.Value)
			if err := enc.flush("writing postings"); err != nil {
				return err
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing index: %w", err)
	}
	return nil
}

// indexEncoder stages fixed-size fields in a scratch buffer before handing
// them to the writer.
type indexEncoder struct {
	w   io.Writer
	buf []byte
}

func newIndexEncoder(w io.Writer) *indexEncoder {
	return &indexEncoder{w: w, buf: make([]byte, 0, wordSize)}
}

func (e *indexEncoder) putInt32(v int32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

func (e *indexEncoder) putUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *indexEncoder) putUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *indexEncoder) putFloat32(v float32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v))
}

func (e *indexEncoder) flush(what string) error {
	_, err := e.w.Write(e.buf)
	e.buf = e.buf[:0]
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// DESERIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// Decode replaces the index with the one read from r. On error the index is
// left unchanged.
func (idx *InvertedIndex) Decode(r io.Reader) error {
	dec := newIndexDecoder(bufio.NewReader(r))

	var params Params
	fields, err := dec.next(paramsSize, "reading params")
	if err != nil {
		return err
	}
	params.Norm = Norm(int32(binary.LittleEndian.Uint32(fields[0:4])))
	params.Weight = Weight(int32(binary.LittleEndian.Uint32(fields[4:8])))
	if err := params.Validate(); err != nil {
		return err
	}

	ndocs, err := dec.count("reading document count")
	if err != nil {
		return err
	}
	docs := make([]DocumentEntry, 0, min(ndocs, maxPrealloc))
	for range ndocs {
		fields, err := dec.next(docSize, "reading documents")
		if err != nil {
			return err
		}
		docs = append(docs, DocumentEntry{TokenCount: binary.LittleEndian.Uint64(fields)})
	}

	nwords, err := dec.count("reading word count")
	if err != nil {
		return err
	}
	words := make([]WordEntry, 0, min(nwords, maxPrealloc))
	for range nwords {
		fields, err := dec.next(wordSize, "reading words")
		if err != nil {
			return err
		}
		words = append(words, WordEntry{
			DocFrequency:   binary.LittleEndian.Uint64(fields[0:8]),
			TotalFrequency: binary.LittleEndian.Uint64(fields[8:16]),
		})
	}

	for i := range words {
		w := &words[i]
		if w.DocFrequency > uint64(ndocs) {
			return fmt.Errorf("%w: word %d claims %d postings for %d documents",
				ErrCorruptIndex, i, w.DocFrequency, ndocs)
		}
		w.Postings = make([]Posting, 0, min(int(w.DocFrequency), maxPrealloc))
		for j := range int(w.DocFrequency) {
			fields, err := dec.next(postingSize, "reading postings")
			if err != nil {
				return err
			}
			doc := binary.LittleEndian.Uint64(fields[8:16])
			if doc >= uint64(ndocs) || (j > 0 && doc <= uint64(w.Postings[j-1].Doc)) {
				return fmt.Errorf("%w: word %d posting %d has document %d",
					ErrCorruptIndex, i, j, doc)
			}
			w.Postings = append(w.Postings, Posting{
				Count: binary.LittleEndian.Uint64(fields[0:8]),
				Doc:   DocID(doc),
				Value: math.Float32frombits(binary.LittleEndian.Uint32(fields[16:20])),
			})
		}
	}

	idx.params = params
	idx.docs = docs
	idx.words = words
	idx.statsComputed = false
	return nil
}

// indexDecoder reads fixed-size records.
type indexDecoder struct {
	r   io.Reader
	buf [postingSize]byte
}

func newIndexDecoder(r io.Reader) *indexDecoder {
	return &indexDecoder{r: r}
}

// next reads exactly n bytes. A short read surfaces as io.ErrUnexpectedEOF.
func (d *indexDecoder) next(n int, what string) ([]byte, error) {
	b := d.buf[:n]
	if _, err := io.ReadFull(d.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return b, nil
}

func (d *indexDecoder) count(what string) (int, error) {
	b, err := d.next(4, what)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// FILES
// ═══════════════════════════════════════════════════════════════════════════════

// Save writes the index to path through a temporary file that is renamed on
// success. Paths ending in ".zst" are zstd compressed.
func (idx *InvertedIndex) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)
	defer f.Close()

	if err := idx.encodeFile(f, path); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}

	idx.logger.Info("saved index",
		slog.String("path", path),
		slog.Int("words", len(idx.words)),
		slog.Int("docs", len(idx.docs)))
	return nil
}

func (idx *InvertedIndex) encodeFile(f *os.File, path string) error {
	if !strings.HasSuffix(path, zstdSuffix) {
		return idx.Encode(f)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := idx.Encode(zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return nil
}

// Load replaces the index with the one stored at path. Paths ending in
// ".zst" are zstd compressed. Statistics must be recomputed afterwards.
func (idx *InvertedIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, zstdSuffix) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	if err := idx.Decode(r); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	idx.logger.Info("loaded index",
		slog.String("path", path),
		slog.Int("words", len(idx.words)),
		slog.Int("docs", len(idx.docs)))
	return nil
}
