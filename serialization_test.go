package ivfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// scenarioSize is the encoded size of scenarioDocs: params, 3 documents,
// 4 words and 6 postings.
const scenarioSize = paramsSize + 4 + 3*docSize + 4 + 4*wordSize + 6*postingSize

func encode(t *testing.T, idx *InvertedIndex) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := idx.Encode(&buf); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return buf.Bytes()
}

// ═══════════════════════════════════════════════════════════════════════════════
// ENCODE / DECODE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestEncode_Layout(t *testing.T) {
	idx := newScenarioIndex(t, Params{Weight: WeightTFIDF, Norm: NormL2})
	data := encode(t, idx)

	if len(data) != scenarioSize {
		t.Fatalf("encoded %d bytes, want %d", len(data), scenarioSize)
	}
	if got := int32(binary.LittleEndian.Uint32(data[0:4])); got != int32(NormL2) {
		t.Errorf("norm field = %d, want %d", got, NormL2)
	}
	if got := int32(binary.LittleEndian.Uint32(data[4:8])); got != int32(WeightTFIDF) {
		t.Errorf("weight field = %d, want %d", got, WeightTFIDF)
	}
	if got := binary.LittleEndian.Uint32(data[8:12]); got != 3 {
		t.Errorf("doc count field = %d, want 3", got)
	}
	if got := binary.LittleEndian.Uint64(data[12:20]); got != 3 {
		t.Errorf("doc 0 token count = %d, want 3", got)
	}
}

func TestEncode_EmptyIndex(t *testing.T) {
	idx, _ := New(DefaultParams())

	if data := encode(t, idx); len(data) != paramsSize+4+4 {
		t.Errorf("empty index encoded to %d bytes, want %d", len(data), paramsSize+4+4)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	idx := newScenarioIndex(t, Params{Weight: WeightTF, Norm: NormL1})
	data := encode(t, idx)

	loaded, _ := New(DefaultParams())
	if err := loaded.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if loaded.Params() != idx.Params() {
		t.Errorf("Params() = %+v, want %+v", loaded.Params(), idx.Params())
	}
	if loaded.StatsComputed() {
		t.Error("StatsComputed() = true right after Decode")
	}
	if again := encode(t, loaded); !bytes.Equal(again, data) {
		t.Error("re-encoding a decoded index changed the bytes")
	}

	loaded.ComputeStats()
	query := []uint32{1, 2, 2}
	want, _ := idx.Search(query, DistL1, false, 0)
	got, err := loaded.Search(query, DistL1, false, 0)
	if err != nil {
		t.Fatalf("Search() after Decode error: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDecode_InvalidParams(t *testing.T) {
	data := encode(t, newScenarioIndex(t, DefaultParams()))
	binary.LittleEndian.PutUint32(data[0:4], 9)

	idx, _ := New(DefaultParams())
	if err := idx.Decode(bytes.NewReader(data)); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Decode() error = %v, want ErrInvalidParams", err)
	}
}

func TestDecode_Truncated(t *testing.T) {
	data := encode(t, newScenarioIndex(t, DefaultParams()))

	for _, n := range []int{0, 3, paramsSize, paramsSize + 6, 40, scenarioSize - postingSize, scenarioSize - 1} {
		idx := newScenarioIndex(t, Params{Weight: WeightBin, Norm: NormNone})

		err := idx.Decode(bytes.NewReader(data[:n]))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("Decode(%d bytes) error = %v, want io.ErrUnexpectedEOF", n, err)
		}
		if idx.Params().Weight != WeightBin || idx.DocCount() != 3 || !idx.StatsComputed() {
			t.Errorf("Decode(%d bytes) modified the index on failure", n)
		}
	}
}

func TestDecode_HugeCountsOnShortStream(t *testing.T) {
	header := func(counts ...uint32) []byte {
		data := binary.LittleEndian.AppendUint32(nil, uint32(NormL0))
		data = binary.LittleEndian.AppendUint32(data, uint32(WeightNone))
		for _, c := range counts {
			data = binary.LittleEndian.AppendUint32(data, c)
		}
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"documents", header(0xFFFFFFFF)},
		{"words", header(0, 0xFFFFFFFF)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, _ := New(DefaultParams())
			if err := idx.Decode(bytes.NewReader(tt.data)); !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("Decode() error = %v, want io.ErrUnexpectedEOF", err)
			}
		})
	}
}

func TestDecode_CorruptPostings(t *testing.T) {
	postings := paramsSize + 4 + 3*docSize + 4 + 4*wordSize

	tests := []struct {
		name  string
		patch func(data []byte)
	}{
		{"doc out of range", func(data []byte) {
			binary.LittleEndian.PutUint64(data[postings+8:], 7)
		}},
		{"docs not ascending", func(data []byte) {
			// word 0 postings are docs 0 and 2
			binary.LittleEndian.PutUint64(data[postings+postingSize+8:], 0)
		}},
		{"doc frequency above doc count", func(data []byte) {
			binary.LittleEndian.PutUint64(data[paramsSize+4+3*docSize+4:], 4)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encode(t, newScenarioIndex(t, DefaultParams()))
			tt.patch(data)

			idx, _ := New(DefaultParams())
			if err := idx.Decode(bytes.NewReader(data)); !errors.Is(err, ErrCorruptIndex) {
				t.Errorf("Decode() error = %v, want ErrCorruptIndex", err)
			}
		})
	}
}

func TestEncode_InconsistentDocFrequency(t *testing.T) {
	idx := newScenarioIndex(t, DefaultParams())
	idx.words[0].DocFrequency = 5

	var buf bytes.Buffer
	if err := idx.Encode(&buf); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("Encode() error = %v, want ErrCorruptIndex", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Encode() wrote %d bytes before failing", buf.Len())
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// FILE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"index.ivf", "index.ivf.zst"} {
		t.Run(name, func(t *testing.T) {
			idx := newScenarioIndex(t, Params{Weight: WeightTFIDF, Norm: NormL2})
			path := filepath.Join(t.TempDir(), "nested", name)

			if err := idx.Save(path); err != nil {
				t.Fatalf("Save() error: %v", err)
			}

			loaded, _ := New(DefaultParams())
			if err := loaded.Load(path); err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if !bytes.Equal(encode(t, loaded), encode(t, idx)) {
				t.Error("loaded index differs from saved one")
			}

			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Errorf("directory holds %d entries after Save, want 1", len(entries))
			}
		})
	}
}

func TestSave_CompressedDiffersFromPlain(t *testing.T) {
	idx := newScenarioIndex(t, DefaultParams())
	dir := t.TempDir()
	plain := filepath.Join(dir, "index.ivf")
	packed := filepath.Join(dir, "index.ivf.zst")

	if err := idx.Save(plain); err != nil {
		t.Fatalf("Save(plain) error: %v", err)
	}
	if err := idx.Save(packed); err != nil {
		t.Fatalf("Save(zst) error: %v", err)
	}

	raw, _ := os.ReadFile(plain)
	if !bytes.Equal(raw, encode(t, idx)) {
		t.Error("plain file is not the bare encoding")
	}
	zst, _ := os.ReadFile(packed)
	if bytes.Equal(zst, raw) {
		t.Error("zst file is not compressed")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	idx := newScenarioIndex(t, DefaultParams())

	if err := idx.Load(filepath.Join(dir, "missing.ivf")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}

	bad := filepath.Join(dir, "bad.ivf")
	if err := os.WriteFile(bad, []byte{1, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := idx.Load(bad); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Load() of a short file error = %v, want io.ErrUnexpectedEOF", err)
	}
	if idx.DocCount() != 3 || !idx.StatsComputed() {
		t.Error("failed Load() modified the index")
	}
}
