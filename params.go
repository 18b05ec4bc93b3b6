package ivfile

import (
	"fmt"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SCHEMES: How counts are weighted, normalized and compared
// ═══════════════════════════════════════════════════════════════════════════════
// Three closed enumerations drive every scoring decision:
//
//	Weight  → turns a raw count into a value        (none, bin, tf, tfidf)
//	Norm    → scales a value by a document aggregate (none, l0, l1, l2)
//	Dist    → compares a query value to a doc value  (l1, l2, ham, kl, cos, jac, histint)
//
// Weight and Norm are fixed per index (they shape the stored posting values).
// Dist is chosen per search.
// ═══════════════════════════════════════════════════════════════════════════════

// Weight selects how raw word counts are turned into posting values.
type Weight int32

const (
	WeightNone  Weight = iota // raw counts
	WeightBin                 // 1 if the word occurs, else 0
	WeightTF                  // count / tokens in the document
	WeightTFIDF               // tf * log2(docs / docFrequency)
	weightLast
)

// Norm selects the document aggregate posting values are divided by.
type Norm int32

const (
	NormNone Norm = iota // keep weighted values
	NormL0               // divide by the number of distinct words
	NormL1               // divide by the sum of weighted values
	NormL2               // divide by the root of the sum of squares
	normLast
)

// Dist selects the per-dimension distance used when ranking.
type Dist int32

const (
	DistL1      Dist = iota // |a-b|
	DistL2                  // (a-b)^2
	DistHam                 // xor of truncated values
	DistKL                  // reserved, no-op
	DistCos                 // a*b, flipped to 1-sum after accumulation
	DistJac                 // intersection indicator, turned into 1-|A∩B|/|A∪B|
	DistHistInt             // min(a,b), flipped to 1-sum after accumulation
	distLast
)

var (
	weightNames = [...]string{"none", "bin", "tf", "tfidf"}
	normNames   = [...]string{"none", "l0", "l1", "l2"}
	distNames   = [...]string{"l1", "l2", "ham", "kl", "cos", "jac", "histint"}
)

// Valid reports whether w is one of the declared weighting schemes.
func (w Weight) Valid() bool { return w >= 0 && w < weightLast }

// Valid reports whether n is one of the declared normalization schemes.
func (n Norm) Valid() bool { return n >= 0 && n < normLast }

// Valid reports whether d is one of the declared distance schemes.
func (d Dist) Valid() bool { return d >= 0 && d < distLast }

func (w Weight) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weight(%d)", int32(w))
	}
	return weightNames[w]
}

func (n Norm) String() string {
	if !n.Valid() {
		return fmt.Sprintf("Norm(%d)", int32(n))
	}
	return normNames[n]
}

func (d Dist) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Dist(%d)", int32(d))
	}
	return distNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (w Weight) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: weight %d", ErrInvalidScheme, int32(w))
	}
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Weight) UnmarshalText(text []byte) error {
	i, err := lookupScheme(weightNames[:], "weight", string(text))
	if err != nil {
		return err
	}
	*w = Weight(i)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (n Norm) MarshalText() ([]byte, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("%w: norm %d", ErrInvalidScheme, int32(n))
	}
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Norm) UnmarshalText(text []byte) error {
	i, err := lookupScheme(normNames[:], "norm", string(text))
	if err != nil {
		return err
	}
	*n = Norm(i)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Dist) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: dist %d", ErrInvalidScheme, int32(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dist) UnmarshalText(text []byte) error {
	i, err := lookupScheme(distNames[:], "dist", string(text))
	if err != nil {
		return err
	}
	*d = Dist(i)
	return nil
}

func lookupScheme(names []string, kind, name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalidScheme, kind, name)
}

// ═══════════════════════════════════════════════════════════════════════════════
// INDEX PARAMETERS
// ═══════════════════════════════════════════════════════════════════════════════

// Params fixes how an index weights and normalizes its postings.
type Params struct {
	Norm   Norm   `yaml:"norm"`
	Weight Weight `yaml:"weight"`
}

// DefaultParams returns L1 normalization over raw counts.
func DefaultParams() Params {
	return Params{
		Norm:   NormL1,
		Weight: WeightNone,
	}
}

// Validate fails with ErrInvalidParams when a scheme is out of range.
func (p Params) Validate() error {
	if !p.Norm.Valid() {
		return fmt.Errorf("%w: norm cannot be %d", ErrInvalidParams, int32(p.Norm))
	}
	if !p.Weight.Valid() {
		return fmt.Errorf("%w: weight cannot be %d", ErrInvalidParams, int32(p.Weight))
	}
	return nil
}
