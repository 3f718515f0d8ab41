// Package latent collects per-file latent vectors into an ordered dataset.
//
// A Dataset maps file identifiers to fixed-width vectors and remembers
// insertion order, so downstream stages (reduction, JSON output) see rows
// in the same order files were processed. The first vector added fixes the
// dataset width; later vectors must match it exactly.
package latent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch is returned by Add when a vector's length
	// differs from the width fixed by the first vector.
	ErrDimensionMismatch = errors.New("latent: dimension mismatch")

	// ErrDuplicateID is returned by Add when the identifier is already
	// present in the dataset.
	ErrDuplicateID = errors.New("latent: duplicate id")
)

// Dataset is an insertion-ordered collection of equal-width vectors.
// It is not safe for concurrent use.
type Dataset struct {
	cols int
	ids  []string
	vecs map[string][]float32
}

// NewDataset returns an empty dataset. Width is fixed by the first Add.
func NewDataset() *Dataset {
	return &Dataset{vecs: make(map[string][]float32)}
}

// Add appends a vector under id. The vector is copied.
func (d *Dataset) Add(id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("latent: empty vector for %q", id)
	}
	if _, ok := d.vecs[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	if d.cols == 0 {
		d.cols = len(vec)
	} else if len(vec) != d.cols {
		return fmt.Errorf("%w: %q has %d values, want %d", ErrDimensionMismatch, id, len(vec), d.cols)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	d.ids = append(d.ids, id)
	d.vecs[id] = cp
	return nil
}

// Len reports the number of vectors.
func (d *Dataset) Len() int { return len(d.ids) }

// Cols reports the vector width, or 0 for an empty dataset.
func (d *Dataset) Cols() int { return d.cols }

// Keys returns the identifiers in insertion order.
func (d *Dataset) Keys() []string {
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}

// Vector returns the vector stored under id.
func (d *Dataset) Vector(id string) ([]float32, bool) {
	v, ok := d.vecs[id]
	if !ok {
		return nil, false
	}
	cp := make([]float32, len(v))
	copy(cp, v)
	return cp, true
}

// Matrix returns the dataset as a dense Len×Cols matrix, rows in
// insertion order, or nil when the dataset is empty.
func (d *Dataset) Matrix() *mat.Dense {
	if len(d.ids) == 0 {
		return nil
	}
	m := mat.NewDense(len(d.ids), d.cols, nil)
	for i, id := range d.ids {
		for j, v := range d.vecs[id] {
			m.Set(i, j, float64(v))
		}
	}
	return m
}

// MarshalJSON encodes the dataset as a JSON object with keys in
// insertion order. encoding/json alone would sort them.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range d.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(d.vecs[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
