package rave_test

import (
	"math"
	"testing"

	"github.com/ravelab/ravemap/pkg/rave"
)

func TestLatentAt(t *testing.T) {
	// 2 dims, 3 steps, row-major by dim.
	z := &rave.Latent{
		Dims:  2,
		Steps: 3,
		Data:  []float32{1, 2, 3, 10, 20, 30},
	}
	if got := z.At(0, 1); got != 2 {
		t.Fatalf("At(0,1) = %v, want 2", got)
	}
	if got := z.At(1, 2); got != 30 {
		t.Fatalf("At(1,2) = %v, want 30", got)
	}
}

func TestLatentMean(t *testing.T) {
	z := &rave.Latent{
		Dims:  2,
		Steps: 4,
		Data:  []float32{1, 2, 3, 4, -1, -1, 1, 1},
	}
	mean := z.Mean()
	if len(mean) != 2 {
		t.Fatalf("Mean len = %d, want 2", len(mean))
	}
	if mean[0] != 2.5 {
		t.Errorf("mean[0] = %v, want 2.5", mean[0])
	}
	if mean[1] != 0 {
		t.Errorf("mean[1] = %v, want 0", mean[1])
	}
}

func TestLatentMeanSingleStep(t *testing.T) {
	z := &rave.Latent{Dims: 3, Steps: 1, Data: []float32{7, 8, 9}}
	mean := z.Mean()
	if len(mean) != 3 {
		t.Fatalf("Mean len = %d, want 3", len(mean))
	}
	for i, want := range []float32{7, 8, 9} {
		if mean[i] != want {
			t.Errorf("mean[%d] = %v, want %v", i, mean[i], want)
		}
	}
	// Mean must return a copy, not alias the latent buffer.
	mean[0] = 100
	if z.Data[0] != 7 {
		t.Fatal("Mean aliases the latent buffer")
	}
}

func TestLatentMeanLargeValues(t *testing.T) {
	// Accumulation happens in float64, so summing many large float32
	// values must not lose the fractional part.
	const steps = 10000
	data := make([]float32, steps)
	for i := range data {
		data[i] = 1000.5
	}
	z := &rave.Latent{Dims: 1, Steps: steps, Data: data}
	mean := z.Mean()
	if diff := math.Abs(float64(mean[0]) - 1000.5); diff > 1e-3 {
		t.Fatalf("mean = %v, want 1000.5 (diff %v)", mean[0], diff)
	}
}

func TestFormats(t *testing.T) {
	formats := rave.Formats()
	found := false
	for _, f := range formats {
		if f == ".rvm" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Formats() = %v, want it to include .rvm", formats)
	}
}
