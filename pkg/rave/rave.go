// Package rave wraps RAVE-style generative audio models behind a small
// encoder interface: a loaded model turns a mono waveform into a latent
// representation, one vector per encoded timestep.
//
// # Architecture
//
// The package has three layers:
//
//  1. [Model]: the opaque handle. Encode(waveform) → [Latent].
//  2. Loader registry: [Register] binds a file extension to a loader,
//     [Load] picks the loader from the model path. Backends register
//     themselves the way inference runtimes register built-in models.
//  3. [LinearModel]: the built-in checkpoint backend (.rvm files), a
//     frame-wise linear projection encoder exported from a trained model.
//
// # Latent Shape
//
// A model may emit one vector per timestep (Steps > 1) or collapse time
// internally and emit a single vector (Steps == 1). Downstream stages call
// [Latent.Mean] to obtain the one representative vector per audio file;
// for Steps == 1 that is the vector itself.
package rave

import "errors"

// Sentinel errors.
var (
	// ErrUnknownFormat is returned by Load when no loader is registered
	// for the model file's extension.
	ErrUnknownFormat = errors.New("rave: unknown model format")

	// ErrModelLoad wraps any failure to open or parse a model file.
	ErrModelLoad = errors.New("rave: model load failed")
)

// Latent is the encoded representation of one audio segment: Dims latent
// channels by Steps encoded timesteps, stored row-major as Data[dim*Steps+step].
type Latent struct {
	// Dims is the latent width (number of channels).
	Dims int

	// Steps is the number of encoded timesteps. 1 means the model already
	// collapsed the time axis.
	Steps int

	// Data holds Dims*Steps values, one row per latent channel.
	Data []float32
}

// At returns the value for the given latent channel and timestep.
func (l *Latent) At(dim, step int) float32 {
	return l.Data[dim*l.Steps+step]
}

// Mean collapses the time axis by arithmetic mean, returning one value per
// latent channel. For Steps == 1 it returns a copy of the single column.
func (l *Latent) Mean() []float32 {
	out := make([]float32, l.Dims)
	if l.Steps == 0 {
		return out
	}
	if l.Steps == 1 {
		copy(out, l.Data[:l.Dims])
		return out
	}
	for d := 0; d < l.Dims; d++ {
		row := l.Data[d*l.Steps : (d+1)*l.Steps]
		var sum float64
		for _, v := range row {
			sum += float64(v)
		}
		out[d] = float32(sum / float64(l.Steps))
	}
	return out
}
