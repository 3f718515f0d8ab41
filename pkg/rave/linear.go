package rave

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultSampleRate is the canonical RAVE training rate, used when a
// checkpoint does not declare its own.
const DefaultSampleRate = 48000

// linearExt is the file extension the linear backend registers for.
const linearExt = ".rvm"

// rvmMagic identifies a ravemap linear checkpoint file. The msgpack
// payload follows immediately after.
var rvmMagic = []byte("RVM1")

func init() {
	Register(linearExt, func(path string) (Model, error) { return OpenLinear(path) })
}

// Checkpoint is the on-disk form of a linear encoder: a frame-wise
// projection exported from a trained model's encoder head.
//
// Weights is laid out [Dims][FrameSize]; each latent channel is the dot
// product of one weight row with a waveform frame, plus the channel bias,
// through the optional activation.
type Checkpoint struct {
	Version    int         `msgpack:"version"`
	SampleRate int         `msgpack:"sample_rate"`
	FrameSize  int         `msgpack:"frame_size"`
	Dims       int         `msgpack:"dims"`
	Weights    [][]float32 `msgpack:"weights"`
	Bias       []float32   `msgpack:"bias"`
	Activation string      `msgpack:"activation"` // "" (identity) or "tanh"
	Collapse   bool        `msgpack:"collapse"`   // mean-pool timesteps inside the model
}

func (c *Checkpoint) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported checkpoint version %d", c.Version)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("invalid frame size %d", c.FrameSize)
	}
	if c.Dims <= 0 {
		return fmt.Errorf("invalid latent width %d", c.Dims)
	}
	if len(c.Weights) != c.Dims {
		return fmt.Errorf("weight rows = %d, want %d", len(c.Weights), c.Dims)
	}
	for d, row := range c.Weights {
		if len(row) != c.FrameSize {
			return fmt.Errorf("weight row %d has %d taps, want %d", d, len(row), c.FrameSize)
		}
	}
	if len(c.Bias) != c.Dims {
		return fmt.Errorf("bias len = %d, want %d", len(c.Bias), c.Dims)
	}
	switch c.Activation {
	case "", "tanh":
	default:
		return fmt.Errorf("unknown activation %q", c.Activation)
	}
	return nil
}

// SaveLinear writes a checkpoint to path in the .rvm format.
func SaveLinear(path string, c *Checkpoint) error {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("rave: checkpoint: %w", err)
	}
	payload, err := msgpack.Marshal(c)
	if err != nil {
		return fmt.Errorf("rave: encode checkpoint: %w", err)
	}
	buf := make([]byte, 0, len(rvmMagic)+len(payload))
	buf = append(buf, rvmMagic...)
	buf = append(buf, payload...)
	return os.WriteFile(path, buf, 0o644)
}

// LinearModel implements [Model] for .rvm checkpoints.
type LinearModel struct {
	ckpt   *Checkpoint
	closed bool
}

var _ Model = (*LinearModel)(nil)

// OpenLinear loads a .rvm checkpoint from disk.
func OpenLinear(path string) (*LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < len(rvmMagic) || !bytes.Equal(raw[:len(rvmMagic)], rvmMagic) {
		return nil, fmt.Errorf("not a linear checkpoint (bad magic)")
	}
	var ckpt Checkpoint
	if err := msgpack.Unmarshal(raw[len(rvmMagic):], &ckpt); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if ckpt.SampleRate == 0 {
		ckpt.SampleRate = DefaultSampleRate
	}
	if err := ckpt.validate(); err != nil {
		return nil, err
	}
	return &LinearModel{ckpt: &ckpt}, nil
}

// NewLinear wraps an in-memory checkpoint, bypassing the file format.
// Mainly useful for tools that synthesize models.
func NewLinear(c *Checkpoint) (*LinearModel, error) {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("rave: checkpoint: %w", err)
	}
	return &LinearModel{ckpt: c}, nil
}

// SampleRate implements [Model].
func (m *LinearModel) SampleRate() int {
	return m.ckpt.SampleRate
}

// Encode implements [Model]. The waveform is split into consecutive
// FrameSize windows (the final window zero-padded) and each window is
// projected to one latent timestep.
func (m *LinearModel) Encode(pcm []float32) (*Latent, error) {
	if m.closed {
		return nil, fmt.Errorf("rave: model is closed")
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("rave: empty waveform")
	}

	ckpt := m.ckpt
	steps := (len(pcm) + ckpt.FrameSize - 1) / ckpt.FrameSize

	out := &Latent{
		Dims:  ckpt.Dims,
		Steps: steps,
		Data:  make([]float32, ckpt.Dims*steps),
	}
	frame := make([]float32, ckpt.FrameSize)
	for t := 0; t < steps; t++ {
		n := copy(frame, pcm[t*ckpt.FrameSize:])
		for i := n; i < ckpt.FrameSize; i++ {
			frame[i] = 0
		}
		for d := 0; d < ckpt.Dims; d++ {
			row := ckpt.Weights[d]
			sum := float64(ckpt.Bias[d])
			for i, w := range row {
				sum += float64(w) * float64(frame[i])
			}
			if ckpt.Activation == "tanh" {
				sum = math.Tanh(sum)
			}
			out.Data[d*steps+t] = float32(sum)
		}
	}

	if ckpt.Collapse && steps > 1 {
		mean := out.Mean()
		out = &Latent{Dims: ckpt.Dims, Steps: 1, Data: mean}
	}
	return out, nil
}

// Close implements [Model].
func (m *LinearModel) Close() error {
	m.closed = true
	return nil
}
