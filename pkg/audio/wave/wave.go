// Package wave decodes RIFF/WAV files into mono float32 waveforms at a
// caller-chosen sample rate, which is the input contract of the latent
// encoder. Multi-channel audio is downmixed by averaging; rate conversion
// uses a high quality polyphase resampler.
package wave

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// DecodeMono reads the WAV file at path and returns its samples as mono
// float32 in [-1, 1] at targetRate.
func DecodeMono(path string, targetRate int) ([]float32, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("wave: invalid target rate %d", targetRate)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wave: %s: not a RIFF/WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wave: %s: decode: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("wave: %s: missing format header", path)
	}

	channels := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))

	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, fmt.Errorf("wave: %s: no audio samples", path)
	}

	// Downmix to mono and normalize in one pass.
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		mono[i] = float64(sum) / float64(channels) * scale
	}

	if srcRate != targetRate {
		mono, err = resample(mono, srcRate, targetRate)
		if err != nil {
			return nil, fmt.Errorf("wave: %s: %w", path, err)
		}
	}

	out := make([]float32, len(mono))
	for i, s := range mono {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = float32(s)
	}
	return out, nil
}

func resample(in []float64, srcRate, dstRate int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler %d->%d: %w", srcRate, dstRate, err)
	}
	out, err := rs.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resample %d->%d: %w", srcRate, dstRate, err)
	}
	return out, nil
}
