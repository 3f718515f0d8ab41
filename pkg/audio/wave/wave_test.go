package wave_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ravelab/ravemap/pkg/audio/wave"
)

// writeWAV writes 16-bit PCM samples to a WAV file and returns its path.
func writeWAV(t *testing.T, name string, rate, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestDecodeMonoSameRate(t *testing.T) {
	// 16384/32768 = 0.5 exactly.
	path := writeWAV(t, "mono.wav", 8000, 1, []int{0, 16384, -16384, 8192})

	pcm, err := wave.DecodeMono(path, 8000)
	if err != nil {
		t.Fatalf("DecodeMono: %v", err)
	}
	want := []float32{0, 0.5, -0.5, 0.25}
	if len(pcm) != len(want) {
		t.Fatalf("len = %d, want %d", len(pcm), len(want))
	}
	for i, w := range want {
		if pcm[i] != w {
			t.Errorf("pcm[%d] = %v, want %v", i, pcm[i], w)
		}
	}
}

func TestDecodeMonoDownmix(t *testing.T) {
	// Interleaved stereo: frame 0 = (16384, 0), frame 1 = (-16384, -16384).
	path := writeWAV(t, "stereo.wav", 8000, 2, []int{16384, 0, -16384, -16384})

	pcm, err := wave.DecodeMono(path, 8000)
	if err != nil {
		t.Fatalf("DecodeMono: %v", err)
	}
	if len(pcm) != 2 {
		t.Fatalf("len = %d, want 2", len(pcm))
	}
	if pcm[0] != 0.25 {
		t.Errorf("pcm[0] = %v, want 0.25", pcm[0])
	}
	if pcm[1] != -0.5 {
		t.Errorf("pcm[1] = %v, want -0.5", pcm[1])
	}
}

func TestDecodeMonoResample(t *testing.T) {
	// One second of 440 Hz at 48 kHz, decoded at 16 kHz.
	const srcRate = 48000
	data := make([]int, srcRate)
	for i := range data {
		data[i] = int(16384 * math.Sin(2*math.Pi*440*float64(i)/srcRate))
	}
	path := writeWAV(t, "sine.wav", srcRate, 1, data)

	pcm, err := wave.DecodeMono(path, 16000)
	if err != nil {
		t.Fatalf("DecodeMono: %v", err)
	}

	// Streaming resamplers may hold back a small filter tail, so allow
	// a loose band around the exact 3:1 length.
	if len(pcm) < 14000 || len(pcm) > 18000 {
		t.Fatalf("len = %d, want roughly 16000", len(pcm))
	}

	var peak float64
	for _, s := range pcm {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak < 0.3 || peak > 1.0 {
		t.Fatalf("peak = %v, want about 0.5", peak)
	}
}

func TestDecodeMonoMissingFile(t *testing.T) {
	if _, err := wave.DecodeMono(filepath.Join(t.TempDir(), "nope.wav"), 48000); err == nil {
		t.Fatal("DecodeMono succeeded on missing file, want error")
	}
}

func TestDecodeMonoNotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("this is not audio"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := wave.DecodeMono(path, 48000); err == nil {
		t.Fatal("DecodeMono succeeded on junk, want error")
	}
}

func TestDecodeMonoBadRate(t *testing.T) {
	path := writeWAV(t, "mono.wav", 8000, 1, []int{1, 2, 3})
	if _, err := wave.DecodeMono(path, 0); err == nil {
		t.Fatal("DecodeMono accepted target rate 0, want error")
	}
}
