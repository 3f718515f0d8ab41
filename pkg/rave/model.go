package rave

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Model is a loaded RAVE-style encoder bound to one model file.
//
// The input waveform must be single-channel float32 samples in [-1, 1] at
// SampleRate(). A Model is owned by the job or probe that loaded it and is
// not shared; implementations only need to be safe for sequential use.
type Model interface {
	// Encode turns a mono waveform into its latent representation.
	Encode(pcm []float32) (*Latent, error)

	// SampleRate returns the sample rate the model was trained at.
	// Callers must resample input audio to this rate before Encode.
	SampleRate() int

	// Close releases any resources held by the model.
	Close() error
}

// Loader opens a model file and returns a ready Model.
type Loader func(path string) (Model, error)

var (
	loadersMu sync.RWMutex
	loaders   = make(map[string]Loader)
)

// Register binds a loader to a model file extension (e.g. ".rvm").
// The extension match is case-insensitive. Registering the same extension
// twice panics; backends register from init().
func Register(ext string, loader Loader) {
	ext = strings.ToLower(ext)
	loadersMu.Lock()
	defer loadersMu.Unlock()
	if _, dup := loaders[ext]; dup {
		panic(fmt.Sprintf("rave: loader for %q registered twice", ext))
	}
	loaders[ext] = loader
}

// Formats returns the registered model file extensions, sorted.
func Formats() []string {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	exts := make([]string, 0, len(loaders))
	for ext := range loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load opens the model at path using the loader registered for its
// extension. It returns ErrUnknownFormat for unregistered extensions and
// wraps loader failures with ErrModelLoad.
func Load(path string) (Model, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loadersMu.RLock()
	loader, ok := loaders[ext]
	loadersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, ext, strings.Join(Formats(), ", "))
	}
	m, err := loader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}
	return m, nil
}
