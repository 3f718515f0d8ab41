package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// latentRecord is the msgpack value stored per audio file.
type latentRecord struct {
	Cols int       `msgpack:"cols"`
	Vec  []float32 `msgpack:"vec"`
}

// FileTag fingerprints a file by name, size and modification time.
// Editing a file in place changes its tag, which invalidates any cached
// latent derived from it.
func FileTag(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%d|%d", filepath.Base(path), info.Size(), info.ModTime().UnixNano()), nil
}

// Latents stores per-file latent vectors for one model. The model tag
// is part of every key: the same recording encoded by two models yields
// two independent entries.
type Latents struct {
	store    Store
	modelTag string
}

// NewLatents wraps store with the latent record schema, scoped to the
// model identified by modelTag (normally FileTag of the model file).
func NewLatents(store Store, modelTag string) *Latents {
	return &Latents{store: store, modelTag: modelTag}
}

func (l *Latents) key(audioTag string) string {
	return "latent|" + l.modelTag + "|" + audioTag
}

// Get looks up the cached vector for the audio file at path. Any
// failure (stat, store, decode, record corruption) reads as a miss.
func (l *Latents) Get(ctx context.Context, path string) ([]float32, bool) {
	audioTag, err := FileTag(path)
	if err != nil {
		return nil, false
	}
	raw, err := l.store.Get(ctx, l.key(audioTag))
	if err != nil {
		return nil, false
	}
	var rec latentRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	if rec.Cols == 0 || len(rec.Vec) != rec.Cols {
		return nil, false
	}
	return rec.Vec, true
}

// Put stores the vector for the audio file at path.
func (l *Latents) Put(ctx context.Context, path string, vec []float32) error {
	audioTag, err := FileTag(path)
	if err != nil {
		return err
	}
	raw, err := msgpack.Marshal(latentRecord{Cols: len(vec), Vec: vec})
	if err != nil {
		return fmt.Errorf("cache: encode latent record: %w", err)
	}
	return l.store.Set(ctx, l.key(audioTag), raw)
}
