// Package pipeline turns a directory of WAV recordings into a latent
// dataset artifact: discover files, encode each through a RAVE model,
// average over time, optionally reduce to 2D, and write the JSON output
// atomically.
//
// Run is synchronous; callers that need asynchronous jobs dispatch it on
// their own goroutines (see pkg/control).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ravelab/ravemap/pkg/audio/wave"
	"github.com/ravelab/ravemap/pkg/cache"
	"github.com/ravelab/ravemap/pkg/latent"
	"github.com/ravelab/ravemap/pkg/rave"
	"github.com/ravelab/ravemap/pkg/reduce"
)

// ErrNoAudioFiles is returned when the audio directory contains no .wav
// entries. The job aborts before any artifact is written.
var ErrNoAudioFiles = errors.New("pipeline: no audio files")

// Request describes one processing job. Immutable once dispatched.
type Request struct {
	// AudioDir is scanned (non-recursively) for .wav files.
	AudioDir string

	// ModelPath locates the RAVE model checkpoint.
	ModelPath string

	// OutputPath overrides the derived artifact location. A .json
	// suffix is appended if missing; relative paths resolve against
	// the working directory.
	OutputPath string

	// Method selects the reduction strategy. Ignored when
	// SkipReduction is set; required otherwise.
	Method reduce.Method

	// SkipReduction stops after aggregation and writes latent vectors
	// at full width.
	SkipReduction bool

	// KeepGoing isolates per-file failures instead of aborting the
	// job. Failed files are reported in Result.Failed; at least one
	// file must still succeed.
	KeepGoing bool
}

// FileError records one skipped file under KeepGoing.
type FileError struct {
	File string
	Err  error
}

// Result reports a completed job. The artifact is durably on disk
// before Run returns it.
type Result struct {
	OutputPath string
	Cols       int
	Files      []string
	Failed     []FileError
}

// Runner executes processing jobs. The zero value is usable.
type Runner struct {
	// Log receives progress and diagnostics. Nil logs to slog.Default().
	Log *slog.Logger

	// Store enables the latent encode cache when non-nil.
	Store cache.Store

	// Seed seeds the stochastic reducers. The zero value selects
	// reduce.DefaultSeed.
	Seed int64
}

// Run executes one job. It returns only after the artifact is visible
// at Result.OutputPath, or with an error and no artifact at all.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	seed := r.Seed
	if seed == 0 {
		seed = reduce.DefaultSeed
	}

	// Validate the method before touching the model or the filesystem.
	var reducer reduce.Reducer
	if !req.SkipReduction {
		var err error
		reducer, err = reduce.New(req.Method, reduce.WithSeed(seed))
		if err != nil {
			return nil, err
		}
	}

	model, err := rave.Load(req.ModelPath)
	if err != nil {
		return nil, err
	}
	defer model.Close()

	files, err := discoverWAVs(req.AudioDir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read dir %s: %w", req.AudioDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAudioFiles, req.AudioDir)
	}
	log.Info("processing", "dir", req.AudioDir, "files", len(files), "model", filepath.Base(req.ModelPath))

	var latents *cache.Latents
	if r.Store != nil {
		if tag, err := cache.FileTag(req.ModelPath); err == nil {
			latents = cache.NewLatents(r.Store, tag)
		}
	}

	ds := latent.NewDataset()
	var failed []FileError
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		vec, err := r.encodeFile(ctx, log, model, latents, path)
		if err != nil {
			if req.KeepGoing {
				log.Warn("skipping file", "file", filepath.Base(path), "error", err)
				failed = append(failed, FileError{File: id, Err: err})
				continue
			}
			return nil, fmt.Errorf("pipeline: %s: %w", filepath.Base(path), err)
		}
		// A width mismatch means the model changed under us; that is
		// never skippable.
		if err := ds.Add(id, vec); err != nil {
			return nil, err
		}
		log.Info("encoded", "file", id, "width", len(vec))
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("pipeline: all %d files failed in %s", len(files), req.AudioDir)
	}

	art := &Artifact{Cols: ds.Cols(), Data: ds}
	if reducer != nil {
		y, err := reducer.Reduce(ds.Matrix())
		if err != nil {
			return nil, fmt.Errorf("pipeline: reduce %s: %w", req.Method, err)
		}
		red := latent.NewDataset()
		for i, id := range ds.Keys() {
			if err := red.Add(id, []float32{float32(y.At(i, 0)), float32(y.At(i, 1))}); err != nil {
				return nil, err
			}
		}
		art.ReducedData = red
		log.Info("reduced", "method", req.Method, "points", ds.Len())
	}

	outPath, err := outputPath(req)
	if err != nil {
		return nil, err
	}
	if err := writeArtifact(outPath, art); err != nil {
		return nil, err
	}
	log.Info("artifact written", "path", outPath, "files", ds.Len(), "cols", ds.Cols())

	return &Result{
		OutputPath: outPath,
		Cols:       ds.Cols(),
		Files:      ds.Keys(),
		Failed:     failed,
	}, nil
}

// encodeFile produces the temporal mean latent vector for one file,
// consulting the cache when enabled. Cache write failures are logged
// and otherwise ignored.
func (r *Runner) encodeFile(ctx context.Context, log *slog.Logger, model rave.Model, latents *cache.Latents, path string) ([]float32, error) {
	if latents != nil {
		if vec, ok := latents.Get(ctx, path); ok {
			log.Debug("cache hit", "file", filepath.Base(path))
			return vec, nil
		}
	}
	pcm, err := wave.DecodeMono(path, model.SampleRate())
	if err != nil {
		return nil, err
	}
	z, err := model.Encode(pcm)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	vec := z.Mean()
	if latents != nil {
		if err := latents.Put(ctx, path, vec); err != nil {
			log.Debug("cache write failed", "file", filepath.Base(path), "error", err)
		}
	}
	return vec, nil
}

// discoverWAVs lists the .wav files directly inside dir, in sorted name
// order. The extension check is case-insensitive.
func discoverWAVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
