package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ravelab/ravemap/pkg/latent"
)

// Artifact is the JSON output document. Data maps file identifiers to
// their full-width latent vectors; ReducedData, when present, maps the
// same identifiers to 2D coordinates. Both marshal in dataset insertion
// order.
type Artifact struct {
	Cols        int             `json:"cols"`
	Data        *latent.Dataset `json:"data"`
	ReducedData *latent.Dataset `json:"reduced_data,omitempty"`
}

// outputPath resolves where the artifact for req lands: the caller's
// path when given, otherwise a name derived from the model base name
// and job shape. Always absolute, always ending in .json.
func outputPath(req Request) (string, error) {
	path := req.OutputPath
	if path == "" {
		base := strings.TrimSuffix(filepath.Base(req.ModelPath), filepath.Ext(req.ModelPath))
		if req.SkipReduction {
			path = "latent_vectors_" + base + ".json"
		} else {
			path = fmt.Sprintf("2D_%s_latent_mapping_%s.json", req.Method, base)
		}
	}
	if !strings.HasSuffix(strings.ToLower(path), ".json") {
		path += ".json"
	}
	return filepath.Abs(path)
}

// writeArtifact marshals art with two-space indentation and writes it
// atomically: temp file in the destination directory, fsync, rename.
// Readers never observe a partial artifact.
func writeArtifact(path string, art *Artifact) error {
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal artifact: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ravemap-*.json")
	if err != nil {
		return fmt.Errorf("pipeline: create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("pipeline: write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("pipeline: sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("pipeline: close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("pipeline: publish artifact: %w", err)
	}
	return nil
}
