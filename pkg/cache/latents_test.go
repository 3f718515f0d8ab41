package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/ravelab/ravemap/pkg/cache"
)

func writeTempAudio(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLatentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	defer store.Close()
	lat := cache.NewLatents(store, "model-a")

	path := writeTempAudio(t, "kick.wav", []byte("pcm"))
	vec := []float32{1.5, -2.25, 3}

	if _, ok := lat.Get(ctx, path); ok {
		t.Fatal("Get hit before Put")
	}
	if err := lat.Put(ctx, path, vec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := lat.Get(ctx, path)
	if !ok {
		t.Fatal("Get miss after Put")
	}
	if !slices.Equal(got, vec) {
		t.Fatalf("Get = %v, want %v", got, vec)
	}
}

func TestLatentsMissingFile(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	defer store.Close()
	lat := cache.NewLatents(store, "model-a")

	missing := filepath.Join(t.TempDir(), "gone.wav")
	if _, ok := lat.Get(ctx, missing); ok {
		t.Fatal("Get hit for missing file")
	}
	if err := lat.Put(ctx, missing, []float32{1}); err == nil {
		t.Fatal("Put succeeded for missing file, want error")
	}
}

func TestLatentsInvalidatedByModification(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	defer store.Close()
	lat := cache.NewLatents(store, "model-a")

	path := writeTempAudio(t, "snare.wav", []byte("pcm v1"))
	if err := lat.Put(ctx, path, []float32{1, 2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Shift the mtime: the fingerprint changes, the entry goes stale.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if _, ok := lat.Get(ctx, path); ok {
		t.Fatal("Get hit after mtime change")
	}

	// Re-encode and it hits again.
	if err := lat.Put(ctx, path, []float32{3, 4}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := lat.Get(ctx, path)
	if !ok {
		t.Fatal("Get miss after fresh Put")
	}
	if !slices.Equal(got, []float32{3, 4}) {
		t.Fatalf("Get = %v, want [3 4]", got)
	}
}

func TestLatentsScopedByModel(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	defer store.Close()

	path := writeTempAudio(t, "hat.wav", []byte("pcm"))

	latA := cache.NewLatents(store, "model-a")
	latB := cache.NewLatents(store, "model-b")

	if err := latA.Put(ctx, path, []float32{1}); err != nil {
		t.Fatalf("Put A: %v", err)
	}
	if _, ok := latB.Get(ctx, path); ok {
		t.Fatal("model-b sees model-a's entry")
	}
	if _, ok := latA.Get(ctx, path); !ok {
		t.Fatal("model-a misses its own entry")
	}
}

func TestFileTag(t *testing.T) {
	path := writeTempAudio(t, "tom.wav", []byte("1234"))
	tag1, err := cache.FileTag(path)
	if err != nil {
		t.Fatalf("FileTag: %v", err)
	}
	tag2, err := cache.FileTag(path)
	if err != nil {
		t.Fatalf("FileTag: %v", err)
	}
	if tag1 != tag2 {
		t.Fatalf("FileTag not stable: %q vs %q", tag1, tag2)
	}

	if err := os.WriteFile(path, []byte("123456"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	tag3, err := cache.FileTag(path)
	if err != nil {
		t.Fatalf("FileTag: %v", err)
	}
	if tag3 == tag1 {
		t.Fatal("FileTag unchanged after size change")
	}
}
