package embedcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Fresh(t *testing.T) {
	e := Entry{Vector: []float64{1}, Model: "m1", ContentHash: ContentHash("hola")}
	assert.True(t, e.Fresh("m1", ContentHash("hola")))
	assert.False(t, e.Fresh("m2", ContentHash("hola")), "other model")
	assert.False(t, e.Fresh("m1", ContentHash("adios")), "edited text")
	assert.False(t, Entry{Model: "m1", ContentHash: ContentHash("hola")}.Fresh("m1", ContentHash("hola")), "no vector")
}

func TestFileCache_MissingFileStartsEmpty(t *testing.T) {
	c := OpenFile(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Equal(t, 0, c.Len())
	_, ok, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("\x80not json{"), 0o644))

	c := OpenFile(path, nil)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Put(context.Background(), 7, Entry{Vector: []float64{1}, Model: "m"}))
	assert.Equal(t, 1, OpenFile(path, nil).Len(), "a put repairs the file")
}

func TestFileCache_WriteThroughRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "cache.json")
	vec := []float64{0.1, 1.0 / 3.0, -2.5e-17, 0.7071067811865476}

	c := OpenFile(path, nil)
	require.NoError(t, c.Put(ctx, 1, Entry{Vector: vec, Model: "tfidf:abc", ContentHash: ContentHash("uno")}))
	require.NoError(t, c.Put(ctx, 2, Entry{Vector: []float64{1, 0, 0, 0}, Model: "tfidf:abc", ContentHash: ContentHash("dos")}))
	require.NoError(t, c.Close())

	reopened := OpenFile(path, nil)
	assert.Equal(t, 2, reopened.Len())
	got, ok, err := reopened.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec, got.Vector, "float64 values survive exactly")
	assert.Equal(t, "tfidf:abc", got.Model)
	assert.Equal(t, ContentHash("uno"), got.ContentHash)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no temp files left behind")
}

func TestMemoryCache_NeverTouchesDisk(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Put(context.Background(), 1, Entry{Vector: []float64{1}}))
	assert.Equal(t, 1, c.Len())
}
