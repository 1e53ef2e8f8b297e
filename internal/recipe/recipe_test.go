package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreadhith-v/better-fs/internal/storeerr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := Recipe{
		Size:   12345,
		Chunks: []string{"aaaa", "bbbbbbbb", "c"},
		Kind:   File,
	}
	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, r, decoded)
}

func TestEncodeDecodeEmptyChunks(t *testing.T) {
	r := Recipe{Size: 0, Chunks: nil, Kind: Directory}
	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), decoded.Size)
	assert.Empty(t, decoded.Chunks)
	assert.Equal(t, Directory, decoded.Kind)
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.SerializationError))
}

func TestDecodeRejectsTruncatedChunkHash(t *testing.T) {
	r := Recipe{Size: 1, Chunks: []string{"abcdef"}, Kind: File}
	encoded, err := Encode(r)
	require.NoError(t, err)

	truncated := encoded[:len(encoded)-3]
	_, err = Decode(truncated)
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.SerializationError))
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	r := Recipe{Size: 42, Chunks: []string{"h1", "h2"}, Kind: File}
	encoded, err := Encode(r)
	require.NoError(t, err)

	require.NoError(t, s.Insert("/docs/a.txt", encoded))

	got, err := s.Get("/docs/a.txt")
	require.NoError(t, err)
	decoded, err := Decode(got)
	require.NoError(t, err)
	assert.Equal(t, r, decoded)
}

func TestGetMissingPathIsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("/does/not/exist")
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.NotFound))
}

func TestInsertOverwritesExistingPath(t *testing.T) {
	s := openTestStore(t)
	first, _ := Encode(Recipe{Size: 1, Kind: File})
	second, _ := Encode(Recipe{Size: 2, Kind: File})

	require.NoError(t, s.Insert("/x", first))
	require.NoError(t, s.Insert("/x", second))

	got, err := s.Get("/x")
	require.NoError(t, err)
	decoded, err := Decode(got)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), decoded.Size)
}

func TestRemoveDeletesPath(t *testing.T) {
	s := openTestStore(t)
	encoded, _ := Encode(Recipe{Size: 1, Kind: File})
	require.NoError(t, s.Insert("/gone", encoded))

	require.NoError(t, s.Remove("/gone"))

	_, err := s.Get("/gone")
	assert.True(t, storeerr.Is(err, storeerr.NotFound))
}

func TestRemoveAbsentPathIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Remove("/never/existed"))
}

func TestIterReturnsAllEntries(t *testing.T) {
	s := openTestStore(t)
	paths := []string{"/a", "/b", "/c/d"}
	for i, p := range paths {
		encoded, err := Encode(Recipe{Size: uint64(i), Kind: File})
		require.NoError(t, err)
		require.NoError(t, s.Insert(p, encoded))
	}

	entries, err := s.Iter()
	require.NoError(t, err)
	assert.Len(t, entries, len(paths))

	seen := make(map[string]bool)
	for _, e := range entries {
		seen[e.Path] = true
	}
	for _, p := range paths {
		assert.True(t, seen[p], "missing path %s in iteration", p)
	}
}
