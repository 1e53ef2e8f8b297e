package filemanager

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreadhith-v/better-fs/internal/cas"
	"github.com/kishoreadhith-v/better-fs/internal/recipe"
	"github.com/kishoreadhith-v/better-fs/internal/storeerr"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()

	store, err := cas.Open(dir, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	recipes, err := recipe.Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = recipes.Close() })

	return New(store, recipes, nil)
}

func randomBytes(seed int64, n int) []byte {
	out := make([]byte, n)
	state := big.NewInt(seed)
	mod := big.NewInt(1 << 31)
	mul := big.NewInt(1103515245)
	add := big.NewInt(12345)
	for i := range out {
		state.Mul(state, mul)
		state.Add(state, add)
		state.Mod(state, mod)
		out[i] = byte(state.Int64())
	}
	return out
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := newTestManager(t)
	data := randomBytes(1, 200000)

	require.NoError(t, m.WriteFile("/big.bin", data))

	got, err := m.ReadFile("/big.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriteEmptyFile(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.WriteFile("/empty", nil))

	got, err := m.ReadFile("/empty")
	require.NoError(t, err)
	assert.Empty(t, got)

	md, ok, err := m.GetFileMetadata("/empty")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), md.Size)
}

func TestSubWindowFileIsSingleChunk(t *testing.T) {
	m := newTestManager(t)
	// Shorter than the chunker's rolling window: can never produce an
	// internal cut point, so it must always come back as one chunk.
	data := randomBytes(2, 10)
	require.NoError(t, m.WriteFile("/tiny", data))

	md, ok, err := m.GetFileMetadata("/tiny")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(len(data)), md.Size)
	assert.Equal(t, 1, md.NumChunks)
}

func TestIdenticalContentDedupsAcrossPaths(t *testing.T) {
	m := newTestManager(t)
	data := randomBytes(3, 500000)

	require.NoError(t, m.WriteFile("/first", data))
	require.NoError(t, m.WriteFile("/second", data))

	before, err := m.cas.ListAllChunks()
	require.NoError(t, err)

	// Rewriting identical content under a third path must not create any
	// new chunks: the chunk boundaries are a pure function of content.
	require.NoError(t, m.WriteFile("/third", data))
	after, err := m.cas.ListAllChunks()
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestDeleteFileRemovesRecipeNotChunks(t *testing.T) {
	m := newTestManager(t)
	data := randomBytes(4, 100000)
	require.NoError(t, m.WriteFile("/doomed", data))

	chunksBefore, err := m.cas.ListAllChunks()
	require.NoError(t, err)
	require.NotEmpty(t, chunksBefore)

	require.NoError(t, m.DeleteFile("/doomed"))

	_, ok, err := m.GetFileMetadata("/doomed")
	require.NoError(t, err)
	assert.False(t, ok)

	chunksAfter, err := m.cas.ListAllChunks()
	require.NoError(t, err)
	assert.Equal(t, chunksBefore, chunksAfter, "delete must not touch the CAS directly")
}

func TestDeleteMissingFileIsNotFound(t *testing.T) {
	m := newTestManager(t)
	err := m.DeleteFile("/never/written")
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.NotFound))
}

func TestRenameFileMovesMetadata(t *testing.T) {
	m := newTestManager(t)
	data := randomBytes(5, 1000)
	require.NoError(t, m.WriteFile("/old/path", data))

	require.NoError(t, m.RenameFile("/old/path", "/new/path"))

	_, ok, err := m.GetFileMetadata("/old/path")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := m.ReadFile("/new/path")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCreateDirectoryIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateDirectory("/docs"))
	require.NoError(t, m.CreateDirectory("/docs"))

	md, ok, err := m.GetFileMetadata("/docs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, recipe.Directory, md.Kind)
}

func TestListFilesReturnsEveryPath(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.WriteFile("/a", []byte("a")))
	require.NoError(t, m.WriteFile("/b", []byte("b")))
	require.NoError(t, m.CreateDirectory("/c"))

	paths, err := m.ListFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/a", "/b", "/c"}, paths)
}

// TestRunGCReclaimsOnlyUnreferencedChunks is the central dedup/GC property:
// a chunk shared by two files survives deleting one of them, and is only
// reclaimed once nothing references it.
func TestRunGCReclaimsOnlyUnreferencedChunks(t *testing.T) {
	m := newTestManager(t)
	shared := randomBytes(6, 500000)

	require.NoError(t, m.WriteFile("/keep", shared))
	require.NoError(t, m.WriteFile("/drop", shared))

	chunksBefore, err := m.cas.ListAllChunks()
	require.NoError(t, err)
	require.NotEmpty(t, chunksBefore)

	require.NoError(t, m.DeleteFile("/drop"))

	deleted, err := m.RunGC()
	require.NoError(t, err)
	assert.Equal(t, 0, deleted, "chunks are still referenced by /keep")

	require.NoError(t, m.DeleteFile("/keep"))
	deleted, err = m.RunGC()
	require.NoError(t, err)
	assert.Equal(t, len(chunksBefore), deleted)

	chunksAfter, err := m.cas.ListAllChunks()
	require.NoError(t, err)
	assert.Empty(t, chunksAfter)
}

func TestRunGCIsNoOpWhenEverythingIsLive(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.WriteFile("/a", randomBytes(7, 300000)))
	require.NoError(t, m.WriteFile("/b", randomBytes(8, 300000)))

	deleted, err := m.RunGC()
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

// TestWriteSurvivesRestart exercises the durability contract across a
// process restart: close every store, reopen fresh ones rooted at the same
// directory, and confirm the written file still reads back intact.
func TestWriteSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	data := randomBytes(9, 400000)

	store, err := cas.Open(dir, 0, nil)
	require.NoError(t, err)

	recipes, err := recipe.Open(dir, nil)
	require.NoError(t, err)

	m := New(store, recipes, nil)
	require.NoError(t, m.WriteFile("/durable.bin", data))

	require.NoError(t, recipes.Close())
	require.NoError(t, store.Close())

	reopenedStore, err := cas.Open(dir, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopenedStore.Close() })

	reopenedRecipes, err := recipe.Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopenedRecipes.Close() })

	restarted := New(reopenedStore, reopenedRecipes, nil)

	got, err := restarted.ReadFile("/durable.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
