// Package filemanager orchestrates the chunker, the content-addressed
// store, and the recipe store into the name-keyed file lifecycle: write,
// read, rename, delete, directory creation, listing, and garbage
// collection.
package filemanager

import (
	"log/slog"
	"sync"

	"github.com/kishoreadhith-v/better-fs/internal/cas"
	"github.com/kishoreadhith-v/better-fs/internal/chunk"
	"github.com/kishoreadhith-v/better-fs/internal/recipe"
	"github.com/kishoreadhith-v/better-fs/internal/storeerr"
)

// Chunk emission thresholds, per spec §4.4: a chunk is cut either when the
// chunker signals a content-defined boundary and the pending buffer has
// reached minCutSize, or unconditionally once the buffer reaches
// maxChunkSize.
const (
	minCutSize   = 2048
	maxChunkSize = 65536
)

// Metadata is the pure-lookup result of GetFileMetadata.
type Metadata struct {
	Size      uint64
	Kind      recipe.Kind
	NumChunks int
}

// Manager is the file-management orchestration layer described in §4.4.
// It holds no state of its own beyond its dependencies and a GC-exclusion
// lock: all durable state lives in the CAS and the Recipe Store.
type Manager struct {
	cas     *cas.Store
	recipes *recipe.Store
	log     *slog.Logger

	// gcMu serializes run_gc against writes, per the reference policy in
	// §4.4: GC only runs when no writes are in flight. Writers take the
	// read side so they can proceed concurrently with each other; GC takes
	// the write side so it runs alone.
	gcMu sync.RWMutex
}

// New builds a Manager over the given CAS and Recipe Store.
func New(store *cas.Store, recipes *recipe.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{cas: store, recipes: recipes, log: log.With("component", "file-manager")}
}

// WriteFile chunks bytes, stores each chunk in the CAS, and persists the
// resulting recipe under path, replacing any prior value.
func (m *Manager) WriteFile(path string, data []byte) error {
	m.gcMu.RLock()
	defer m.gcMu.RUnlock()

	chunks, err := m.chunkAndStore(data)
	if err != nil {
		return err
	}

	r := recipe.Recipe{
		Size:   uint64(len(data)),
		Chunks: chunks,
		Kind:   recipe.File,
	}

	encoded, err := recipe.Encode(r)
	if err != nil {
		return storeerr.Wrap(storeerr.SerializationError, "encode recipe", err)
	}

	if err := m.recipes.Insert(path, encoded); err != nil {
		return err
	}

	m.log.Debug("wrote file", "path", path, "size", r.Size, "chunks", len(chunks))
	return nil
}

// chunkAndStore runs the content-defined chunker over data, streaming each
// emitted chunk into the CAS, and returns the ordered list of chunk
// hashes.
func (m *Manager) chunkAndStore(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var chunks []string
	c := chunk.New()
	pending := make([]byte, 0, maxChunkSize)

	emit := func() error {
		if len(pending) == 0 {
			return nil
		}
		hash, err := m.cas.WriteChunk(pending)
		if err != nil {
			return err
		}
		chunks = append(chunks, hash)
		pending = pending[:0]
		return nil
	}

	for _, b := range data {
		pending = append(pending, b)
		cut := c.Roll(b)

		if len(pending) >= maxChunkSize {
			if err := emit(); err != nil {
				return nil, err
			}
			continue
		}

		if cut && len(pending) >= minCutSize {
			if err := emit(); err != nil {
				return nil, err
			}
		}
	}

	if err := emit(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// ReadFile looks up path and reconstructs its full byte content by
// concatenating each chunk in recipe order.
func (m *Manager) ReadFile(path string) ([]byte, error) {
	data, err := m.recipes.Get(path)
	if err != nil {
		return nil, err
	}

	r, err := recipe.Decode(data)
	if err != nil {
		return nil, err
	}

	if r.Kind == recipe.Directory {
		return []byte{}, nil
	}

	out := make([]byte, 0, r.Size)
	for _, hash := range r.Chunks {
		piece, err := m.cas.ReadChunk(hash)
		if err != nil {
			if storeerr.Is(err, storeerr.NotFound) {
				return nil, storeerr.Corruptf(hash)
			}
			return nil, err
		}
		out = append(out, piece...)
	}

	return out, nil
}

// GetFileMetadata is a pure lookup against the Recipe Store; it performs
// no CAS I/O.
func (m *Manager) GetFileMetadata(path string) (Metadata, bool, error) {
	data, err := m.recipes.Get(path)
	if err != nil {
		if storeerr.Is(err, storeerr.NotFound) {
			return Metadata{}, false, nil
		}
		return Metadata{}, false, err
	}

	r, err := recipe.Decode(data)
	if err != nil {
		return Metadata{}, false, err
	}

	return Metadata{Size: r.Size, Kind: r.Kind, NumChunks: len(r.Chunks)}, true, nil
}

// ListFiles returns every path currently recorded in the Recipe Store, in
// the store's own iteration order.
func (m *Manager) ListFiles() ([]string, error) {
	entries, err := m.recipes.Iter()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths, nil
}

// DeleteFile removes the recipe at path. It does not touch the CAS: the
// chunks it referenced may still be shared by other recipes, and are
// reclaimed only by RunGC.
func (m *Manager) DeleteFile(path string) error {
	if _, ok, err := m.GetFileMetadata(path); err != nil {
		return err
	} else if !ok {
		return storeerr.NotFoundf("path %q", path)
	}
	return m.recipes.Remove(path)
}

// RenameFile moves the recipe at old to new, overwriting new if it already
// exists.
func (m *Manager) RenameFile(oldPath, newPath string) error {
	data, err := m.recipes.Get(oldPath)
	if err != nil {
		return err
	}
	if err := m.recipes.Insert(newPath, data); err != nil {
		return err
	}
	return m.recipes.Remove(oldPath)
}

// CreateDirectory inserts an empty Directory recipe under path. Overwrite
// of an existing entry is permitted (idempotent).
func (m *Manager) CreateDirectory(path string) error {
	r := recipe.Recipe{Size: 0, Chunks: nil, Kind: recipe.Directory}
	encoded, err := recipe.Encode(r)
	if err != nil {
		return storeerr.Wrap(storeerr.SerializationError, "encode directory recipe", err)
	}
	return m.recipes.Insert(path, encoded)
}

// RunGC performs mark-and-sweep collection of chunks no longer referenced
// by any recipe, returning the number of chunks deleted. It excludes
// concurrent writers for its duration (the reference concurrency policy:
// GC only runs when no writes are in flight).
func (m *Manager) RunGC() (int, error) {
	m.gcMu.Lock()
	defer m.gcMu.Unlock()

	entries, err := m.recipes.Iter()
	if err != nil {
		return 0, err
	}

	live := make(map[string]struct{})
	for _, e := range entries {
		r, err := recipe.Decode(e.Data)
		if err != nil {
			return 0, err
		}
		for _, h := range r.Chunks {
			live[h] = struct{}{}
		}
	}

	all, err := m.cas.ListAllChunks()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, h := range all {
		if _, ok := live[h]; ok {
			continue
		}
		if err := m.cas.DeleteChunk(h); err != nil {
			return deleted, err
		}
		deleted++
	}

	m.log.Info("gc complete", "deleted", deleted, "live_chunks", len(live))
	return deleted, nil
}
