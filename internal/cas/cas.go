// Package cas implements the content-addressed store: chunks are hashed,
// compressed, and persisted under their hash identity, with built-in
// deduplication (the write path is a no-op if the target already exists)
// and garbage collection support via listing.
//
// The zstd codec is internal to the store; callers never see compressed
// bytes. This mirrors the compress-at-seal pattern used by the
// kluzzebass-gastrolog file-chunk manager, adapted from log-chunk sealing
// to per-chunk content addressing.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/kishoreadhith-v/better-fs/internal/storeerr"
)

const casDirName = "cas"

// encoderLevel maps the config-facing 1-4 scale onto zstd's EncoderLevel
// constants, defaulting to SpeedDefault (zstd level 3).
func encoderLevel(level int) zstd.EncoderLevel {
	switch level {
	case 1:
		return zstd.SpeedFastest
	case 2:
		return zstd.SpeedDefault
	case 4:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// Store is a content-addressed chunk store rooted at a directory on the
// host filesystem. A Store is safe for concurrent use: the write path is
// naturally race-free because the destination path is a function of the
// content hash, so two concurrent writers of identical bytes converge on
// the same file.
type Store struct {
	root string
	log  *slog.Logger

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open creates (if necessary) the CAS directory tree rooted at dir/cas and
// returns a Store backed by it. level selects a klauspost/compress/zstd
// EncoderLevel: 1=SpeedFastest, 2 and 3=SpeedDefault (roughly zstd level 3,
// per spec §4.2's reference choice), 4=SpeedBestCompression; any other
// value, including 0, also selects SpeedDefault.
func Open(dir string, level int, log *slog.Logger) (*Store, error) {
	root := filepath.Join(dir, casDirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, storeerr.Wrap(storeerr.IoError, "create cas root", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		return nil, storeerr.Wrap(storeerr.IoError, "create zstd encoder", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, storeerr.Wrap(storeerr.IoError, "create zstd decoder", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Store{
		root:    root,
		log:     log.With("component", "cas"),
		encoder: enc,
		decoder: dec,
	}, nil
}

// Close releases the codec resources held by the store.
func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return nil
}

// Hash returns the hex-encoded SHA-256 digest of bytes, which is the chunk
// identity used throughout the rest of the system.
func Hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (s *Store) pathFor(hash string) (string, error) {
	if len(hash) < 3 {
		return "", storeerr.New(storeerr.IoError, fmt.Sprintf("malformed chunk hash %q", hash))
	}
	return filepath.Join(s.root, hash[:2], hash[2:]), nil
}

// WriteChunk persists b under its content hash, compressing with zstd, and
// returns the hash. If a chunk already exists at the derived path, it is
// not rewritten; WriteChunk simply returns the hash (dedup, I1/P3).
func (s *Store) WriteChunk(b []byte) (string, error) {
	hash := Hash(b)
	path, err := s.pathFor(hash)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return hash, nil
	} else if !os.IsNotExist(err) {
		return "", storeerr.Wrap(storeerr.IoError, "stat chunk", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", storeerr.Wrap(storeerr.IoError, "mkdir chunk prefix", err)
	}

	compressed := s.encoder.EncodeAll(b, nil)

	// Write atomically: stage in a temp file in the same directory, then
	// rename, so a crash never leaves a partially written chunk under its
	// final hash-derived name (which would violate I1).
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", storeerr.Wrap(storeerr.IoError, "create temp chunk file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", storeerr.Wrap(storeerr.IoError, "write temp chunk file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", storeerr.Wrap(storeerr.IoError, "close temp chunk file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", storeerr.Wrap(storeerr.IoError, "rename temp chunk file", err)
	}

	return hash, nil
}

// ReadChunk reads and decompresses the chunk stored under hash.
func (s *Store) ReadChunk(hash string) ([]byte, error) {
	path, err := s.pathFor(hash)
	if err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storeerr.NotFoundf("chunk %s", hash)
		}
		return nil, storeerr.Wrap(storeerr.IoError, "read chunk", err)
	}

	raw, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, storeerr.Corruptf(hash)
	}

	return raw, nil
}

// ListAllChunks walks the two-level cas directory tree and reconstructs
// every chunk hash present on disk.
func (s *Store) ListAllChunks() ([]string, error) {
	var hashes []string

	prefixes, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, storeerr.Wrap(storeerr.IoError, "list cas prefixes", err)
	}

	for _, prefix := range prefixes {
		if !prefix.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, prefix.Name()))
		if err != nil {
			return nil, storeerr.Wrap(storeerr.IoError, "list cas prefix dir", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			hashes = append(hashes, prefix.Name()+entry.Name())
		}
	}

	return hashes, nil
}

// DeleteChunk removes the chunk stored under hash. Absence is not an
// error. It best-effort removes the now-possibly-empty prefix directory.
func (s *Store) DeleteChunk(hash string) error {
	path, err := s.pathFor(hash)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return storeerr.Wrap(storeerr.IoError, "delete chunk", err)
	}

	// Best-effort: only succeeds if the directory is now empty.
	_ = os.Remove(filepath.Dir(path))

	return nil
}

// verifyIntegrity re-hashes a stored chunk's decompressed contents and
// checks it against the on-disk filename, the core of invariant I1 / P4.
// VerifyAll is its exported entry point.
func (s *Store) verifyIntegrity(hash string) error {
	raw, err := s.ReadChunk(hash)
	if err != nil {
		return err
	}
	if Hash(raw) != hash {
		return storeerr.Corruptf(hash)
	}
	return nil
}

// VerifyAll checks I1/P4 for every chunk currently on disk, returning the
// first error encountered, if any.
func (s *Store) VerifyAll() error {
	hashes, err := s.ListAllChunks()
	if err != nil {
		return err
	}
	for _, h := range hashes {
		if err := s.verifyIntegrity(h); err != nil {
			return err
		}
	}
	return nil
}

var _ io.Closer = (*Store)(nil)
