// Package recipe implements the durable path -> recipe mapping. A recipe
// describes one logical entry (file or directory): total size, kind, and
// the ordered list of chunk hashes that reconstruct it.
//
// The store is backed by badger, an embedded KV engine with its own
// value-log journal, giving a durable, journaled key-value store
// (grounded on the marmos91-dittofs dependency set, which pulls in the
// same engine for its own content-addressed cache).
package recipe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/kishoreadhith-v/better-fs/internal/storeerr"
)

// Kind distinguishes a regular file recipe from a directory recipe.
type Kind uint8

const (
	File Kind = iota
	Directory
)

// Recipe is the in-memory representation of one stored path's metadata.
type Recipe struct {
	Size   uint64
	Chunks []string
	Kind   Kind
}

const metadataDirName = "metadata_db"

// Store is the durable, ordered path -> Recipe mapping.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens (creating if necessary) the badger database rooted at
// dir/metadata_db.
func Open(dir string, log *slog.Logger) (*Store, error) {
	path := dir + "/" + metadataDirName

	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, storeerr.Wrap(storeerr.DbError, "open recipe store", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Store{db: db, log: log.With("component", "recipe-store")}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storeerr.Wrap(storeerr.DbError, "close recipe store", err)
	}
	return nil
}

// Insert writes the serialized recipe bytes under path, replacing any
// prior value, and syncs the write to the journal before returning
// (implicit flush, per the durability contract).
func (s *Store) Insert(path string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), data)
	})
	if err != nil {
		return storeerr.Wrap(storeerr.DbError, fmt.Sprintf("insert %q", path), err)
	}
	return s.Flush()
}

// Get looks up the serialized recipe bytes stored under path.
func (s *Store) Get(path string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storeerr.NotFoundf("path %q", path)
	}
	if err != nil {
		return nil, storeerr.Wrap(storeerr.DbError, fmt.Sprintf("get %q", path), err)
	}
	return data, nil
}

// Remove deletes the recipe stored under path. Absence is not an error at
// this layer; callers that need NotFound semantics check existence first.
func (s *Store) Remove(path string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(path))
	})
	if err != nil {
		return storeerr.Wrap(storeerr.DbError, fmt.Sprintf("remove %q", path), err)
	}
	return s.Flush()
}

// Entry is one (path, serialized recipe) pair returned by Iter.
type Entry struct {
	Path string
	Data []byte
}

// Iter returns every (path, recipe bytes) pair currently stored, as a
// consistent snapshot as of the moment iteration begins (badger's
// transactions are MVCC snapshots).
func (s *Store) Iter() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			var data []byte
			if err := item.Value(func(val []byte) error {
				data = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			entries = append(entries, Entry{Path: string(key), Data: data})
		}
		return nil
	})
	if err != nil {
		return nil, storeerr.Wrap(storeerr.DbError, "iterate recipe store", err)
	}
	return entries, nil
}

// Flush forces pending writes to the journal. Badger's Update already
// commits synchronously, so Flush here additionally forces a value-log
// sync for callers (like the File Manager) that want an explicit
// durability checkpoint at the end of a mutating operation.
func (s *Store) Flush() error {
	if err := s.db.Sync(); err != nil {
		return storeerr.Wrap(storeerr.DbError, "flush recipe store", err)
	}
	return nil
}

// Encode serializes a Recipe to the on-wire format: size (u64 LE), then a
// length-prefixed sequence of length-prefixed hex chunk hashes, then a
// one-byte kind tag. Field order is fixed across all readers and writers.
func Encode(r Recipe) ([]byte, error) {
	buf := make([]byte, 0, 8+4+len(r.Chunks)*36+1)

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], r.Size)
	buf = append(buf, sizeBuf[:]...)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(r.Chunks)))
	buf = append(buf, countBuf[:]...)

	for _, h := range r.Chunks {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(h)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, h...)
	}

	buf = append(buf, byte(r.Kind))

	return buf, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Recipe, error) {
	if len(data) < 8+4 {
		return Recipe{}, storeerr.New(storeerr.SerializationError, "recipe too short")
	}

	size := binary.LittleEndian.Uint64(data[0:8])
	count := binary.LittleEndian.Uint32(data[8:12])
	offset := 12

	chunks := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if offset+4 > len(data) {
			return Recipe{}, storeerr.New(storeerr.SerializationError, "truncated chunk length")
		}
		chunkLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if offset+chunkLen > len(data) {
			return Recipe{}, storeerr.New(storeerr.SerializationError, "truncated chunk hash")
		}
		chunks = append(chunks, string(data[offset:offset+chunkLen]))
		offset += chunkLen
	}

	if offset >= len(data) {
		return Recipe{}, storeerr.New(storeerr.SerializationError, "missing kind byte")
	}
	kind := Kind(data[offset])

	return Recipe{Size: size, Chunks: chunks, Kind: kind}, nil
}
