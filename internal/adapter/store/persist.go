package store

import (
	"errors"
	"fmt"
	"os"

	"speechqa/config"
)

// ErrNoIndex is returned when a persisted index is required but none exists.
var ErrNoIndex = errors.New("no vector index found")

// Reset deletes the persist directory. It reports whether anything was there.
func Reset(persistDir string) (bool, error) {
	if _, err := os.Stat(persistDir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", persistDir, err)
	}

	if err := os.RemoveAll(persistDir); err != nil {
		return true, fmt.Errorf("remove %s: %w", persistDir, err)
	}
	return true, nil
}

// Exists reports whether an index database is present under persistDir.
func Exists(persistDir string) bool {
	info, err := os.Stat(config.IndexDBPath(persistDir))
	return err == nil && !info.IsDir()
}

// Index bundles the document store and the vector store sharing one database.
type Index struct {
	Docs    *BoltStore
	Vectors *BoltVectorStore
}

// Open opens the index under persistDir, creating it when create is set.
// Without create a missing index fails with ErrNoIndex.
func Open(persistDir string, dimension int, create bool) (*Index, error) {
	if !create && !Exists(persistDir) {
		return nil, fmt.Errorf("%w in %s", ErrNoIndex, persistDir)
	}
	if err := config.EnsurePersistDir(persistDir); err != nil {
		return nil, fmt.Errorf("create persist dir: %w", err)
	}

	docs, err := NewBoltStore(config.IndexDBPath(persistDir))
	if err != nil {
		return nil, err
	}

	vectors, err := NewBoltVectorStore(docs.DB(), dimension)
	if err != nil {
		docs.Close()
		return nil, err
	}

	return &Index{Docs: docs, Vectors: vectors}, nil
}

func (i *Index) Close() error {
	return i.Docs.Close()
}
