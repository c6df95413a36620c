package port

import "speechqa/internal/domain"

type IndexStore interface {
	PutDoc(doc domain.Document) error

	GetDoc(id string) (domain.Document, error)

	ListDocs() ([]domain.Document, error)

	GetChunk(id string) (domain.Chunk, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	GetStats() (domain.Stats, error)

	UpdateStats(stats domain.Stats) error

	GetManifest() (domain.Manifest, error)

	SetManifest(m domain.Manifest) error

	BatchIndex(doc domain.Document, chunks []domain.Chunk) error

	Close() error
}
