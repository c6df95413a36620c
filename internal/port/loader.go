package port

import "speechqa/internal/domain"

// DocumentLoader reads a source file into a Document.
type DocumentLoader interface {
	Load(path string) (domain.Document, error)
}
