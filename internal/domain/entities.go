package domain

import "time"

type Document struct {
	ID          string
	Path        string
	Content     string
	ContentHash string
	ModTime     time.Time
}

type Chunk struct {
	ID    string
	DocID string
	Index int
	Start int // rune offset into the document
	End   int
	Text  string
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Answer is the outcome of one question in the chat loop.
type Answer struct {
	Question string
	Text     string
	Sources  []ScoredChunk
}

// Manifest describes what the persisted index was built from.
type Manifest struct {
	Version        int       `json:"version"`
	SourcePath     string    `json:"source_path"`
	SourceHash     string    `json:"source_hash"`
	ConfigHash     string    `json:"config_hash"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkCount     int       `json:"chunk_count"`
	BuiltAt        time.Time `json:"built_at"`
}

type Stats struct {
	TotalDocs   int
	TotalChunks int
	AvgChunkLen float64
}
