package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"speechqa/internal/domain"
	"speechqa/internal/logging"
	"speechqa/internal/port"
)

// Progress receives build updates for display.
type Progress interface {
	// Stage announces a numbered build step.
	Stage(step int, message string)

	// Embedded reports how many of total chunks have vectors so far.
	Embedded(done, total int)
}

// NopProgress discards all updates.
type NopProgress struct{}

func (NopProgress) Stage(int, string)  {}
func (NopProgress) Embedded(int, int) {}

// IndexOptions carries the values stamped into the manifest and the write batch size.
type IndexOptions struct {
	BatchSize     int
	SchemaVersion int
	ConfigHash    string
}

// IndexUseCase builds the vector index from one source document.
type IndexUseCase struct {
	loader   port.DocumentLoader
	chunker  port.Chunker
	embedder port.Embedder
	docs     port.IndexStore
	vectors  port.VectorStore
	opts     IndexOptions
	progress Progress
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(
	loader port.DocumentLoader,
	chunker port.Chunker,
	embedder port.Embedder,
	docs port.IndexStore,
	vectors port.VectorStore,
	opts IndexOptions,
	progress Progress,
) *IndexUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if progress == nil {
		progress = NopProgress{}
	}
	return &IndexUseCase{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		docs:     docs,
		vectors:  vectors,
		opts:     opts,
		progress: progress,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Document domain.Document
	Chunks   int
	Manifest domain.Manifest
}

// Index loads the source and indexes it.
func (u *IndexUseCase) Index(ctx context.Context, path string) (*IndexResult, error) {
	doc, err := LoadSource(u.loader, u.progress, path)
	if err != nil {
		return nil, err
	}
	return u.IndexDocument(ctx, doc)
}

// LoadSource runs the loading step on its own so callers can inspect the
// document before deciding to rebuild.
func LoadSource(loader port.DocumentLoader, progress Progress, path string) (domain.Document, error) {
	progress.Stage(1, fmt.Sprintf("Loading %s ...", filepath.Base(path)))
	doc, err := loader.Load(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to load source: %w", err)
	}
	return doc, nil
}

// IndexDocument chunks, embeds and stores an already loaded document.
// An empty document produces an empty but valid index.
func (u *IndexUseCase) IndexDocument(ctx context.Context, doc domain.Document) (*IndexResult, error) {
	logger := logging.FromContext(ctx)

	u.progress.Stage(2, "Splitting text into chunks ...")
	chunks, err := u.chunker.Chunk(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk content: %w", err)
	}
	logger.Debug("chunked document", "path", doc.Path, "chunks", len(chunks))

	u.progress.Stage(3, "Creating embeddings ...")
	vectors, err := u.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	u.progress.Stage(4, "Building vector DB ...")
	if err := u.docs.BatchIndex(doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	for i := 0; i < len(chunks); i += u.opts.BatchSize {
		end := min(i+u.opts.BatchSize, len(chunks))
		items := make([]port.VectorItem, 0, end-i)
		for j := i; j < end; j++ {
			items = append(items, port.VectorItem{
				ID:     chunks[j].ID,
				Vector: vectors[j],
				Metadata: map[string]string{
					"doc_id": chunks[j].DocID,
				},
			})
		}
		if err := u.vectors.Upsert(items); err != nil {
			return nil, fmt.Errorf("failed to store vectors: %w", err)
		}
	}

	totalLen := 0
	for _, c := range chunks {
		totalLen += c.End - c.Start
	}
	avgChunkLen := 0.0
	if len(chunks) > 0 {
		avgChunkLen = float64(totalLen) / float64(len(chunks))
	}
	if err := u.docs.UpdateStats(domain.Stats{TotalDocs: 1, TotalChunks: len(chunks), AvgChunkLen: avgChunkLen}); err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}

	// The manifest goes last: an index without one counts as incomplete.
	manifest := domain.Manifest{
		Version:        u.opts.SchemaVersion,
		SourcePath:     doc.Path,
		SourceHash:     doc.ContentHash,
		ConfigHash:     u.opts.ConfigHash,
		EmbeddingModel: u.embedder.ModelName(),
		Dimension:      u.embedder.Dimension(),
		ChunkCount:     len(chunks),
		BuiltAt:        time.Now().UTC(),
	}
	if err := u.docs.SetManifest(manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	logger.Info("index built", "path", doc.Path, "chunks", len(chunks), "model", manifest.EmbeddingModel)

	return &IndexResult{
		Document: doc,
		Chunks:   len(chunks),
		Manifest: manifest,
	}, nil
}

func (u *IndexUseCase) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	total := len(chunks)
	vectors := make([][]float32, 0, total)
	u.progress.Embedded(0, total)

	for i := 0; i < total; i += u.opts.BatchSize {
		end := min(i+u.opts.BatchSize, total)
		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.Text)
		}

		batch, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", i, end, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
		u.progress.Embedded(end, total)
	}

	return vectors, nil
}
