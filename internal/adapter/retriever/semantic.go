package retriever

import (
	"context"
	"fmt"

	"speechqa/internal/domain"
	"speechqa/internal/port"
)

// DefaultTopK is used when a search asks for k <= 0.
const DefaultTopK = 2

var _ port.Retriever = (*SemanticRetriever)(nil)

type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
	chunkStore  port.IndexStore
	defaultK    int
}

func NewSemanticRetriever(
	vectorStore port.VectorStore,
	embedder port.Embedder,
	chunkStore port.IndexStore,
	defaultK int,
) *SemanticRetriever {
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		chunkStore:  chunkStore,
		defaultK:    defaultK,
	}
}

// Search embeds the query and returns the k nearest chunks, nearest first.
func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if r.vectorStore == nil || r.embedder == nil {
		return nil, fmt.Errorf("semantic search not available: embeddings not configured")
	}
	if k <= 0 {
		k = r.defaultK
	}

	n, err := r.vectorStore.Count()
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	results, err := r.vectorStore.Search(embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(results))
	for _, result := range results {
		chunk, err := r.chunkStore.GetChunk(result.ID)
		if err != nil {
			return nil, fmt.Errorf("index is inconsistent: %w", err)
		}
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: chunk,
			Score: result.Score,
		})
	}

	return chunks, nil
}
