// Package app wires configuration into the adapters and use cases for one run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"speechqa/config"
	"speechqa/internal/adapter/cache"
	"speechqa/internal/adapter/chunker"
	"speechqa/internal/adapter/embedding"
	"speechqa/internal/adapter/fs"
	"speechqa/internal/adapter/llm"
	"speechqa/internal/adapter/memstore"
	"speechqa/internal/adapter/retriever"
	"speechqa/internal/adapter/retry"
	"speechqa/internal/adapter/store"
	"speechqa/internal/domain"
	"speechqa/internal/logging"
	"speechqa/internal/port"
	"speechqa/internal/usecase"
)

// Progress receives everything the build reports, including the reset outcome.
type Progress interface {
	usecase.Progress

	// Reset reports whether a previous index was deleted.
	Reset(existed bool)

	// Reused reports that the stored index matched and was kept.
	Reused(m domain.Manifest)
}

// Runtime owns the services and store handles for one process.
type Runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	loader   *fs.Loader
	chunker  *chunker.CharChunker
	embedder port.Embedder
	llm      port.LLM
	cache    *cache.QueryCache

	index   *store.Index
	docs    port.IndexStore
	vectors port.VectorStore
}

// BuildResult describes what BuildIndex did.
type BuildResult struct {
	Rebuilt  bool
	Reason   string
	Chunks   int
	Manifest domain.Manifest
}

// Initialize validates cfg and constructs the model clients once.
// Paths in cfg are used as given; callers resolve them first.
func Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch, err := chunker.NewCharChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	emb, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	gen := llm.NewOllama(llm.Config{
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Policy: retry.Policy{
			Attempts: cfg.Generation.Attempts,
			Backoff:  cfg.Generation.Backoff,
			Timeout:  cfg.Generation.Timeout,
		},
	})

	var qc *cache.QueryCache
	if cfg.Retrieve.CacheSize > 0 {
		qc = cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
	}

	logger.Debug("runtime initialized",
		"source", cfg.Source,
		"persist_dir", cfg.Index.PersistDir,
		"strategy", cfg.Index.Strategy,
		"embedder", emb.ModelName(),
		"llm", gen.ModelName(),
	)

	return &Runtime{
		cfg:      cfg,
		logger:   logger,
		loader:   fs.NewLoader(),
		chunker:  ch,
		embedder: emb,
		llm:      gen,
		cache:    qc,
	}, nil
}

// NewEmbedder builds the embedder named by the config provider.
func NewEmbedder(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
			Policy: retry.Policy{
				Attempts: cfg.Attempts,
				Backoff:  cfg.Backoff,
				Timeout:  cfg.Timeout,
			},
		}), nil
	case "hash":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// SetLLM replaces the generator. Tests use it to inject a fake model.
func (r *Runtime) SetLLM(l port.LLM) {
	r.llm = l
}

func (r *Runtime) Config() *config.Config {
	return r.cfg
}

func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

func (r *Runtime) withLogger(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, r.logger)
}

// ResetIndex closes and deletes the persisted index. It is safe to call when
// nothing exists.
func (r *Runtime) ResetIndex() (bool, error) {
	if err := r.closeIndex(); err != nil {
		return false, err
	}

	if r.cfg.Index.Backend == config.BackendMemory {
		existed := false
		if r.vectors != nil {
			n, _ := r.vectors.Count()
			existed = n > 0
		}
		r.docs, r.vectors = nil, nil
		return existed, nil
	}

	existed, err := store.Reset(r.cfg.Index.PersistDir)
	if err != nil {
		return existed, fmt.Errorf("reset index: %w", err)
	}
	r.logger.Debug("index reset", "persist_dir", r.cfg.Index.PersistDir, "existed", existed)
	return existed, nil
}

// BuildIndex brings the index up to date with the source according to the
// configured strategy and leaves it open for querying.
func (r *Runtime) BuildIndex(ctx context.Context, progress Progress) (*BuildResult, error) {
	ctx = r.withLogger(ctx)

	if r.cfg.Index.Strategy == config.StrategyFull {
		existed, err := r.ResetIndex()
		if err != nil {
			return nil, err
		}
		progress.Reset(existed)

		doc, err := usecase.LoadSource(r.loader, progress, r.cfg.Source)
		if err != nil {
			return nil, err
		}
		return r.rebuild(ctx, doc, progress, "full rebuild")
	}

	doc, err := usecase.LoadSource(r.loader, progress, r.cfg.Source)
	if err != nil {
		return nil, err
	}

	check, err := r.checkExisting(doc)
	if err != nil {
		return nil, err
	}
	if !check.NeedsRebuild {
		m, err := r.docs.GetManifest()
		if err != nil {
			return nil, err
		}
		r.logger.Info("reusing index", "reason", check.Reason, "chunks", m.ChunkCount)
		progress.Reused(m)
		return &BuildResult{Reason: check.Reason, Chunks: m.ChunkCount, Manifest: m}, nil
	}

	r.logger.Info("rebuilding index", "reason", check.Reason)
	existed, err := r.ResetIndex()
	if err != nil {
		return nil, err
	}
	progress.Reset(existed)
	return r.rebuild(ctx, doc, progress, check.Reason)
}

// checkExisting opens a stored index, if any, and compares its manifest.
func (r *Runtime) checkExisting(doc domain.Document) (store.RebuildCheck, error) {
	if r.docs == nil {
		err := r.OpenIndex()
		if errors.Is(err, store.ErrNoIndex) {
			return store.RebuildCheck{NeedsRebuild: true, Reason: "no index found"}, nil
		}
		if err != nil {
			return store.RebuildCheck{}, err
		}
	}

	m, err := r.docs.GetManifest()
	if err != nil {
		return store.RebuildCheck{}, fmt.Errorf("read manifest: %w", err)
	}
	return store.CheckRebuild(m, doc.ContentHash, r.cfg), nil
}

func (r *Runtime) rebuild(ctx context.Context, doc domain.Document, progress Progress, reason string) (*BuildResult, error) {
	if err := r.createIndex(); err != nil {
		return nil, err
	}

	uc := usecase.NewIndexUseCase(r.loader, r.chunker, r.embedder, r.docs, r.vectors, usecase.IndexOptions{
		BatchSize:     r.cfg.Embedding.BatchSize,
		SchemaVersion: store.SchemaVersion,
		ConfigHash:    store.ComputeConfigHash(r.cfg),
	}, progress)

	result, err := uc.IndexDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Invalidate()
	}

	return &BuildResult{
		Rebuilt:  true,
		Reason:   reason,
		Chunks:   result.Chunks,
		Manifest: result.Manifest,
	}, nil
}

func (r *Runtime) createIndex() error {
	if r.cfg.Index.Backend == config.BackendMemory {
		r.docs = memstore.NewMemoryStore()
		r.vectors = memstore.NewMemoryVectorStore(r.embedder.Dimension())
		return nil
	}

	idx, err := store.Open(r.cfg.Index.PersistDir, r.embedder.Dimension(), true)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	r.setIndex(idx)
	return nil
}

// OpenIndex opens the persisted index without building it. A missing index
// fails with store.ErrNoIndex.
func (r *Runtime) OpenIndex() error {
	if r.docs != nil {
		return nil
	}
	if r.cfg.Index.Backend == config.BackendMemory {
		return fmt.Errorf("%w: the memory backend keeps nothing between runs", store.ErrNoIndex)
	}

	idx, err := store.Open(r.cfg.Index.PersistDir, r.embedder.Dimension(), false)
	if err != nil {
		return err
	}
	r.setIndex(idx)
	return nil
}

func (r *Runtime) setIndex(idx *store.Index) {
	r.index = idx
	r.docs = idx.Docs
	r.vectors = idx.Vectors
}

// Answerer returns the question answering use case over the open index.
func (r *Runtime) Answerer() (*usecase.AnswerUseCase, error) {
	if r.docs == nil || r.vectors == nil {
		return nil, store.ErrNoIndex
	}

	prompt, err := usecase.NewPromptBuilder(config.FallbackPhrase)
	if err != nil {
		return nil, err
	}

	var ret port.Retriever = retriever.NewSemanticRetriever(r.vectors, r.embedder, r.docs, r.cfg.Retrieve.TopK)
	if r.cache != nil {
		ret = cache.NewCachedRetriever(ret, r.cache)
	}

	return usecase.NewAnswerUseCase(ret, r.llm, prompt, r.cfg.Retrieve.TopK), nil
}

// WarmUp checks that the generator is reachable and its model is pulled.
func (r *Runtime) WarmUp(ctx context.Context) error {
	if err := r.llm.Ping(ctx); err != nil {
		return fmt.Errorf("model %s: %w", r.llm.ModelName(), err)
	}
	return nil
}

// ModelName is the generator model in use.
func (r *Runtime) ModelName() string {
	return r.llm.ModelName()
}

func (r *Runtime) closeIndex() error {
	if r.index == nil {
		return nil
	}
	err := r.index.Close()
	r.index, r.docs, r.vectors = nil, nil, nil
	if err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	return nil
}

// Shutdown releases the open index.
func (r *Runtime) Shutdown() error {
	return r.closeIndex()
}
