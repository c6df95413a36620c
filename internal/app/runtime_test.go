package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"speechqa/config"
	"speechqa/internal/adapter/store"
	"speechqa/internal/domain"
	"speechqa/internal/port/mocks"
)

const speech = `The real remedy is to destroy the belief in the sanctity of the shastras.

The sun rises in the east and sets in the west, and so the day begins.

Caste is a notion, it is a state of the mind. The destruction of caste does not therefore mean the destruction of a physical barrier.`

type recorder struct {
	resets []bool
	reused int
	stages []int
}

func (r *recorder) Stage(step int, _ string) { r.stages = append(r.stages, step) }
func (r *recorder) Embedded(int, int)       {}
func (r *recorder) Reset(existed bool)      { r.resets = append(r.resets, existed) }
func (r *recorder) Reused(domain.Manifest)  { r.reused++ }

func testConfig(t *testing.T, strategy string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Source = filepath.Join(dir, "speech.txt")
	cfg.Index.PersistDir = filepath.Join(dir, "vector_db")
	cfg.Index.Strategy = strategy
	cfg.Index.ChunkSize = 80
	cfg.Index.ChunkOverlap = 10
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 1024

	require.NoError(t, os.WriteFile(cfg.Source, []byte(speech), 0644))
	return cfg
}

func newRuntime(t *testing.T, cfg *config.Config) *Runtime {
	t.Helper()
	rt, err := Initialize(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Shutdown() })
	return rt
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.ChunkOverlap = cfg.Index.ChunkSize

	_, err := Initialize(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	cfg := config.DefaultConfig().Embedding

	emb, err := NewEmbedder(cfg)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", emb.ModelName())
	assert.Equal(t, 384, emb.Dimension())

	cfg.Provider = "hash"
	emb, err = NewEmbedder(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hash", emb.ModelName())

	cfg.Provider = "voyage"
	_, err = NewEmbedder(cfg)
	assert.Error(t, err)
}

func TestFullStrategyAlwaysRebuilds(t *testing.T) {
	cfg := testConfig(t, config.StrategyFull)
	rt := newRuntime(t, cfg)
	ctx := context.Background()
	rec := &recorder{}

	first, err := rt.BuildIndex(ctx, rec)
	require.NoError(t, err)
	assert.True(t, first.Rebuilt)
	assert.Greater(t, first.Chunks, 0)

	second, err := rt.BuildIndex(ctx, rec)
	require.NoError(t, err)
	assert.True(t, second.Rebuilt)
	assert.Equal(t, first.Chunks, second.Chunks)

	assert.Equal(t, []bool{false, true}, rec.resets)
	assert.Equal(t, []int{1, 2, 3, 4, 1, 2, 3, 4}, rec.stages)
	assert.True(t, store.Exists(cfg.Index.PersistDir))
}

func TestHashStrategyReusesUnchangedIndex(t *testing.T) {
	cfg := testConfig(t, config.StrategyHash)
	ctx := context.Background()

	rt := newRuntime(t, cfg)
	rec := &recorder{}
	first, err := rt.BuildIndex(ctx, rec)
	require.NoError(t, err)
	assert.True(t, first.Rebuilt)
	require.NoError(t, rt.Shutdown())

	rt2 := newRuntime(t, cfg)
	rec2 := &recorder{}
	second, err := rt2.BuildIndex(ctx, rec2)
	require.NoError(t, err)
	assert.False(t, second.Rebuilt)
	assert.Equal(t, 1, rec2.reused)
	assert.Empty(t, rec2.resets)
	assert.Equal(t, first.Chunks, second.Chunks)
	require.NoError(t, rt2.Shutdown())

	require.NoError(t, os.WriteFile(cfg.Source, []byte(speech+"\n\nA new closing paragraph."), 0644))

	rt3 := newRuntime(t, cfg)
	rec3 := &recorder{}
	third, err := rt3.BuildIndex(ctx, rec3)
	require.NoError(t, err)
	assert.True(t, third.Rebuilt)
	assert.Equal(t, "source content changed", third.Reason)
	assert.Equal(t, []bool{true}, rec3.resets)
}

func TestHashStrategyRebuildsOnConfigChange(t *testing.T) {
	cfg := testConfig(t, config.StrategyHash)
	ctx := context.Background()

	rt := newRuntime(t, cfg)
	_, err := rt.BuildIndex(ctx, &recorder{})
	require.NoError(t, err)
	require.NoError(t, rt.Shutdown())

	cfg.Index.ChunkSize = 100
	rt2 := newRuntime(t, cfg)
	result, err := rt2.BuildIndex(ctx, &recorder{})
	require.NoError(t, err)
	assert.True(t, result.Rebuilt)
	assert.Equal(t, "index configuration changed", result.Reason)
}

func TestMissingSourceFails(t *testing.T) {
	cfg := testConfig(t, config.StrategyFull)
	require.NoError(t, os.Remove(cfg.Source))

	rt := newRuntime(t, cfg)
	_, err := rt.BuildIndex(context.Background(), &recorder{})
	require.Error(t, err)
}

func TestOpenIndexWithoutBuild(t *testing.T) {
	cfg := testConfig(t, config.StrategyFull)
	rt := newRuntime(t, cfg)

	err := rt.OpenIndex()
	assert.True(t, errors.Is(err, store.ErrNoIndex))

	_, err = rt.Answerer()
	assert.ErrorIs(t, err, store.ErrNoIndex)
}

func TestResetWithoutIndex(t *testing.T) {
	rt := newRuntime(t, testConfig(t, config.StrategyFull))

	existed, err := rt.ResetIndex()
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestAnswerOverBuiltIndex(t *testing.T) {
	cfg := testConfig(t, config.StrategyFull)
	rt := newRuntime(t, cfg)
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	llm := mocks.NewMockLLM(ctrl)
	rt.SetLLM(llm)

	_, err := rt.BuildIndex(ctx, &recorder{})
	require.NoError(t, err)

	var prompt string
	llm.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p string) (string, error) {
		prompt = p
		return " The sun rises in the east. ", nil
	})

	a, err := rt.Answerer()
	require.NoError(t, err)
	answer, err := a.Answer(ctx, "Does the sun rise in the east or the west?")
	require.NoError(t, err)

	assert.Equal(t, "The sun rises in the east.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Contains(t, answer.Sources[0].Chunk.Text, "sun rises")
	assert.Contains(t, prompt, answer.Sources[0].Chunk.Text)
}

func TestAnswerAfterReopen(t *testing.T) {
	cfg := testConfig(t, config.StrategyFull)
	ctx := context.Background()

	rt := newRuntime(t, cfg)
	_, err := rt.BuildIndex(ctx, &recorder{})
	require.NoError(t, err)
	require.NoError(t, rt.Shutdown())

	rt2 := newRuntime(t, cfg)
	require.NoError(t, rt2.OpenIndex())

	ctrl := gomock.NewController(t)
	llm := mocks.NewMockLLM(ctrl)
	llm.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("Not found in speech.", nil)
	rt2.SetLLM(llm)

	a, err := rt2.Answerer()
	require.NoError(t, err)
	answer, err := a.Answer(ctx, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, config.FallbackPhrase, answer.Text)
	assert.Len(t, answer.Sources, 2)
}

func TestRebuildInvalidatesCachedRetrieval(t *testing.T) {
	cfg := testConfig(t, config.StrategyFull)
	cfg.Retrieve.TopK = 1
	rt := newRuntime(t, cfg)
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	llm := mocks.NewMockLLM(ctrl)
	llm.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("ok", nil).Times(2)
	rt.SetLLM(llm)

	_, err := rt.BuildIndex(ctx, &recorder{})
	require.NoError(t, err)
	a, _ := rt.Answerer()
	before, err := a.Answer(ctx, "where does the sun rise")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg.Source, []byte("Rain falls on the plains in the monsoon."), 0644))
	_, err = rt.BuildIndex(ctx, &recorder{})
	require.NoError(t, err)

	a, _ = rt.Answerer()
	after, err := a.Answer(ctx, "where does the sun rise")
	require.NoError(t, err)

	require.Len(t, after.Sources, 1)
	assert.NotEqual(t, before.Sources[0].Chunk.Text, after.Sources[0].Chunk.Text)
	assert.Contains(t, after.Sources[0].Chunk.Text, "monsoon")
}

func TestMemoryBackend(t *testing.T) {
	cfg := testConfig(t, config.StrategyFull)
	cfg.Index.Backend = config.BackendMemory
	rt := newRuntime(t, cfg)

	assert.ErrorIs(t, rt.OpenIndex(), store.ErrNoIndex)

	result, err := rt.BuildIndex(context.Background(), &recorder{})
	require.NoError(t, err)
	assert.Greater(t, result.Chunks, 0)
	assert.False(t, store.Exists(cfg.Index.PersistDir), "memory backend must not touch disk")

	existed, err := rt.ResetIndex()
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestWarmUp(t *testing.T) {
	rt := newRuntime(t, testConfig(t, config.StrategyFull))

	ctrl := gomock.NewController(t)
	llm := mocks.NewMockLLM(ctrl)
	boom := errors.New("model not available in ollama")
	llm.EXPECT().Ping(gomock.Any()).Return(boom)
	llm.EXPECT().ModelName().Return("llama3.2:1b").AnyTimes()
	rt.SetLLM(llm)

	assert.ErrorIs(t, rt.WarmUp(context.Background()), boom)
}
