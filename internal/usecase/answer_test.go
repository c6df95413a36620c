package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"speechqa/config"
	"speechqa/internal/domain"
	"speechqa/internal/port/mocks"
)

func scored(texts ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(texts))
	for i, text := range texts {
		out[i] = domain.ScoredChunk{Chunk: domain.Chunk{ID: text, Index: i, Text: text}, Score: 0.9 - float64(i)*0.1}
	}
	return out
}

func newAnswerUseCase(t *testing.T) (*AnswerUseCase, *mocks.MockRetriever, *mocks.MockLLM) {
	t.Helper()
	ctrl := gomock.NewController(t)
	r := mocks.NewMockRetriever(ctrl)
	llm := mocks.NewMockLLM(ctrl)

	prompt, err := NewPromptBuilder(config.FallbackPhrase)
	require.NoError(t, err)

	return NewAnswerUseCase(r, llm, prompt, 2), r, llm
}

func TestAnswer(t *testing.T) {
	uc, r, llm := newAnswerUseCase(t)
	ctx := context.Background()

	sources := scored("The sun rises in the east.", "It sets in the west.")
	r.EXPECT().Search(gomock.Any(), "Where does the sun rise?", 2).Return(sources, nil)

	var gotPrompt string
	llm.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "  The sun rises in the east.\n", nil
	})

	answer, err := uc.Answer(ctx, "Where does the sun rise?")
	require.NoError(t, err)

	assert.Equal(t, "The sun rises in the east.", answer.Text)
	assert.Equal(t, "Where does the sun rise?", answer.Question)
	assert.Equal(t, sources, answer.Sources)
	assert.Contains(t, gotPrompt, "### CONTEXT:\nThe sun rises in the east.\nIt sets in the west.\n\n### QUESTION:\nWhere does the sun rise?\n")
}

func TestAnswerEmptyIndex(t *testing.T) {
	uc, r, llm := newAnswerUseCase(t)

	r.EXPECT().Search(gomock.Any(), "What is the capital of France?", 2).Return(nil, nil)
	llm.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("Not found in speech.", nil)

	answer, err := uc.Answer(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, config.FallbackPhrase, answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestAnswerRetrieveError(t *testing.T) {
	uc, r, _ := newAnswerUseCase(t)
	boom := errors.New("embedding service unreachable")

	// No Generate expectation: the model must not be called.
	r.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := uc.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}

func TestAnswerGenerateError(t *testing.T) {
	uc, r, llm := newAnswerUseCase(t)
	boom := errors.New("ollama timed out")

	r.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(scored("ctx"), nil)
	llm.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", boom)

	_, err := uc.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}
