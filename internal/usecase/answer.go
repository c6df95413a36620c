package usecase

import (
	"context"
	"fmt"
	"strings"

	"speechqa/internal/domain"
	"speechqa/internal/logging"
	"speechqa/internal/port"
)

// AnswerUseCase answers a question from the retrieved chunks.
type AnswerUseCase struct {
	retriever port.Retriever
	llm       port.LLM
	prompt    *PromptBuilder
	topK      int
}

func NewAnswerUseCase(retriever port.Retriever, llm port.LLM, prompt *PromptBuilder, topK int) *AnswerUseCase {
	return &AnswerUseCase{
		retriever: retriever,
		llm:       llm,
		prompt:    prompt,
		topK:      topK,
	}
}

// Answer retrieves the top-k chunks, builds the grounded prompt and asks the model.
// Retrieval or generation failures are returned to the caller unchanged in kind.
func (u *AnswerUseCase) Answer(ctx context.Context, question string) (domain.Answer, error) {
	logger := logging.FromContext(ctx)

	sources, err := u.retriever.Search(ctx, question, u.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	logger.Debug("retrieved context", "question", question, "chunks", len(sources))

	prompt, err := u.prompt.Build(JoinContext(sources), question)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := u.llm.Generate(ctx, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate: %w", err)
	}

	return domain.Answer{
		Question: question,
		Text:     strings.TrimSpace(text),
		Sources:  sources,
	}, nil
}
