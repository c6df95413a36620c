package port

import "context"

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks speechqa/internal/port LLM

// LLM represents a language model for text generation.
type LLM interface {
	// Generate generates text based on the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Ping checks that the model service is reachable and the model is available.
	Ping(ctx context.Context) error

	// ModelName returns the name of the model.
	ModelName() string
}
