package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"speechqa/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// PromptData is what the answer template is rendered with.
type PromptData struct {
	Context  string
	Question string
	Fallback string
}

// PromptBuilder renders the grounded answering prompt.
type PromptBuilder struct {
	tmpl     *template.Template
	fallback string
}

func NewPromptBuilder(fallback string) (*PromptBuilder, error) {
	content, err := promptTemplates.ReadFile("templates/answer_prompt.txt")
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}

	tmpl, err := template.New("answer").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &PromptBuilder{tmpl: tmpl, fallback: fallback}, nil
}

// Build renders the prompt for question over the given context.
func (b *PromptBuilder) Build(context, question string) (string, error) {
	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, PromptData{
		Context:  context,
		Question: question,
		Fallback: b.fallback,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// JoinContext concatenates chunk texts with newlines in retrieval order.
func JoinContext(chunks []domain.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return strings.Join(texts, "\n")
}
