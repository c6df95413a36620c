package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"speechqa/internal/domain"
)

// Answerer answers a single question.
type Answerer interface {
	Answer(ctx context.Context, question string) (domain.Answer, error)
}

// Session is the interactive question loop.
type Session struct {
	answerer Answerer
	in       io.Reader
	out      io.Writer
}

func NewSession(answerer Answerer, in io.Reader, out io.Writer) *Session {
	return &Session{answerer: answerer, in: in, out: out}
}

// Run prompts until the user types exit (any case) or input ends.
// The first answering error stops the loop and is returned.
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(s.out, "You: ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read question: %w", err)
			}
			fmt.Fprintln(s.out)
			return nil
		}
		question := strings.TrimSuffix(scanner.Text(), "\r")

		if strings.EqualFold(question, "exit") {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		answer, err := s.answerer.Answer(ctx, question)
		if err != nil {
			return err
		}
		PrintAnswer(s.out, answer)
	}
}

// PrintAnswer writes the answer followed by the chunks it was grounded on.
func PrintAnswer(w io.Writer, answer domain.Answer) {
	fmt.Fprintf(w, "\nAnswer: %s\n", answer.Text)
	fmt.Fprintln(w, "\n--- Sources Used ---")
	for _, src := range answer.Sources {
		fmt.Fprintf(w, "- %s\n", src.Chunk.Text)
	}
	fmt.Fprintln(w)
}
