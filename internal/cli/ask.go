package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"speechqa/internal/adapter/store"
	"speechqa/internal/logging"
	"speechqa/internal/usecase"
)

var (
	askQuestion string
	askTopK     int
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question from the existing index",
	Long: `Answer a single question against the index built by a previous run.
The index is not rebuilt; run 'speechqa index' first.

Examples:
  speechqa ask -q "Where does the sun rise?"
  speechqa ask -q "What is caste?" -k 4`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(askQuestion) == "" {
		return fmt.Errorf("question must not be empty")
	}

	cfg := GetConfig()
	if askTopK > 0 {
		cfg.Retrieve.TopK = askTopK
	}

	ctx := logging.WithLogger(cmd.Context(), logger)
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	if err := rt.OpenIndex(); err != nil {
		if errors.Is(err, store.ErrNoIndex) {
			return fmt.Errorf("%w. Run 'speechqa index' first", err)
		}
		return err
	}

	answerer, err := rt.Answerer()
	if err != nil {
		return err
	}

	answer, err := answerer.Answer(ctx, askQuestion)
	if err != nil {
		return err
	}

	usecase.PrintAnswer(cmd.OutOrStdout(), answer)
	return nil
}
