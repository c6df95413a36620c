package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"speechqa/internal/logging"
	"speechqa/internal/usecase"
)

// runChat is the default command: rebuild the index, then answer questions
// from stdin until the user types exit.
func runChat(cmd *cobra.Command, args []string) error {
	ctx := logging.WithLogger(cmd.Context(), logger)
	out := cmd.OutOrStdout()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	result, err := rt.BuildIndex(ctx, newConsoleProgress(out))
	if err != nil {
		return err
	}
	if result.Rebuilt {
		fmt.Fprintln(out, "[✔] New vector DB created.")
	}

	fmt.Fprintf(out, "[5] Loading Ollama model: %s ...\n", rt.ModelName())
	if err := rt.WarmUp(ctx); err != nil {
		logger.Warn("model warm-up failed", "error", err)
	}

	answerer, err := rt.Answerer()
	if err != nil {
		return err
	}

	printBanner(cmd, rt.ModelName())

	return usecase.NewSession(answerer, cmd.InOrStdin(), out).Run(ctx)
}

func printBanner(cmd *cobra.Command, model string) {
	fmt.Fprintf(cmd.OutOrStdout(), `
=========================================
 SpeechQA - Using %s
 Ask questions about the speech.
 Type 'exit' to quit.
==========================================

`, model)
}
