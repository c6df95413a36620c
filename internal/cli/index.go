package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"speechqa/config"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the source text",
	Long: `Load the source text, split it into overlapping chunks, embed them and store
the vectors in <persist_dir>/index.db.

With index.strategy=full (the default) any previous index is deleted first.
With index.strategy=hash an index built from the same text and settings is kept.

Examples:
  speechqa index
  speechqa index --source notes/speech.txt`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	result, err := rt.BuildIndex(ctx, newConsoleProgress(out))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	if result.Rebuilt {
		fmt.Fprintln(out, "[✔] New vector DB created.")
	}

	cfg := GetConfig()
	fmt.Fprintf(out, "\nIndexing complete:\n")
	fmt.Fprintf(out, "  Source:  %s\n", cfg.Source)
	fmt.Fprintf(out, "  Chunks:  %d\n", result.Chunks)
	fmt.Fprintf(out, "  Model:   %s (%d dims)\n", result.Manifest.EmbeddingModel, result.Manifest.Dimension)
	if cfg.Index.Backend == config.BackendBolt {
		fmt.Fprintf(out, "\nIndex stored at: %s\n", config.IndexDBPath(cfg.Index.PersistDir))
	}
	return nil
}
