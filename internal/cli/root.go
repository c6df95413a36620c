package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"speechqa/config"
	"speechqa/internal/app"
	"speechqa/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	source   string
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "speechqa",
	Short: "Ask questions about a speech using a local language model",
	Long: `speechqa indexes a plain-text speech into a local vector database and answers
questions about it with a model served by Ollama, citing the passages it used.

Run without a subcommand to rebuild the index and start an interactive session.

Example usage:
  speechqa                             # Rebuild index, then ask questions
  speechqa index                       # Only (re)build the index
  speechqa ask -q "Where does the sun rise?"
  speechqa reset                       # Delete the stored index`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}
		rootDir, err = filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("invalid directory: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg.ApplyEnv(rootDir)
		if source != "" {
			cfg.Source = source
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		cfg.Source = config.Resolve(rootDir, cfg.Source)
		cfg.Index.PersistDir = config.Resolve(rootDir, cfg.Index.PersistDir)

		logger, err = logging.New(cfg.Logging, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		logger.Debug("config loaded", "dir", rootDir, "source", cfg.Source, "persist_dir", cfg.Index.PersistDir)

		return nil
	},
	RunE: runChat,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./speechqa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory (default is current directory)")
	rootCmd.PersistentFlags().StringVarP(&source, "source", "s", "", "text file to index (default is speech.txt)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}

// newRuntime initializes the runtime for the current command.
func newRuntime(ctx context.Context) (*app.Runtime, error) {
	return app.Initialize(logging.WithLogger(ctx, logger), GetConfig(), logger)
}
