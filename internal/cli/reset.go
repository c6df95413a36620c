package cli

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored vector index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Shutdown()

		existed, err := rt.ResetIndex()
		if err != nil {
			return err
		}
		newConsoleProgress(cmd.OutOrStdout()).Reset(existed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
