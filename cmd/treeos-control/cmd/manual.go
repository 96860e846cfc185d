package cmd

import (
	"github.com/spf13/cobra"
)

// manualCmd opens the user manual.
var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Open the TreeOS user manual.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opened, err := env.desktop.OpenManual(cmd.Context())
		if err != nil {
			return err
		}

		if !opened {
			printLine(cmd.OutOrStdout(), "The user manual is not installed at "+env.cfg.ManualFile)
		}

		return nil
	},
}
