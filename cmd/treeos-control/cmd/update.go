package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/treeos-project/treeos-control/internal/service/updater"
)

// updateCmd runs a manual update in the foreground.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Upgrade packages and rebase to the latest published release.",
	Long: `Runs rpm-ostree upgrade, then rebases to the published release descriptor when it
differs from the stored version and from the running system. Only one update runs at
a time; a second one is refused while the first holds the lock. Interrupting the
command stops the running step and releases the lock.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		feed := newFeed(cmd)
		defer feed.Close()

		task, err := env.updates.StartManualUpdate(cmd.Context(), feed)
		if errors.Is(err, updater.ErrAlreadyRunning) {
			return nil
		}

		if err != nil {
			return err
		}

		// The task stops by itself when the command context ends; wait for its cleanup.
		_, err = task.Wait(context.WithoutCancel(cmd.Context()))

		return err
	},
}
