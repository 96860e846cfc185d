package cmd

import (
	"github.com/spf13/cobra"
)

var (
	containerCmd = &cobra.Command{
		Use:   "container",
		Short: "Manage the toolbox container applications are installed into.",
	}

	containerEnsureCmd = &cobra.Command{
		Use:   "ensure [NAME]",
		Short: "Create the container unless it exists.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed := newFeed(cmd)
			defer feed.Close()

			return env.toolbox.EnsureContainer(cmd.Context(), containerName(args), feed)
		},
	}

	containerRemoveCmd = &cobra.Command{
		Use:   "remove [NAME]",
		Short: "Force-remove the container.",
		Long: `Force-removes the container and everything installed in it. Launcher entries of
applications installed in it are kept and reported; uninstall them or remove the
entries by hand.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed := newFeed(cmd)
			defer feed.Close()

			return env.toolbox.RemoveContainer(cmd.Context(), containerName(args), feed)
		},
	}

	containerShellCmd = &cobra.Command{
		Use:   "shell [NAME]",
		Short: "Open a terminal inside the container.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			env.toolbox.OpenShell(cmd.Context(), containerName(args))
		},
	}
)

// containerName is the optional NAME argument, the configured container by default.
func containerName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return env.toolbox.Container()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	containerCmd.AddCommand(containerEnsureCmd, containerRemoveCmd, containerShellCmd)
}
