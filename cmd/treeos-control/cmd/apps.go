package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/treeos-project/treeos-control/internal/domain/toolbox"
)

var (
	// verify makes apps status query the container.
	verify bool

	appsCmd = &cobra.Command{
		Use:   "apps",
		Short: "List, install and uninstall development applications.",
		Args:  cobra.NoArgs,
		RunE:  listApps,
	}

	appsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the catalog with the action each application offers.",
		Args:  cobra.NoArgs,
		RunE:  listApps,
	}

	appsToggleCmd = &cobra.Command{
		Use:       "toggle APP",
		Short:     "Install APP, or uninstall it when it is installed.",
		Long:      "Installs or uninstalls APP (pycharm, vscode or anaconda) inside the toolbox container.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: appKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := domain.Parse(args[0])
			if err != nil {
				return err
			}

			feed := newFeed(cmd)
			res, err := env.toolbox.Toggle(cmd.Context(), app, feed)
			feed.Close()

			if res.Label == "" {
				installed := env.toolbox.IsInstalled(app)
				res.Installed, res.Label = installed, app.Label(installed)
			}

			printLine(cmd.OutOrStdout(), fmt.Sprintf("%s is %s. Next action: %s.", app.Spec().Name, installedWord(res.Installed), res.Label))

			return err
		},
	}

	appsStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show which applications are installed.",
		Long: `Shows which applications have a launcher entry. With --verify the container is
queried as well and disagreements between the launcher entries and the installed
packages are reported. Nothing is changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			for _, status := range env.toolbox.Status() {
				printLine(out, fmt.Sprintf("%-10s %-14s %s", status.App, installedWord(status.Installed), status.Marker))

				if !verify {
					continue
				}

				drift, err := env.toolbox.Verify(cmd.Context(), status.App)
				if err != nil {
					return err
				}

				if drift.Drifted() {
					printLine(out, "  drift: "+drift.Reason())
				}
			}

			return nil
		},
	}
)

func listApps(cmd *cobra.Command, _ []string) error {
	for _, status := range env.toolbox.Status() {
		printLine(cmd.OutOrStdout(), fmt.Sprintf("%-10s %-14s %s", status.App, installedWord(status.Installed), status.Label))
	}

	return nil
}

func installedWord(installed bool) string {
	if installed {
		return "installed"
	}

	return "not installed"
}

func appKeys() []string {
	keys := make([]string, 0, len(domain.Apps()))
	for _, app := range domain.Apps() {
		keys = append(keys, app.String())
	}

	return keys
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	appsStatusCmd.Flags().BoolVar(&verify, "verify", false, "compare launcher entries with the container contents")
	appsCmd.AddCommand(appsListCmd, appsToggleCmd, appsStatusCmd)
}
