package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/service/checker"
	"github.com/treeos-project/treeos-control/internal/version"
)

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// logLevel overrides the level from the settings.
	logLevel string
	// interval overrides the check interval from the settings.
	interval time.Duration
	// once runs a single check.
	once bool
	// force ignores the check frequency.
	force bool

	// rootCmd represents the base command for automatic updates.
	rootCmd = &cobra.Command{
		Use:   "treeos-checker",
		Short: "Apply system updates automatically in the background.",
		Long: `Background service that keeps the system image up to date.

Wakes up on a fixed interval and whenever a new release descriptor is published.
An update runs only when automatic updates are enabled and the configured check
frequency (daily, weekly or monthly) has elapsed since the last check. Manual
updates and the checker share one lock, so they never run at the same time.
The outcome is reported with a desktop notification.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if logLevel != "" {
				if err := logger.SetLevelName(logLevel); err != nil {
					return err
				}
			}

			options := &checker.Options{
				ConfigPath: configPath,
				Interval:   interval,
				Once:       once,
				Force:      force,
				LogLevel:   logLevel,
			}

			return checker.Run(ctx, options)
		},
	}
)

// Execute runs the treeos-checker CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to settings file (default ~/.local/share/applications/treeos-control/treeos-control.yaml)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", 0, "time between checks (default from settings)")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single check and exit")
	rootCmd.Flags().BoolVar(&force, "force", false, "ignore the check frequency")
}
