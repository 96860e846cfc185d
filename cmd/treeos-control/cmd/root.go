package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/treeos-project/treeos-control/internal/config"
	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/repository/preferences"
	"github.com/treeos-project/treeos-control/internal/service/common"
	"github.com/treeos-project/treeos-control/internal/service/desktop"
	"github.com/treeos-project/treeos-control/internal/service/runner"
	"github.com/treeos-project/treeos-control/internal/service/toolbox"
	"github.com/treeos-project/treeos-control/internal/service/updater"
	"github.com/treeos-project/treeos-control/internal/version"
)

// environment holds the services built once per invocation.
type environment struct {
	settingsPath string
	cfg          *config.Config
	prefs        *preferences.FileRepository
	updates      *updater.Orchestrator
	toolbox      *toolbox.Manager
	desktop      *desktop.Desktop
}

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// logLevel overrides the level from the settings.
	logLevel string

	// env is filled before any subcommand runs.
	env *environment

	// rootCmd represents the base command of the control panel.
	rootCmd = &cobra.Command{
		Use:   "treeos-control",
		Short: "Manage system updates and development tools of a TreeOS workstation.",
		Long: `Control panel for TreeOS workstations.

Runs manual image updates (package upgrade followed by a rebase when a new release
is published), manages the update preferences used by the background checker, and
installs development applications into a toolbox container with launcher entries
on the host.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// setup loads the settings and wires the services.
func setup(_ *cobra.Command, _ []string) error {
	if logLevel != "" {
		if err := logger.SetLevelName(logLevel); err != nil {
			return err
		}
	}

	user, err := common.DetectUser()
	if err != nil {
		return fmt.Errorf("detect user: %w", err)
	}

	settingsPath := configPath
	if settingsPath == "" {
		settingsPath = config.DefaultPath(user.HomeDir)
	}

	cfg, err := config.Load(settingsPath, user.HomeDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if logLevel == "" {
		if err = logger.SetLevelName(cfg.LogLevel); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
	}

	exec := runner.NewExec()
	prefs := preferences.NewFileRepository(cfg.PreferencesFile)

	env = &environment{
		settingsPath: settingsPath,
		cfg:          cfg,
		prefs:        prefs,
		updates:      updater.New(cfg, exec, prefs),
		toolbox:      toolbox.New(cfg, exec),
		desktop:      desktop.New(cfg, exec),
	}

	return nil
}

// Execute runs the treeos-control CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to settings file (default ~/.local/share/applications/treeos-control/treeos-control.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(configCmd, updateCmd, appsCmd, containerCmd, manualCmd)
}
