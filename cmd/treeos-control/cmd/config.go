package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/treeos-project/treeos-control/internal/config"
	"github.com/treeos-project/treeos-control/internal/repository/preferences"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show and change update preferences.",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the update preferences, defaults included.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current := env.prefs.Read(cmd.Context())
			_, err := cmd.OutOrStdout().Write(preferences.Format(current))

			return err
		},
	}

	configSetCmd = &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one update preference.",
		Long: `Changes one update preference in place; other lines of the file are kept.

Keys: AUTO_UPDATES_ENABLED, CHECK_FREQUENCY (daily, weekly, monthly),
EXTENSIONS_ENABLED, FIRST_BOOT, LAST_UPDATE_CHECK (unix time), STORED_VERSION.
Keys are case-insensitive.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // KEY and VALUE.
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := preferences.ParseField(args[0], args[1])
			if err != nil {
				return err
			}

			return env.prefs.Write(cmd.Context(), field)
		},
	}

	configSettingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Print the effective application settings as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(env.cfg)
			if err != nil {
				return fmt.Errorf("marshal settings: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the settings file if it does not exist.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(env.settingsPath); err == nil {
				printLine(cmd.OutOrStdout(), "Settings already exist at "+env.settingsPath)
				return nil
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := config.Save(env.settingsPath, env.cfg); err != nil {
				return err
			}

			printLine(cmd.OutOrStdout(), "Settings written to "+env.settingsPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configSettingsCmd, configInitCmd)
}
