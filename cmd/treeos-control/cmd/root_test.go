package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	require.NoError(t, rootCmd.Execute(), out.String())

	return out.String()
}

// TestPreferencesCommands sets a preference and reads it back through the CLI.
func TestPreferencesCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := run(t, "config", "show")
	require.Contains(t, out, "CHECK_FREQUENCY=daily\n")

	run(t, "config", "set", "check_frequency", "weekly")
	run(t, "config", "set", "AUTO_UPDATES_ENABLED", "false")

	out = run(t, "config", "show")
	require.Contains(t, out, "CHECK_FREQUENCY=weekly\n")
	require.Contains(t, out, "AUTO_UPDATES_ENABLED=false\n")

	rootCmd.SetArgs([]string{"config", "set", "first_boot", "maybe"})
	require.Error(t, rootCmd.Execute())
}

// TestSettingsCommands prints and initialises the settings file.
func TestSettingsCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := run(t, "config", "settings")
	require.Contains(t, out, "container: treeossecure")

	out = run(t, "config", "init")
	require.Contains(t, out, "Settings written to ")

	out = run(t, "config", "init")
	require.Contains(t, out, "Settings already exist at ")
}

// TestAppsList shows every catalog application as not installed in a fresh home.
func TestAppsList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := run(t, "apps")
	require.Contains(t, out, "Install PyCharm")
	require.Contains(t, out, "Install VS Code")
	require.Contains(t, out, "Install Anaconda")
}

// TestManualMissing reports a missing manual without failing.
func TestManualMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := run(t, "manual")
	require.Contains(t, out, "The user manual is not installed at ")
}
