package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treeos-project/treeos-control/internal/progress"
	"github.com/treeos-project/treeos-control/internal/repository/preferences"
	"github.com/treeos-project/treeos-control/internal/service/runner"
	"github.com/treeos-project/treeos-control/internal/service/updater"
)

const newRelease = "ostree-unverified-registry:ghcr.io/treeos/treeos/42/silverblue"

func runUpdate(t *testing.T, s *sandbox) ([]string, error) {
	t.Helper()

	prefs := preferences.NewFileRepository(s.cfg.PreferencesFile)
	orch := updater.New(s.cfg, runner.NewExec(), prefs)
	rec := &progress.Recorder{}

	task, err := orch.StartManualUpdate(context.Background(), rec)
	require.NoError(t, err)

	_, err = task.Wait(context.Background())
	require.False(t, orch.Lock().Held())

	return rec.Lines(), err
}

// TestManualUpdate_RebasesToNewRelease drives the real process runner through upgrade and
// rebase and checks the stored version.
func TestManualUpdate_RebasesToNewRelease(t *testing.T) {
	s := newSandbox(t)
	s.script(t, "rpm-ostree", rpmOstreeScript)
	require.NoError(t, os.WriteFile(s.cfg.ReleaseFile, []byte(newRelease+"\n"), 0o600))

	lines, err := runUpdate(t, s)
	require.NoError(t, err)
	require.Equal(t, []string{
		updater.MsgStarting,
		"Receiving metadata objects",
		"No upgrade available.",
		"Applying rebase to version: " + newRelease,
		"Rebasing to " + newRelease,
		"Staging deployment...done",
		"Rebase completed to version: " + newRelease,
		updater.MsgCompleted,
	}, lines)
	require.Equal(t, []string{"rpm-ostree upgrade", "rpm-ostree rebase " + newRelease}, s.commands(t))

	prefs := preferences.NewFileRepository(s.cfg.PreferencesFile)
	require.Equal(t, newRelease, prefs.Read(context.Background()).StoredVersion)

	// Running again finds nothing new.
	lines, err = runUpdate(t, s)
	require.NoError(t, err)
	require.Contains(t, lines, updater.MsgNoNewVersion)
	require.Len(t, s.commands(t), 3)
}

// TestManualUpdate_RebaseFailure shows the error output and keeps the stored version.
func TestManualUpdate_RebaseFailure(t *testing.T) {
	s := newSandbox(t)
	s.script(t, "rpm-ostree", rpmOstreeScript)
	require.NoError(t, os.WriteFile(filepath.Join(s.state, "rebase-fails"), nil, 0o600))
	require.NoError(t, os.WriteFile(s.cfg.ReleaseFile, []byte(newRelease+"\n"), 0o600))

	lines, err := runUpdate(t, s)
	require.Error(t, err)
	require.Contains(t, lines, "error: Could not pull image "+newRelease)
	require.Equal(t, "Failed to apply rebase to "+newRelease+".", lines[len(lines)-1])

	prefs := preferences.NewFileRepository(s.cfg.PreferencesFile)
	require.Empty(t, prefs.Read(context.Background()).StoredVersion)
}

// TestManualUpdate_MissingProgram reports the upgrade failure and still evaluates the
// release.
func TestManualUpdate_MissingProgram(t *testing.T) {
	s := newSandbox(t)
	s.cfg.Update.Upgrade = []string{filepath.Join(s.bin, "missing-rpm-ostree"), "upgrade"}

	lines, err := runUpdate(t, s)
	require.Error(t, err)
	require.Contains(t, lines, updater.MsgNoNewVersion)
	require.NotContains(t, lines, updater.MsgCompleted)
}
