package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/treeos-project/treeos-control/internal/domain/toolbox"
	"github.com/treeos-project/treeos-control/internal/progress"
	"github.com/treeos-project/treeos-control/internal/service/runner"
	"github.com/treeos-project/treeos-control/internal/service/toolbox"
)

func newToolboxSandbox(t *testing.T) (*sandbox, *toolbox.Manager) {
	t.Helper()

	s := newSandbox(t)
	s.script(t, "toolbox", toolboxScript)
	s.script(t, "podman", podmanScript)
	s.script(t, "sudo", sudoScript)
	s.script(t, "rpm", rpmScript)

	return s, toolbox.New(s.cfg, runner.NewExec())
}

// TestToggle_InstallAndUninstall creates the container on first use and keeps launcher
// entries in step with the packages.
func TestToggle_InstallAndUninstall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, m := newToolboxSandbox(t)
	rec := &progress.Recorder{}

	res, err := m.Toggle(ctx, domain.VSCode, rec)
	require.NoError(t, err)
	require.True(t, res.Installed)
	require.Contains(t, rec.Lines(), "Created container: treeossecure")
	require.Contains(t, rec.Lines(), "Complete!")
	require.FileExists(t, filepath.Join(s.state, "pkg-code"))
	require.Contains(t, s.commands(t), "podman pull --quiet "+s.cfg.Toolbox.Image)

	drift, err := m.Verify(ctx, domain.VSCode)
	require.NoError(t, err)
	require.False(t, drift.Drifted(), drift.Reason())

	res, err = m.Toggle(ctx, domain.VSCode, progress.Discard)
	require.NoError(t, err)
	require.False(t, res.Installed)
	require.NoFileExists(t, filepath.Join(s.state, "pkg-code"))
	require.NoFileExists(t, m.MarkerPath(domain.VSCode))
}

// TestToggle_FailedInstall leaves no launcher entry.
func TestToggle_FailedInstall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, m := newToolboxSandbox(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.state, "install-fails"), nil, 0o600))

	rec := &progress.Recorder{}

	res, err := m.Toggle(ctx, domain.PyCharm, rec)
	require.Error(t, err)
	require.False(t, res.Installed)
	require.False(t, m.IsInstalled(domain.PyCharm))
	require.Contains(t, rec.Lines(), "Error: Unable to find a match: pycharm-community")
}

// TestRemoveContainer_LeavesDrift removes the container and lets Verify find the stale
// launcher entry.
func TestRemoveContainer_LeavesDrift(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, m := newToolboxSandbox(t)

	_, err := m.Toggle(ctx, domain.Anaconda, progress.Discard)
	require.NoError(t, err)

	require.NoError(t, m.RemoveContainer(ctx, m.Container(), progress.Discard))
	require.ErrorIs(t, m.RemoveContainer(ctx, m.Container(), progress.Discard), toolbox.ErrContainerNotFound)

	drift, err := m.Verify(ctx, domain.Anaconda)
	require.NoError(t, err)
	require.True(t, drift.Drifted())
	require.False(t, drift.Container)
	require.True(t, m.IsInstalled(domain.Anaconda))
}
