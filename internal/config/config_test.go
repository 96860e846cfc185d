package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoad_MissingFileReturnsDefaults checks that no settings file means defaults.
func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()

	cfg, err := Load(filepath.Join(home, "absent.yaml"), home)
	require.NoError(t, err)
	require.Equal(t, Default(home), cfg)
	require.Equal(t, filepath.Join(home, ".local/share/applications/treeos-control/update_config.conf"), cfg.PreferencesFile)
	require.Equal(t, DefaultLockFile, cfg.LockFile)
}

// TestValidate checks defaults filling and rejection of unusable values.
func TestValidate(t *testing.T) {
	t.Parallel()

	home := t.TempDir()

	require.Error(t, Validate(nil, home))

	cfg := &Config{BaseDir: "/srv/treeos"}
	cfg.Update = Default(home).Update

	require.NoError(t, Validate(cfg, home))
	require.Equal(t, "/srv/treeos/update_config.conf", cfg.PreferencesFile)
	require.Equal(t, DefaultContainer, cfg.Toolbox.Container)
	require.Equal(t, DefaultCheckInterval, cfg.CheckInterval)

	cfg.Toolbox.Container = "bad name"
	require.Error(t, Validate(cfg, home))

	cfg = &Config{}
	require.Error(t, Validate(cfg, home))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := filepath.Join(home, "nested", "settings.yaml")

	cfg := Default(home)
	cfg.Toolbox.Container = "devbox"
	cfg.CheckInterval = 15 * time.Minute
	cfg.ReclaimStaleLock = true

	require.NoError(t, Save(path, cfg))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path, home)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

// TestLoad_PartialFile keeps defaults for keys the file does not mention.
func TestLoad_PartialFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := filepath.Join(home, "settings.yaml")

	require.NoError(t, os.WriteFile(path, []byte("toolbox:\n  container: work\ncheck_interval: 30m\n"), 0o600))

	cfg, err := Load(path, home)
	require.NoError(t, err)
	require.Equal(t, "work", cfg.Toolbox.Container)
	require.Equal(t, DefaultImage, cfg.Toolbox.Image)
	require.Equal(t, 30*time.Minute, cfg.CheckInterval)
	require.Equal(t, []string{"rpm-ostree", "upgrade"}, cfg.Update.Upgrade)
}

// TestLoad_BaseDirMovesDerivedPaths places the preferences, release descriptor and manual
// under base_dir unless the file names them.
func TestLoad_BaseDirMovesDerivedPaths(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := filepath.Join(home, "settings.yaml")

	require.NoError(t, os.WriteFile(path, []byte("base_dir: /srv/treeos\n"), 0o600))

	cfg, err := Load(path, home)
	require.NoError(t, err)
	require.Equal(t, "/srv/treeos", cfg.BaseDir)
	require.Equal(t, "/srv/treeos/update_config.conf", cfg.PreferencesFile)
	require.Equal(t, "/srv/treeos/latest-release", cfg.ReleaseFile)
	require.Equal(t, "/srv/treeos/treeosmanual.pdf", cfg.ManualFile)
	require.Equal(t, filepath.Join(home, ".local/share/applications"), cfg.ApplicationsDir)

	require.NoError(t, os.WriteFile(path, []byte("base_dir: /srv/treeos\nmanual_file: /usr/share/doc/treeos.pdf\n"), 0o600))

	cfg, err = Load(path, home)
	require.NoError(t, err)
	require.Equal(t, "/usr/share/doc/treeos.pdf", cfg.ManualFile)
	require.Equal(t, "/srv/treeos/latest-release", cfg.ReleaseFile)
}

// TestLoad_ToolboxCommandDefaults keeps the toolbox and pull programs when the file
// only overrides the container.
func TestLoad_ToolboxCommandDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := filepath.Join(home, "settings.yaml")

	require.NoError(t, os.WriteFile(path, []byte("toolbox:\n  container: work\n  command: []\n"), 0o600))

	cfg, err := Load(path, home)
	require.NoError(t, err)
	require.Equal(t, []string{"toolbox"}, cfg.Toolbox.Command)
	require.Equal(t, []string{"podman", "pull", "--quiet"}, cfg.Toolbox.Pull)
}
