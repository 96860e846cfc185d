package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the paths and external commands shared by the treeos binaries.
type Config struct {
	// BaseDir is the per-user directory holding preferences, manual and release descriptor.
	BaseDir string `yaml:"base_dir"`
	// PreferencesFile is the KEY=value preferences file.
	PreferencesFile string `yaml:"preferences_file"`
	// ReleaseFile is the latest-release descriptor dropped by the publisher.
	ReleaseFile string `yaml:"release_file"`
	// ManualFile is the user manual opened from the help page.
	ManualFile string `yaml:"manual_file"`
	// LockFile marks a running update.
	LockFile string `yaml:"lock_file"`
	// ReclaimStaleLock removes a lock whose owner process is gone.
	ReclaimStaleLock bool `yaml:"reclaim_stale_lock"`
	// OSReleaseFile is read for the running VERSION_ID.
	OSReleaseFile string `yaml:"os_release_file"`
	// ApplicationsDir is where desktop entries of managed applications are written.
	ApplicationsDir string `yaml:"applications_dir"`
	// Update holds the image update commands.
	Update UpdateCommands `yaml:"update"`
	// Toolbox describes the development container.
	Toolbox Toolbox `yaml:"toolbox"`
	// NotifyCommand sends a desktop notification; title and body are appended.
	NotifyCommand []string `yaml:"notify_command"`
	// OpenCommand opens a document with the desktop default handler.
	OpenCommand []string `yaml:"open_command"`
	// CheckInterval is how often the checker evaluates whether an automatic update is due.
	CheckInterval time.Duration `yaml:"check_interval"`
	// LogLevel is the minimum level written by the logger.
	LogLevel string `yaml:"log_level"`
}

// UpdateCommands are the argument vectors of the image update steps.
type UpdateCommands struct {
	// Upgrade applies package-level upgrades.
	Upgrade []string `yaml:"upgrade"`
	// Rebase switches the image; the release descriptor is appended.
	Rebase []string `yaml:"rebase"`
}

// Toolbox describes the managed development container.
type Toolbox struct {
	// Container is the container name.
	Container string `yaml:"container"`
	// Image is pulled before the container is created.
	Image string `yaml:"image"`
	// Command is the toolbox CLI; subcommands such as "list" or "run" are appended.
	Command []string `yaml:"command"`
	// Pull fetches the image; the image reference is appended.
	Pull []string `yaml:"pull"`
	// Terminal launches an interactive shell; the toolbox command and "enter <container>" are appended.
	Terminal []string `yaml:"terminal"`
}

const (
	// DefaultConfigFilename is the settings file name inside BaseDir.
	DefaultConfigFilename = "treeos-control.yaml"

	// DefaultPreferencesFilename is the preferences file name inside BaseDir.
	DefaultPreferencesFilename = "update_config.conf"

	// DefaultLockFile is shared by every update trigger on the machine.
	DefaultLockFile = "/tmp/treeos_update.lock"

	// DefaultOSReleaseFile is the standard os-release location.
	DefaultOSReleaseFile = "/etc/os-release"

	// DefaultContainer is the name of the development toolbox.
	DefaultContainer = "treeossecure"

	// DefaultImage is the toolbox base image.
	DefaultImage = "registry.fedoraproject.org/fedora-toolbox"

	// DefaultCheckInterval is how often the checker wakes up.
	DefaultCheckInterval = time.Hour

	// DefaultFilePermissions is used for files owned by the user.
	DefaultFilePermissions = 0o644

	// DefaultDirPermissions is used for directories created by the binaries.
	DefaultDirPermissions = 0o755

	// baseDirSuffix is BaseDir relative to the home directory.
	baseDirSuffix = ".local/share/applications/treeos-control"
	// applicationsSuffix is the launcher directory relative to the home directory.
	applicationsSuffix = ".local/share/applications"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHomeRequired is returned when defaults cannot be derived.
	errHomeRequired = errors.New("home directory must be provided")
	// errEmptyCommand is returned when a required command vector is empty.
	errEmptyCommand = errors.New("command must not be empty")
	// errBadContainerName is returned for names the toolbox CLI would reject.
	errBadContainerName = errors.New("invalid container name")
)

// Default returns the settings for a user whose home directory is home.
func Default(home string) *Config {
	baseDir := filepath.Join(home, baseDirSuffix)

	return &Config{
		BaseDir:         baseDir,
		PreferencesFile: filepath.Join(baseDir, DefaultPreferencesFilename),
		ReleaseFile:     filepath.Join(baseDir, "latest-release"),
		ManualFile:      filepath.Join(baseDir, "treeosmanual.pdf"),
		LockFile:        DefaultLockFile,
		OSReleaseFile:   DefaultOSReleaseFile,
		ApplicationsDir: filepath.Join(home, applicationsSuffix),
		Update: UpdateCommands{
			Upgrade: []string{"rpm-ostree", "upgrade"},
			Rebase:  []string{"rpm-ostree", "rebase"},
		},
		Toolbox: Toolbox{
			Container: DefaultContainer,
			Image:     DefaultImage,
			Command:   []string{"toolbox"},
			Pull:      []string{"podman", "pull", "--quiet"},
			Terminal:  []string{"ptyxis", "--"},
		},
		NotifyCommand: []string{"notify-send", "--app-name=TreeOS"},
		OpenCommand:   []string{"xdg-open"},
		CheckInterval: DefaultCheckInterval,
		LogLevel:      "info",
	}
}

// DefaultPath returns the settings file location for the given home directory.
func DefaultPath(home string) string {
	return filepath.Join(home, baseDirSuffix, DefaultConfigFilename)
}

// Load reads settings from path on top of the defaults for home.
// A missing file is not an error: the defaults are returned.
func Load(path, home string) (*Config, error) {
	if home == "" {
		return nil, errHomeRequired
	}

	if path == "" {
		path = DefaultPath(home)
	}

	cfg := Default(home)

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	// Paths under BaseDir follow base_dir unless the file sets them.
	cfg.PreferencesFile, cfg.ReleaseFile, cfg.ManualFile = "", "", ""

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg, home); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields from the defaults for home and rejects unusable values.
//
//nolint:cyclop // A flat list of defaults reads better than a table here.
func Validate(cfg *Config, home string) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	def := Default(home)

	if cfg.BaseDir == "" {
		cfg.BaseDir = def.BaseDir
	}

	if cfg.PreferencesFile == "" {
		cfg.PreferencesFile = filepath.Join(cfg.BaseDir, DefaultPreferencesFilename)
	}

	if cfg.ReleaseFile == "" {
		cfg.ReleaseFile = filepath.Join(cfg.BaseDir, "latest-release")
	}

	if cfg.ManualFile == "" {
		cfg.ManualFile = filepath.Join(cfg.BaseDir, "treeosmanual.pdf")
	}

	if cfg.LockFile == "" {
		cfg.LockFile = def.LockFile
	}

	if cfg.OSReleaseFile == "" {
		cfg.OSReleaseFile = def.OSReleaseFile
	}

	if cfg.ApplicationsDir == "" {
		cfg.ApplicationsDir = def.ApplicationsDir
	}

	if cfg.Toolbox.Container == "" {
		cfg.Toolbox.Container = def.Toolbox.Container
	}

	if strings.ContainsAny(cfg.Toolbox.Container, " \t\n/") {
		return fmt.Errorf("%w: %q", errBadContainerName, cfg.Toolbox.Container)
	}

	if cfg.Toolbox.Image == "" {
		cfg.Toolbox.Image = def.Toolbox.Image
	}

	if len(cfg.Toolbox.Command) == 0 {
		cfg.Toolbox.Command = def.Toolbox.Command
	}

	if len(cfg.Toolbox.Pull) == 0 {
		cfg.Toolbox.Pull = def.Toolbox.Pull
	}

	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}

	if len(cfg.Update.Upgrade) == 0 || len(cfg.Update.Rebase) == 0 {
		return fmt.Errorf("update commands: %w", errEmptyCommand)
	}

	return nil
}
