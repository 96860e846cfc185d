package toolbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/treeos-project/treeos-control/internal/atomicfile"
	"github.com/treeos-project/treeos-control/internal/config"
	domain "github.com/treeos-project/treeos-control/internal/domain/toolbox"
	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/progress"
	"github.com/treeos-project/treeos-control/internal/service/runner"
)

// markerPermissions makes launcher entries executable, which some desktops require.
const markerPermissions = 0o755

// Action is what a toggle did.
type Action int

const (
	// Install installed the application.
	Install Action = iota
	// Uninstall removed the application.
	Uninstall
)

func (a Action) String() string {
	if a == Uninstall {
		return "uninstall"
	}

	return "install"
}

// Result is the state after a toggle, read back from disk.
type Result struct {
	App       domain.App
	Action    Action
	Installed bool
	Label     string
}

// AppStatus is the marker state of one catalog application.
type AppStatus struct {
	App       domain.App
	Installed bool
	Label     string
	Marker    string
}

// Manager runs container and application lifecycle commands.
type Manager struct {
	runner    runner.Runner
	appsDir   string
	container string
	image     string
	toolbox   []string
	pull      []string
	terminal  []string
	toggles   map[domain.App]*semaphore.Weighted
}

// New builds a manager from the validated configuration.
func New(cfg *config.Config, r runner.Runner) *Manager {
	toggles := make(map[domain.App]*semaphore.Weighted, len(domain.Apps()))
	for _, app := range domain.Apps() {
		toggles[app] = semaphore.NewWeighted(1)
	}

	return &Manager{
		runner:    r,
		appsDir:   cfg.ApplicationsDir,
		container: cfg.Toolbox.Container,
		image:     cfg.Toolbox.Image,
		toolbox:   cfg.Toolbox.Command,
		pull:      cfg.Toolbox.Pull,
		terminal:  cfg.Toolbox.Terminal,
		toggles:   toggles,
	}
}

// toolboxCommand appends args to the configured toolbox CLI.
func (m *Manager) toolboxCommand(args ...string) runner.Command {
	return runner.New(append(append([]string{}, m.toolbox...), args...)...)
}

// Container is the managed container name.
func (m *Manager) Container() string {
	return m.container
}

// MarkerPath is the launcher entry location of app.
func (m *Manager) MarkerPath(app domain.App) string {
	return filepath.Join(m.appsDir, app.Spec().DesktopFile)
}

// IsInstalled reports whether the launcher entry of app exists.
func (m *Manager) IsInstalled(app domain.App) bool {
	_, err := os.Stat(m.MarkerPath(app))
	return err == nil
}

// Status lists every catalog application with its marker state.
func (m *Manager) Status() []AppStatus {
	apps := domain.Apps()
	out := make([]AppStatus, 0, len(apps))

	for _, app := range apps {
		installed := m.IsInstalled(app)
		out = append(out, AppStatus{
			App:       app,
			Installed: installed,
			Label:     app.Label(installed),
			Marker:    m.MarkerPath(app),
		})
	}

	return out
}

// Toggle uninstalls app when it is installed and installs it otherwise. Toggles of the
// same application run one at a time; a caller waits for the previous one or for ctx.
func (m *Manager) Toggle(ctx context.Context, app domain.App, pub progress.Publisher) (Result, error) {
	sem, ok := m.toggles[app]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrUnknownApp, app)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		installed := m.IsInstalled(app)
		return Result{App: app, Installed: installed, Label: app.Label(installed)}, err
	}
	defer sem.Release(1)

	action := Install
	if m.IsInstalled(app) {
		action = Uninstall
	}

	ctx = logger.WithKV(logger.WithName(ctx, "toolbox"), "app", app.String(), "action", action.String())
	err := m.apply(ctx, app, action, pub)

	installed := m.IsInstalled(app)

	return Result{
		App:       app,
		Action:    action,
		Installed: installed,
		Label:     app.Label(installed),
	}, err
}

func (m *Manager) apply(ctx context.Context, app domain.App, action Action, pub progress.Publisher) error {
	spec := app.Spec()

	if err := m.EnsureContainer(ctx, m.container, pub); err != nil {
		logger.ErrorKV(ctx, "Container unavailable", "error", err)
		return err
	}

	script := spec.InstallScript
	if action == Uninstall {
		script = spec.UninstallScript
	}

	progress.Publishf(pub, "Running %s of %s...", action, spec.Name)

	cmd := m.toolboxCommand("run", "--container", m.container, "bash", "-c", script)
	if err := m.stream(ctx, cmd, pub); err != nil {
		logger.ErrorKV(ctx, "In-container command failed", "error", err)
		progress.Publishf(pub, "Failed to %s %s.", action, spec.Name)

		return fmt.Errorf("%s %s: %w", action, app, err)
	}

	if err := m.updateMarker(app, action); err != nil {
		logger.ErrorKV(ctx, "Unable to update launcher entry", "path", m.MarkerPath(app), "error", err)
		progress.Publishf(pub, "Unable to update the launcher entry of %s.", spec.Name)

		return err
	}

	if action == Install {
		progress.Publishf(pub, "%s installed.", spec.Name)
	} else {
		progress.Publishf(pub, "%s uninstalled.", spec.Name)
	}

	logger.Info(ctx, "Toggle completed")

	return nil
}

func (m *Manager) updateMarker(app domain.App, action Action) error {
	path := m.MarkerPath(app)

	if action == Install {
		if err := atomicfile.Write(path, []byte(app.DesktopEntry(m.container)), markerPermissions); err != nil {
			return fmt.Errorf("write launcher entry: %w", err)
		}

		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove launcher entry: %w", err)
	}

	return nil
}
