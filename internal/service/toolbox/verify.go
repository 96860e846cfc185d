package toolbox

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/ini/v2"

	domain "github.com/treeos-project/treeos-control/internal/domain/toolbox"
	"github.com/treeos-project/treeos-control/internal/service/runner"
)

// Drift compares the launcher entry of an application with the container contents.
type Drift struct {
	App domain.App
	// Marker is set when the launcher entry exists.
	Marker bool
	// Container is set when the managed container exists.
	Container bool
	// Package is set when the package is installed in the container.
	Package bool
	// Exec is the launch command found in the launcher entry.
	Exec string
	// ExpectedExec is the launch command the entry should have.
	ExpectedExec string
}

// Drifted reports whether the marker disagrees with the container.
func (d Drift) Drifted() bool {
	if d.Marker != (d.Container && d.Package) {
		return true
	}

	return d.Marker && d.Exec != d.ExpectedExec
}

// Reason describes the drift in one sentence, empty when there is none.
func (d Drift) Reason() string {
	name := d.App.Spec().Name

	switch {
	case !d.Drifted():
		return ""
	case d.Marker && !d.Container:
		return fmt.Sprintf("%s has a launcher entry but the container is missing", name)
	case d.Marker && !d.Package:
		return fmt.Sprintf("%s has a launcher entry but its package is not installed", name)
	case !d.Marker:
		return fmt.Sprintf("%s is installed in the container but has no launcher entry", name)
	default:
		return fmt.Sprintf("%s launcher entry runs %q instead of %q", name, d.Exec, d.ExpectedExec)
	}
}

// Verify checks app against the container. It never changes the launcher entry.
func (m *Manager) Verify(ctx context.Context, app domain.App) (Drift, error) {
	drift := Drift{
		App:          app,
		Marker:       m.IsInstalled(app),
		ExpectedExec: app.Exec(m.container),
	}

	if drift.Marker {
		exec, err := readExec(m.MarkerPath(app))
		if err != nil {
			return drift, err
		}

		drift.Exec = exec
	}

	exists, err := m.ContainerExists(ctx, m.container)
	if err != nil {
		return drift, err
	}

	drift.Container = exists
	if !exists {
		return drift, nil
	}

	query := m.toolboxCommand("run", "--container", m.container, "rpm", "-q", app.Spec().Package)

	err = m.runner.Check(ctx, query)
	switch {
	case err == nil:
		drift.Package = true
	case runner.IsExitError(err):
		drift.Package = false
	default:
		return drift, fmt.Errorf("query package %s: %w", app.Spec().Package, err)
	}

	return drift, nil
}

// readExec returns the Exec key of a launcher entry.
func readExec(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read launcher entry: %w", err)
	}

	entry := ini.New()
	if err = entry.LoadStrings(string(contents)); err != nil {
		return "", fmt.Errorf("parse launcher entry %s: %w", path, err)
	}

	return strings.TrimSpace(entry.String("Desktop Entry.Exec")), nil
}
