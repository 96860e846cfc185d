package toolbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/progress"
	"github.com/treeos-project/treeos-control/internal/service/runner"
)

// ErrContainerNotFound is returned when removing a container that does not exist.
var ErrContainerNotFound = errors.New("container not found")

var errContainerCommand = errors.New("container command failed")

// ContainerExists reports whether toolbox lists a container called name.
func (m *Manager) ContainerExists(ctx context.Context, name string) (bool, error) {
	out, err := m.runner.Output(ctx, m.toolboxCommand("list", "--containers"))
	if err != nil {
		return false, fmt.Errorf("list containers: %w", err)
	}

	return listed(out, name), nil
}

// listed looks for name in the CONTAINER NAME column of a toolbox listing.
func listed(out, name string) bool {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == "CONTAINER" {
			continue
		}

		if fields[1] == name {
			return true
		}
	}

	return false
}

// EnsureContainer creates the container when it does not exist. Calling it for an
// existing container only lists containers.
func (m *Manager) EnsureContainer(ctx context.Context, name string, pub progress.Publisher) error {
	ctx = logger.WithKV(ctx, "container", name)

	exists, err := m.ContainerExists(ctx, name)
	if err != nil {
		return err
	}

	if exists {
		logger.DebugKV(ctx, "Container already exists")
		return nil
	}

	progress.Publishf(pub, "Creating container %s...", name)
	logger.InfoKV(ctx, "Creating container", "image", m.image)

	if err = m.stream(ctx, runner.New(append(append([]string{}, m.pull...), m.image)...), pub); err != nil {
		pub.Publish("Unable to download the container image.")
		return fmt.Errorf("pull %s: %w", m.image, err)
	}

	create := m.toolboxCommand("create", "--container", name, "--image", m.image)
	create.Stdin = "y\n"

	if err = m.stream(ctx, create, pub); err != nil {
		progress.Publishf(pub, "Unable to create container %s.", name)
		return fmt.Errorf("create container %s: %w", name, err)
	}

	progress.Publishf(pub, "Container %s created.", name)

	return nil
}

// RemoveContainer force-removes the container. Launcher entries of applications that
// were installed in it are left in place and reported.
func (m *Manager) RemoveContainer(ctx context.Context, name string, pub progress.Publisher) error {
	ctx = logger.WithKV(ctx, "container", name)

	exists, err := m.ContainerExists(ctx, name)
	if err != nil {
		return err
	}

	if !exists {
		progress.Publishf(pub, "Container %s does not exist.", name)
		return fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}

	progress.Publishf(pub, "Removing container %s...", name)

	if err = m.stream(ctx, m.toolboxCommand("rm", "--force", name), pub); err != nil {
		progress.Publishf(pub, "Unable to remove container %s.", name)
		return fmt.Errorf("remove container %s: %w", name, err)
	}

	progress.Publishf(pub, "Container %s removed.", name)

	if name != m.container {
		return nil
	}

	for _, status := range m.Status() {
		if !status.Installed {
			continue
		}

		logger.WarnKV(ctx, "Launcher entry outlived its container", "app", status.App.String(), "path", status.Marker)
		progress.Publishf(pub, "%s is still listed as installed but its container is gone.", status.App.Spec().Name)
	}

	return nil
}

// OpenShell launches a terminal inside the container. Failures are only logged.
func (m *Manager) OpenShell(ctx context.Context, name string) {
	argv := append(append(append([]string{}, m.terminal...), m.toolbox...), "enter", name)

	if err := m.runner.Start(ctx, runner.New(argv...)); err != nil {
		logger.ErrorKV(ctx, "Unable to open a shell in the container", "container", name, "error", err)
		return
	}

	logger.InfoKV(ctx, "Shell opened", "container", name)
}

// stream runs cmd forwarding its output and turns a non-zero exit into an error.
func (m *Manager) stream(ctx context.Context, cmd runner.Command, pub progress.Publisher) error {
	code, err := m.runner.Stream(ctx, cmd, pub.Publish)
	if err != nil {
		return err
	}

	if code != 0 {
		return fmt.Errorf("%w: %s exited with code %d", errContainerCommand, cmd.Name, code)
	}

	return nil
}
