package toolbox

import (
	"errors"
	"fmt"
	"strings"
)

// App identifies one application of the managed catalog.
type App int

const (
	// PyCharm is the PyCharm Community IDE.
	PyCharm App = iota
	// VSCode is Visual Studio Code.
	VSCode
	// Anaconda is the Anaconda Python distribution.
	Anaconda
)

// ErrUnknownApp is returned when a key does not name a catalog application.
var ErrUnknownApp = errors.New("unknown application")

// Spec is the data describing how an application is installed and launched.
type Spec struct {
	// Key is the stable identifier used on the command line.
	Key string
	// Package is the package name inside the container; it is also the launch command.
	Package string
	// DesktopFile is the file name of the launcher entry.
	DesktopFile string
	// Name is the display name.
	Name string
	// Comment is the launcher tooltip.
	Comment string
	// Icon is the icon name.
	Icon string
	// Categories are the launcher categories.
	Categories []string
	// InstallScript runs inside the container with bash.
	InstallScript string
	// UninstallScript runs inside the container with bash.
	UninstallScript string
}

const vscodeRepo = `[code]
name=Visual Studio Code
baseurl=https://packages.microsoft.com/yumrepos/vscode
enabled=1
type=rpm-md
gpgcheck=1
gpgkey=https://packages.microsoft.com/keys/microsoft.asc`

//nolint:gochecknoglobals // Read-only lookup table for a closed enum.
var catalog = map[App]Spec{
	PyCharm: {
		Key:             "pycharm",
		Package:         "pycharm-community",
		DesktopFile:     "pycharm-toolbox.desktop",
		Name:            "PyCharm (Toolbox)",
		Comment:         "IDE for Python Development",
		Icon:            "pycharm",
		Categories:      []string{"Development", "IDE"},
		InstallScript:   "sudo dnf copr enable -y phracek/PyCharm && sudo dnf install -y pycharm-community",
		UninstallScript: "sudo dnf remove -y pycharm-community",
	},
	VSCode: {
		Key:         "vscode",
		Package:     "code",
		DesktopFile: "vscode-toolbox.desktop",
		Name:        "VS Code (Toolbox)",
		Comment:     "Code Editor",
		Icon:        "code",
		Categories:  []string{"Development", "IDE"},
		InstallScript: "sudo rpm --import https://packages.microsoft.com/keys/microsoft.asc && " +
			"printf '%s\\n' '" + vscodeRepo + "' | sudo tee /etc/yum.repos.d/vscode.repo > /dev/null && " +
			"sudo dnf install -y code",
		UninstallScript: "sudo dnf remove -y code",
	},
	Anaconda: {
		Key:             "anaconda",
		Package:         "anaconda",
		DesktopFile:     "anaconda-toolbox.desktop",
		Name:            "Anaconda (Toolbox)",
		Comment:         "Python Distribution",
		Icon:            "anaconda",
		Categories:      []string{"Development", "IDE"},
		InstallScript:   "sudo dnf install -y anaconda",
		UninstallScript: "sudo dnf remove -y anaconda",
	},
}

// Apps returns the catalog in display order.
func Apps() []App {
	return []App{PyCharm, VSCode, Anaconda}
}

// Parse resolves a catalog key such as "vscode".
func Parse(key string) (App, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, app := range Apps() {
		if catalog[app].Key == key {
			return app, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownApp, key)
}

// Spec returns the catalog row of a.
func (a App) Spec() Spec {
	return catalog[a]
}

// String returns the catalog key.
func (a App) String() string {
	if s, ok := catalog[a]; ok {
		return s.Key
	}

	return fmt.Sprintf("App(%d)", int(a))
}

// Label is the text of the button toggling a.
func (a App) Label(installed bool) string {
	short := strings.TrimSuffix(a.Spec().Name, " (Toolbox)")
	if installed {
		return "Uninstall " + short
	}

	return "Install " + short
}

// DesktopEntry renders the launcher entry for a running inside container.
func (a App) DesktopEntry(container string) string {
	s := a.Spec()

	var b strings.Builder

	b.WriteString("[Desktop Entry]\n")
	fmt.Fprintf(&b, "Name=%s\n", s.Name)
	fmt.Fprintf(&b, "Comment=%s\n", s.Comment)
	fmt.Fprintf(&b, "Exec=%s\n", a.Exec(container))
	fmt.Fprintf(&b, "Icon=%s\n", s.Icon)
	b.WriteString("Terminal=false\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Categories=%s;\n", strings.Join(s.Categories, ";"))

	return b.String()
}

// Exec is the launch command line of a inside container.
func (a App) Exec(container string) string {
	return fmt.Sprintf("toolbox run --container %s %s %%F", container, a.Spec().Package)
}
