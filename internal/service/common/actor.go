//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"os/user"
)

// User identifies the desktop user the binaries act for.
type User struct {
	// Username is the login name.
	Username string
	// HomeDir is the home directory all per-user paths derive from.
	HomeDir string
}

var errNoHomeDir = errors.New("home directory is unknown")

// DetectUser returns the current user. $HOME wins over the passwd entry so that
// sessions with a relocated home (such as /var/home on image-based systems) keep it.
func DetectUser() (*User, error) {
	current, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	home := os.Getenv("HOME")
	if home == "" {
		home = current.HomeDir
	}

	if home == "" {
		return nil, errNoHomeDir
	}

	return &User{
		Username: current.Username,
		HomeDir:  home,
	}, nil
}
