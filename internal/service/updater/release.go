package updater

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/gookit/ini/v2"
)

// Decision is the outcome of comparing the release descriptor with the system.
type Decision int

const (
	// NoRelease means no descriptor was published.
	NoRelease Decision = iota
	// AlreadyStored means the descriptor equals the stored version.
	AlreadyStored
	// MatchesRunning means the descriptor names the version the system already runs.
	MatchesRunning
	// NeedsRebase means the system must be rebased to the descriptor.
	NeedsRebase
)

func (d Decision) String() string {
	switch d {
	case NoRelease:
		return "no-release"
	case AlreadyStored:
		return "already-stored"
	case MatchesRunning:
		return "matches-running"
	case NeedsRebase:
		return "needs-rebase"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// versionSegment matches a slash-delimited integer such as the 41 in "fedora/41/x86_64".
var versionSegment = regexp.MustCompile(`/(\d+)/`)

// ExtractVersion returns the first slash-delimited integer segment of descriptor.
func ExtractVersion(descriptor string) (string, bool) {
	m := versionSegment.FindStringSubmatch(descriptor)
	if m == nil {
		return "", false
	}

	return m[1], true
}

// Decide chooses whether a rebase is needed. An empty or already stored descriptor never
// rebases. Otherwise a descriptor whose version segment equals running is considered
// current; a descriptor without a segment always rebases.
func Decide(descriptor, stored, running string) Decision {
	switch {
	case descriptor == "":
		return NoRelease
	case descriptor == stored:
		return AlreadyStored
	}

	if version, ok := ExtractVersion(descriptor); ok && version == running {
		return MatchesRunning
	}

	return NeedsRebase
}

// ReadDescriptor returns the first non-empty line of the release descriptor. A missing
// file yields an empty descriptor.
func ReadDescriptor(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("read release descriptor: %w", err)
	}

	for _, line := range strings.Split(string(contents), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}

	return "", nil
}

// RunningVersion reads VERSION_ID from an os-release file.
func RunningVersion(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read os-release: %w", err)
	}

	data := ini.New()
	if err = data.LoadStrings(string(contents)); err != nil {
		return "", fmt.Errorf("parse os-release: %w", err)
	}

	return strings.Trim(strings.TrimSpace(data.String("VERSION_ID")), `"'`), nil
}
