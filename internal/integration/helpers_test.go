package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treeos-project/treeos-control/internal/config"
)

// sandbox is a home directory with stand-in programs for the system tools.
type sandbox struct {
	home  string
	bin   string
	state string
	log   string
	cfg   *config.Config
}

// newSandbox prepares stand-ins and settings pointing at them. The running system
// reports VERSION_ID 41.
func newSandbox(t *testing.T) *sandbox {
	t.Helper()

	root := t.TempDir()
	s := &sandbox{
		home:  filepath.Join(root, "home"),
		bin:   filepath.Join(root, "bin"),
		state: filepath.Join(root, "state"),
		log:   filepath.Join(root, "commands.log"),
	}

	for _, dir := range []string{s.home, s.bin, s.state} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	s.cfg = config.Default(s.home)
	s.cfg.LockFile = filepath.Join(root, "treeos_update.lock")
	s.cfg.OSReleaseFile = filepath.Join(root, "os-release")
	s.cfg.Update.Upgrade = []string{filepath.Join(s.bin, "rpm-ostree"), "upgrade"}
	s.cfg.Update.Rebase = []string{filepath.Join(s.bin, "rpm-ostree"), "rebase"}
	s.cfg.NotifyCommand = []string{filepath.Join(s.bin, "notify-send")}
	s.cfg.Toolbox.Command = []string{filepath.Join(s.bin, "toolbox")}
	s.cfg.Toolbox.Pull = []string{filepath.Join(s.bin, "podman"), "pull", "--quiet"}

	require.NoError(t, os.MkdirAll(s.cfg.BaseDir, 0o755))
	require.NoError(t, os.WriteFile(s.cfg.OSReleaseFile, []byte("NAME=\"Fedora Linux\"\nVERSION_ID=41\n"), 0o600))

	return s
}

// script writes an executable stand-in. $LOG, $STATE and $BIN in body are replaced with
// the sandbox paths.
func (s *sandbox) script(t *testing.T, name, body string) {
	t.Helper()

	body = strings.NewReplacer("$LOG", s.log, "$STATE", s.state, "$BIN", s.bin).Replace(body)
	require.NoError(t, os.WriteFile(filepath.Join(s.bin, name), []byte("#!/bin/sh\n"+body), 0o755))
}

// commands returns the logged invocations of every stand-in.
func (s *sandbox) commands(t *testing.T) []string {
	t.Helper()

	contents, err := os.ReadFile(s.log)
	if os.IsNotExist(err) {
		return nil
	}

	require.NoError(t, err)

	return strings.Split(strings.TrimRight(string(contents), "\n"), "\n")
}

const rpmOstreeScript = `echo "rpm-ostree $*" >> "$LOG"
case "$1" in
upgrade)
	echo "Receiving metadata objects"
	echo "No upgrade available." ;;
rebase)
	if [ -f "$STATE/rebase-fails" ]; then
		echo "error: Could not pull image $2" >&2
		exit 1
	fi
	echo "Rebasing to $2"
	echo "Staging deployment...done" ;;
esac
`

const toolboxScript = `echo "toolbox $*" >> "$LOG"
PATH="$BIN:$PATH"
export PATH
case "$1" in
list)
	echo "CONTAINER ID  CONTAINER NAME  CREATED  STATUS   IMAGE NAME"
	if [ -f "$STATE/container" ]; then
		echo "1a2b3c4d5e6f  $(cat "$STATE/container")  now  running  fedora-toolbox:41"
	fi ;;
create)
	read answer
	[ "$answer" = y ] || exit 3
	echo "$3" > "$STATE/container"
	echo "Created container: $3" ;;
rm)
	rm -f "$STATE/container" "$STATE"/pkg-* ;;
run)
	shift 3
	if [ "$1" = bash ]; then
		shift
		exec sh "$@"
	fi
	exec "$@" ;;
esac
`

const sudoScript = `echo "sudo $*" >> "$LOG"
case "$1 $2" in
"dnf install")
	if [ -f "$STATE/install-fails" ]; then
		echo "Error: Unable to find a match: $4"
		exit 1
	fi
	touch "$STATE/pkg-$4"
	echo "Complete!" ;;
"dnf remove")
	rm -f "$STATE/pkg-$4"
	echo "Complete!" ;;
"tee "*)
	cat > /dev/null ;;
esac
`

const rpmScript = `if [ -f "$STATE/pkg-$2" ]; then
	echo "$2-1.0-1.fc41.x86_64"
else
	echo "package $2 is not installed"
	exit 1
fi
`

const podmanScript = `echo "podman $*" >> "$LOG"
`

const notifyScript = `printf '%s|%s\n' "$1" "$2" >> "$STATE/notifications"
`
