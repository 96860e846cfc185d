package updater

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/treeos-project/treeos-control/internal/logger"
)

// ErrAlreadyRunning is returned when the update lock is held.
var ErrAlreadyRunning = errors.New("an update is already running")

// lockPermissions lets other users on the machine see the marker.
const lockPermissions = 0o644

// Lock is a marker file whose presence means an update is running. It contains the
// owner's process id for diagnostics only.
type Lock struct {
	path         string
	reclaimStale bool
}

// NewLock returns a lock at path. With reclaimStale a marker whose owner process no
// longer exists is removed instead of blocking.
func NewLock(path string, reclaimStale bool) *Lock {
	return &Lock{
		path:         filepath.Clean(path),
		reclaimStale: reclaimStale,
	}
}

// Path returns the marker location.
func (l *Lock) Path() string {
	return l.path
}

// Held reports whether the marker exists.
func (l *Lock) Held() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Acquire creates the marker. Creation is exclusive, so of two racing callers exactly one
// wins; the other gets ErrAlreadyRunning. There is no waiting or queuing.
func (l *Lock) Acquire(ctx context.Context) error {
	err := l.create()
	if !errors.Is(err, fs.ErrExist) {
		return err
	}

	if l.reclaimStale && l.removeIfStale(ctx) {
		err = l.create()
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
	}

	return ErrAlreadyRunning
}

func (l *Lock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockPermissions)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}

		return fmt.Errorf("create update lock: %w", err)
	}

	_, writeErr := f.WriteString(strconv.Itoa(os.Getpid()))
	closeErr := f.Close()

	if err = errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(l.path)
		return fmt.Errorf("write update lock: %w", err)
	}

	return nil
}

// Release removes the marker. A missing marker is not an error.
func (l *Lock) Release(ctx context.Context) {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.ErrorKV(ctx, "Unable to remove update lock", "path", l.path, "error", err)
		return
	}

	logger.DebugKV(ctx, "Update lock released", "path", l.path)
}

// Owner returns the process id written in the marker.
func (l *Lock) Owner() (int, error) {
	contents, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(string(contents)))
}

// removeIfStale deletes the marker when its owner process is gone. An unreadable owner
// is treated as alive.
func (l *Lock) removeIfStale(ctx context.Context) bool {
	pid, err := l.Owner()
	if err != nil {
		logger.WarnKV(ctx, "Update lock owner unknown, keeping lock", "path", l.path, "error", err)
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process != nil {
		return false
	}

	logger.InfoKV(ctx, "Update lock owner is gone, removing stale lock", "path", l.path, "pid", pid)

	if err = os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.ErrorKV(ctx, "Unable to remove stale update lock", "path", l.path, "error", err)
		return false
	}

	return true
}
