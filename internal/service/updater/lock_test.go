package updater

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLock_Exclusive verifies a second acquire fails until the first is released.
func TestLock_Exclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lock := NewLock(filepath.Join(t.TempDir(), "update.lock"), false)

	require.NoError(t, lock.Acquire(ctx))
	require.True(t, lock.Held())

	owner, err := lock.Owner()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), owner)

	require.ErrorIs(t, lock.Acquire(ctx), ErrAlreadyRunning)

	lock.Release(ctx)
	require.False(t, lock.Held())
	require.NoError(t, lock.Acquire(ctx))

	lock.Release(ctx)
	lock.Release(ctx)
}

// TestLock_RacingAcquire lets exactly one of many goroutines win.
func TestLock_RacingAcquire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "update.lock")

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if NewLock(path, false).Acquire(ctx) == nil {
				wins.Add(1)
			}
		}()
	}

	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

// TestLock_ReclaimStale removes a marker left by a process that no longer exists.
func TestLock_ReclaimStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "update.lock")

	// Above the kernel pid limit, so no such process can exist.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(99999999)), 0o600))

	require.ErrorIs(t, NewLock(path, false).Acquire(ctx), ErrAlreadyRunning)

	lock := NewLock(path, true)
	require.NoError(t, lock.Acquire(ctx))

	owner, err := lock.Owner()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), owner)
}

// TestLock_KeepsLiveOwner never reclaims a marker whose owner is running.
func TestLock_KeepsLiveOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "update.lock")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600))

	require.ErrorIs(t, NewLock(path, true).Acquire(ctx), ErrAlreadyRunning)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	require.ErrorIs(t, NewLock(path, true).Acquire(ctx), ErrAlreadyRunning)
}
