package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/treeos-project/treeos-control/internal/config"
	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/repository/preferences"
	"github.com/treeos-project/treeos-control/internal/service/common"
	"github.com/treeos-project/treeos-control/internal/service/desktop"
	"github.com/treeos-project/treeos-control/internal/service/runner"
	"github.com/treeos-project/treeos-control/internal/service/updater"
)

// Options controls the checker binary.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Interval overrides the check interval from the settings.
	Interval time.Duration
	// Once runs a single check and exits.
	Once bool
	// Force ignores the check frequency.
	Force bool
	// LogLevel is set when the level was given on the command line; otherwise the
	// settings decide.
	LogLevel string
}

// Run loads the settings and runs the checker until ctx ends.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "treeos-checker")

	user, err := common.DetectUser()
	if err != nil {
		return fmt.Errorf("detect user: %w", err)
	}

	cfg, err := config.Load(opts.ConfigPath, user.HomeDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.LogLevel == "" {
		if err = logger.SetLevelName(cfg.LogLevel); err != nil {
			logger.WarnKV(ctx, "Ignoring log level from settings", "error", err)
		}
	}

	if opts.Interval > 0 {
		cfg.CheckInterval = opts.Interval
	}

	exec := runner.NewExec()
	prefs := preferences.NewFileRepository(cfg.PreferencesFile)
	c := New(updater.New(cfg, exec, prefs), prefs, desktop.New(cfg, exec))

	if opts.Once {
		outcome, checkErr := c.Check(ctx, opts.Force)
		logger.InfoKV(ctx, "Check finished", "outcome", outcome.String())

		return checkErr
	}

	return c.Loop(ctx, cfg.CheckInterval, cfg.ReleaseFile)
}

// Loop checks immediately, then every interval and whenever releaseFile is written.
// Check failures are logged; Loop returns when ctx ends.
func (c *Checker) Loop(ctx context.Context, interval time.Duration, releaseFile string) error {
	g, ctx := errgroup.WithContext(ctx)
	released := make(chan struct{}, 1)

	g.Go(func() error {
		if err := watchRelease(ctx, releaseFile, released); err != nil {
			logger.WarnKV(ctx, "Release descriptor is not watched", "path", releaseFile, "error", err)
		}

		return nil
	})

	g.Go(func() error {
		logger.InfoKV(ctx, "Checking for updates", "interval", interval.String(), "release_file", releaseFile)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.logCheck(ctx, false)

		for {
			select {
			case <-ctx.Done():
				logger.Info(ctx, "Context canceled, exiting")
				return nil
			case <-ticker.C:
				c.logCheck(ctx, false)
			case <-released:
				c.logCheck(ctx, true)
			}
		}
	})

	return g.Wait()
}

func (c *Checker) logCheck(ctx context.Context, force bool) {
	outcome, err := c.Check(ctx, force)
	if err != nil {
		logger.ErrorKV(ctx, "Automatic update failed", "outcome", outcome.String(), "error", err)
		return
	}

	logger.DebugKV(ctx, "Check finished", "outcome", outcome.String())
}

// watchRelease signals released whenever releaseFile is created or written. Signals are
// coalesced while a check is running.
func watchRelease(ctx context.Context, releaseFile string, released chan<- struct{}) error {
	releaseFile = filepath.Clean(releaseFile)
	dir := filepath.Dir(releaseFile)

	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create release dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != releaseFile || (!event.Has(fsnotify.Create) && !event.Has(fsnotify.Write)) {
				continue
			}

			logger.DebugKV(ctx, "Release descriptor changed", "op", event.Op.String())

			select {
			case released <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				return err
			}

			logger.WarnKV(ctx, "Release watcher overflowed", "error", err)
		}
	}
}
