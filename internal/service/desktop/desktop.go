// Package desktop starts desktop helpers: notifications and the document viewer.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/treeos-project/treeos-control/internal/config"
	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/service/runner"
)

// Desktop launches helpers without waiting for them; the session takes over the rest.
type Desktop struct {
	runner runner.Runner
	notify []string
	open   []string
	manual string
}

// New builds a Desktop from the validated configuration.
func New(cfg *config.Config, r runner.Runner) *Desktop {
	return &Desktop{
		runner: r,
		notify: cfg.NotifyCommand,
		open:   cfg.OpenCommand,
		manual: cfg.ManualFile,
	}
}

// Notify shows a desktop notification.
func (d *Desktop) Notify(ctx context.Context, title, body string) error {
	argv := append(append([]string{}, d.notify...), title, body)

	if err := d.runner.Start(ctx, runner.New(argv...)); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

// Open opens path with the default handler.
func (d *Desktop) Open(ctx context.Context, path string) error {
	argv := append(append([]string{}, d.open...), path)

	if err := d.runner.Start(ctx, runner.New(argv...)); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	return nil
}

// OpenManual opens the user manual. A missing manual is logged and reported as not opened.
func (d *Desktop) OpenManual(ctx context.Context) (bool, error) {
	if _, err := os.Stat(d.manual); errors.Is(err, fs.ErrNotExist) {
		logger.WarnKV(ctx, "User manual not found", "path", d.manual)
		return false, nil
	}

	if err := d.Open(ctx, d.manual); err != nil {
		return false, err
	}

	return true, nil
}
