package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/progress"
	"github.com/treeos-project/treeos-control/internal/repository/preferences"
	"github.com/treeos-project/treeos-control/internal/service/updater"
)

// Outcome is the result of one check.
type Outcome int

const (
	// Disabled means automatic updates are turned off.
	Disabled Outcome = iota
	// NotDue means the check frequency has not elapsed yet.
	NotDue
	// Busy means another update holds the lock.
	Busy
	// Updated means the update ran without errors.
	Updated
	// Failed means the update ran and a step failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Disabled:
		return "disabled"
	case NotDue:
		return "not-due"
	case Busy:
		return "busy"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Notification titles.
const (
	titleUpdated = "System updated"
	titleFailed  = "System update failed"
)

// Notifier shows desktop notifications.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Checker decides when to run automatic updates.
type Checker struct {
	updates  *updater.Orchestrator
	prefs    preferences.Repository
	notifier Notifier
	now      func() time.Time
}

// New returns a checker.
func New(updates *updater.Orchestrator, prefs preferences.Repository, notifier Notifier) *Checker {
	return &Checker{
		updates:  updates,
		prefs:    prefs,
		notifier: notifier,
		now:      time.Now,
	}
}

// Check runs an update when one is due. With force the check frequency is ignored, but
// disabled automatic updates are still respected.
func (c *Checker) Check(ctx context.Context, force bool) (Outcome, error) {
	current := c.prefs.Read(ctx)
	now := c.now()

	switch {
	case !current.AutoUpdatesEnabled:
		logger.DebugKV(ctx, "Automatic updates are disabled")
		return Disabled, nil
	case !force && !current.CheckDue(now):
		logger.DebugKV(ctx, "Automatic update not due",
			"last_check", time.Unix(current.LastUpdateCheck, 0).Format(time.RFC3339),
			"frequency", string(current.CheckFrequency))

		return NotDue, nil
	}

	logger.InfoKV(ctx, "Running automatic update", "forced", force)

	output := progress.PublisherFunc(func(line string) {
		logger.DebugKV(ctx, "Update output", "line", line)
	})

	report, err := c.updates.RunExclusive(ctx, output)
	if errors.Is(err, updater.ErrAlreadyRunning) {
		logger.Info(ctx, "Another update is running, skipping this check")
		return Busy, nil
	}

	if writeErr := c.prefs.Write(ctx, preferences.WithLastUpdateCheck(now.Unix())); writeErr != nil {
		logger.ErrorKV(ctx, "Unable to record the update check", "error", writeErr)
	}

	outcome, title, body := Updated, titleUpdated, "The system is up to date."

	switch {
	case err != nil:
		outcome, title, body = Failed, titleFailed, report.LastFailure
		if body == "" {
			body = err.Error()
		}
	case report.Rebased:
		body = fmt.Sprintf("Rebased to %s. Restart to use the new version.", report.Descriptor)
	}

	if notifyErr := c.notifier.Notify(ctx, title, body); notifyErr != nil {
		logger.WarnKV(ctx, "Unable to send notification", "error", notifyErr)
	}

	return outcome, err
}
