package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/treeos-project/treeos-control/internal/config"
	"github.com/treeos-project/treeos-control/internal/logger"
	"github.com/treeos-project/treeos-control/internal/progress"
	"github.com/treeos-project/treeos-control/internal/repository/preferences"
	"github.com/treeos-project/treeos-control/internal/service/common"
	"github.com/treeos-project/treeos-control/internal/service/runner"
)

// Progress messages shown to the user.
const (
	MsgAlreadyRunning = "An update is already in progress."
	MsgStarting       = "Starting manual update..."
	MsgNoNewVersion   = "No new OS versions available."
	MsgCompleted      = "Manual update completed."
)

var (
	errUpgradeFailed = errors.New("package upgrade failed")
	errRebaseFailed  = errors.New("rebase failed")
)

// Report describes a finished update run.
type Report struct {
	// RunID identifies the run in logs.
	RunID string
	// UpgradeCode is the exit code of the upgrade command, -1 if it did not run.
	UpgradeCode int
	// Descriptor is the release descriptor that was evaluated.
	Descriptor string
	// Decision is the rebase decision.
	Decision Decision
	// Rebased is set when the rebase completed.
	Rebased bool
	// LastFailure is the last failure line published, empty on success.
	LastFailure string
}

// Orchestrator runs update sequences.
type Orchestrator struct {
	runner      runner.Runner
	prefs       preferences.Repository
	lock        *Lock
	releaseFile string
	osRelease   string
	upgrade     []string
	rebase      []string
}

// New builds an orchestrator from the validated configuration.
func New(cfg *config.Config, r runner.Runner, prefs preferences.Repository) *Orchestrator {
	return &Orchestrator{
		runner:      r,
		prefs:       prefs,
		lock:        NewLock(cfg.LockFile, cfg.ReclaimStaleLock),
		releaseFile: cfg.ReleaseFile,
		osRelease:   cfg.OSReleaseFile,
		upgrade:     cfg.Update.Upgrade,
		rebase:      cfg.Update.Rebase,
	}
}

// Lock returns the lock shared by every update of this orchestrator.
func (o *Orchestrator) Lock() *Lock {
	return o.lock
}

// StartManualUpdate acquires the lock and runs the update on a new goroutine. When another
// update holds the lock it publishes MsgAlreadyRunning and returns ErrAlreadyRunning
// without running anything. The lock is released when the task finishes, even on failure.
func (o *Orchestrator) StartManualUpdate(ctx context.Context, pub progress.Publisher) (*common.Task[Report], error) {
	ctx = logger.WithName(ctx, "updater")

	if err := o.lock.Acquire(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			logger.WarnKV(ctx, "Update requested while another one is running", "lock", o.lock.Path())
			pub.Publish(MsgAlreadyRunning)
		}

		return nil, err
	}

	pub.Publish(MsgStarting)

	return common.Go(ctx, func(ctx context.Context) (Report, error) {
		defer o.lock.Release(ctx)

		return o.Run(ctx, pub)
	}), nil
}

// RunExclusive is StartManualUpdate without the goroutine.
func (o *Orchestrator) RunExclusive(ctx context.Context, pub progress.Publisher) (Report, error) {
	task, err := o.StartManualUpdate(ctx, pub)
	if err != nil {
		return Report{UpgradeCode: -1}, err
	}

	return task.Wait(context.WithoutCancel(ctx))
}

// Run performs the update steps. The caller must hold the lock. Step failures are
// published and collected; the rebase step runs even when the upgrade failed.
func (o *Orchestrator) Run(ctx context.Context, pub progress.Publisher) (Report, error) {
	report := Report{
		RunID:       uuid.NewString(),
		UpgradeCode: -1,
	}

	ctx = logger.WithKV(ctx, "run_id", report.RunID)
	logger.Info(ctx, "Update started")

	var result *multierror.Error

	fail := func(err error, line string) {
		result = multierror.Append(result, err)
		report.LastFailure = line
		pub.Publish(line)
	}

	code, err := o.runner.Stream(ctx, runner.New(o.upgrade...), pub.Publish)
	report.UpgradeCode = code

	switch {
	case err != nil:
		fail(fmt.Errorf("%w: %w", errUpgradeFailed, err), fmt.Sprintf("Package upgrade failed: %v", err))
	case code != 0:
		fail(fmt.Errorf("%w: exit code %d", errUpgradeFailed, code),
			fmt.Sprintf("Package upgrade failed with exit code %d.", code))
	}

	if ctx.Err() != nil {
		return report, o.finish(ctx, pub, report, multierror.Append(result, ctx.Err()))
	}

	if err = o.rebaseIfNeeded(ctx, pub, &report); err != nil {
		fail(err, report.LastFailure)
	}

	return report, o.finish(ctx, pub, report, result)
}

func (o *Orchestrator) finish(ctx context.Context, pub progress.Publisher, report Report, result *multierror.Error) error {
	err := result.ErrorOrNil()
	if err != nil {
		logger.ErrorKV(ctx, "Update finished with errors", "error", err, "last_failure", report.LastFailure)
		return err
	}

	logger.InfoKV(ctx, "Update completed", "decision", report.Decision.String(), "rebased", report.Rebased)
	pub.Publish(MsgCompleted)

	return nil
}

// rebaseIfNeeded evaluates the descriptor and rebases. It sets report.LastFailure to the
// line to publish when it returns an error.
func (o *Orchestrator) rebaseIfNeeded(ctx context.Context, pub progress.Publisher, report *Report) error {
	descriptor, err := ReadDescriptor(o.releaseFile)
	if err != nil {
		report.LastFailure = "Unable to read the latest release information."
		return err
	}

	report.Descriptor = descriptor

	stored := o.prefs.Read(ctx).StoredVersion

	running, err := RunningVersion(o.osRelease)
	if err != nil {
		logger.WarnKV(ctx, "Running version unknown", "path", o.osRelease, "error", err)
	}

	report.Decision = Decide(descriptor, stored, running)
	logger.InfoKV(ctx, "Rebase decision",
		"descriptor", descriptor,
		"stored", stored,
		"running", running,
		"decision", report.Decision.String())

	if report.Decision != NeedsRebase {
		pub.Publish(MsgNoNewVersion)
		return nil
	}

	progress.Publishf(pub, "Applying rebase to version: %s", descriptor)

	argv := append(append([]string{}, o.rebase...), descriptor)

	code, err := o.runner.Stream(ctx, runner.New(argv...), pub.Publish)
	if err != nil || code != 0 {
		report.LastFailure = fmt.Sprintf("Failed to apply rebase to %s.", descriptor)

		if err == nil {
			err = fmt.Errorf("exit code %d", code)
		}

		return fmt.Errorf("%w to %s: %w", errRebaseFailed, descriptor, err)
	}

	report.Rebased = true
	progress.Publishf(pub, "Rebase completed to version: %s", descriptor)

	if err = o.prefs.Write(ctx, preferences.WithStoredVersion(descriptor)); err != nil {
		report.LastFailure = "Unable to save the new version."
		return fmt.Errorf("store version %s: %w", descriptor, err)
	}

	return nil
}
