package install

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/archivechain"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// defaultMemThreshold is M from §4.B when Options.MemoryThresholdBytes
// is left at zero: 200 MiB.
const defaultMemThreshold = 200 << 20

// Engine executes a planned batch of InstallTasks (§4.F): each task
// runs its own Planned→…→Done/Rolled-back/PartiallyApplied state
// machine, staged on the target's own filesystem so commit reduces to
// an atomic rename, with up to Options.Workers tasks committing
// concurrently subject to the prefix locker's disjoint-target rule.
type Engine struct {
	fs         ports.FileSystem
	openers    map[archivechain.Format]ports.ArchiveOpener
	scratchDir string
	bus        *events.Bus
	logger     ports.Logger
	opts       Options
	locker     *prefixLocker
}

// NewEngine creates an Engine. scratchDir is where per-task archive
// scopes (spooled and extracted temp content) are rooted. Each task's
// staging directory is created separately, next to its TargetPath, so
// it shares the target's filesystem and the commit rename stays
// atomic (§4.F "Staging discipline").
func NewEngine(fs ports.FileSystem, openers map[archivechain.Format]ports.ArchiveOpener, scratchDir string, bus *events.Bus, logger ports.Logger, opts Options) *Engine {
	return &Engine{
		fs:         fs,
		openers:    openers,
		scratchDir: scratchDir,
		bus:        bus,
		logger:     logger,
		opts:       opts,
		locker:     newPrefixLocker(),
	}
}

func (e *Engine) memThreshold() int64 {
	if e.opts.MemoryThresholdBytes > 0 {
		return e.opts.MemoryThresholdBytes
	}
	return defaultMemThreshold
}

// Run executes every enabled task in plan, up to Options.Workers
// concurrently, honoring control's cancel/skip flags, and returns one
// Result per task in plan's original order (disabled tasks are
// reported as Rolled-back without ever touching the filesystem).
func (e *Engine) Run(ctx context.Context, plan []*addon.InstallTask, control *events.Control) []Result {
	results := make([]Result, len(plan))
	sem := semaphore.NewWeighted(int64(e.opts.workers()))

	done := make(chan struct{})
	remaining := 0
	for i, t := range plan {
		if t.Enabled {
			remaining++
			continue
		}
		results[i] = Result{TaskID: t.ID, State: StateRolledBack}
	}
	if remaining == 0 {
		return results
	}

	for i, t := range plan {
		if !t.Enabled {
			continue
		}
		i, t := i, t
		go func() {
			defer func() { done <- struct{}{} }()

			if control.Cancelled() {
				results[i] = Result{TaskID: t.ID, State: StateRolledBack, Err: addonerr.New(addonerr.Cancelled, "installation cancelled")}
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{TaskID: t.ID, State: StateRolledBack, Err: err}
				return
			}
			defer sem.Release(1)

			control.ResetSkip()
			results[i] = e.runTask(t, control)
		}()
	}
	for n := 0; n < remaining; n++ {
		<-done
	}
	return results
}

// runTask drives one task through staging and commit. It never
// panics across the boundary the caller cares about: a recovered
// panic is reported as an addonerr.Internal result, per §7's "Panics
// are caught at the worker boundary".
func (e *Engine) runTask(t *addon.InstallTask, control *events.Control) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{TaskID: t.ID, State: StateFailing, Err: addonerr.New(addonerr.Internal, "panic during install task").WithSuggestion("see logs for the recovered panic value")}
		}
	}()

	tracker := events.NewTracker(e.bus, t.ID)

	if err := t.Validate(); err != nil {
		err = addonerr.New(addonerr.Internal, "invalid install task").Wrap(err)
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}
	if t.Conflict == addon.ConflictExistsLocked {
		// Defence in depth (§4.F "Locked targets"): rejected here even
		// if the UI managed to flip Enabled back on.
		err := addonerr.New(addonerr.LockedTarget, "target path is locked").WithPath(t.TargetPath)
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}
	if t.SizeWarning != nil && !t.SizeWarning.Confirmed {
		err := addonerr.New(addonerr.ArchiveBomb, "size warning requires user confirmation before commit").WithPath(t.TargetPath)
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}
	if t.Strategy == addon.StrategyOverwrite && !e.opts.AllowOverwrite {
		err := addonerr.New(addonerr.Internal, "overwrite strategy requires AllowOverwrite opt-in").WithPath(t.TargetPath)
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}

	if !e.locker.Acquire(t.TargetPath, control.ShouldStop) {
		return Result{TaskID: t.ID, State: StateRolledBack, Err: stopErr(control)}
	}
	defer e.locker.Release(t.TargetPath)

	scope, err := archivechain.NewScope(e.fs, e.scratchDir, e.logger)
	if err != nil {
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}
	defer scope.Close()

	cursor := archivechain.NewCursor(e.fs, e.openers, e.memThreshold(), e.logger)

	tracker.Start(events.StageScan, "sizing source")
	size, err := sourceSize(e.fs, cursor, e.logger, e.scratchDir, t.SourceRoot, t.InternalRoot)
	if err != nil {
		tracker.Fail(err.Error())
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}
	tracker.Complete("sized")

	targetParent := filepath.Dir(t.TargetPath)
	if err := checkDiskSpace(e.fs, targetParent, size); err != nil {
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}

	stagingDir := targetParent + "/.install-temp-" + t.ID
	if err := e.fs.MkdirAll(stagingDir, 0o755); err != nil {
		err = addonerr.New(addonerr.Internal, "failed to create staging directory").WithPath(stagingDir).Wrap(err)
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}

	st := &stager{fs: e.fs, cursor: cursor, logger: e.logger}
	if err := st.stageTask(t, stagingDir, size, tracker, control, scope); err != nil {
		state := StateFailing
		if control.ShouldStop() {
			state = StateRolledBack
		}
		return Result{TaskID: t.ID, State: state, Err: err}
	}

	c := &committer{fs: e.fs, logger: e.logger}
	switch t.Strategy {
	case addon.StrategyFresh:
		state, err := c.commitFresh(stagingDir, t.TargetPath, tracker, control)
		return Result{TaskID: t.ID, State: state, Err: err}
	case addon.StrategyClean:
		state, err := c.commitClean(stagingDir, t.TargetPath, t.BackupPolicy, tracker, control)
		return Result{TaskID: t.ID, State: state, Err: err}
	case addon.StrategyOverwrite:
		state, applied, err := c.commitOverwrite(stagingDir, t.TargetPath, tracker, control)
		return Result{TaskID: t.ID, State: state, Err: err, PartiallyAppliedFiles: applied}
	default:
		err := addonerr.New(addonerr.Internal, "unknown install strategy "+string(t.Strategy))
		return Result{TaskID: t.ID, State: StateFailing, Err: err}
	}
}
