package install

import (
	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/domain/update"
	"github.com/google/uuid"
)

// ApplyUpdatePlan executes an update.Plan against an already-installed
// addon at targetPath. downloadedDir holds the add/replace files'
// fetched content, laid out at the same relative paths the plan
// names. It assembles one staging tree (the existing install, plus the
// plan's adds/replaces, minus its deletes) and commits it through the
// same clean-strategy rename-aside primitive every other install uses,
// so there is only one atomic-rename code path in the whole engine.
func (e *Engine) ApplyUpdatePlan(targetPath, downloadedDir string, plan update.Plan, policy addon.BackupPolicy, control *events.Control) Result {
	taskID := uuid.NewString()
	tracker := events.NewTracker(e.bus, taskID)

	if plan.RemoteLocked {
		err := addonerr.New(addonerr.Internal, "remote update manifest is locked").WithPath(targetPath)
		return Result{TaskID: taskID, State: StateFailing, Err: err}
	}
	if !plan.HasUpdate {
		return Result{TaskID: taskID, State: StateDone}
	}

	if !e.locker.Acquire(targetPath, control.ShouldStop) {
		return Result{TaskID: taskID, State: StateRolledBack, Err: stopErr(control)}
	}
	defer e.locker.Release(targetPath)

	stagingDir := targetPath + ".update-temp-" + taskID
	if err := e.buildUpdateStaging(targetPath, downloadedDir, stagingDir, plan, control); err != nil {
		dropStaging(e.fs, stagingDir)
		state := StateFailing
		if control.ShouldStop() {
			state = StateRolledBack
		}
		return Result{TaskID: taskID, State: state, Err: err}
	}

	c := &committer{fs: e.fs, logger: e.logger}
	state, err := c.commitClean(stagingDir, targetPath, policy, tracker, control)
	return Result{TaskID: taskID, State: state, Err: err}
}

// buildUpdateStaging materializes the post-update tree at stagingDir:
// a full copy of the current target, with plan.AddFiles/ReplaceFiles
// overlaid from downloadedDir and plan.DeleteFiles removed.
func (e *Engine) buildUpdateStaging(targetPath, downloadedDir, stagingDir string, plan update.Plan, control *events.Control) error {
	if e.fs.Exists(targetPath) {
		if err := copyTree(e.fs, targetPath, stagingDir); err != nil {
			return err
		}
	} else if err := e.fs.MkdirAll(stagingDir, 0o755); err != nil {
		return addonerr.New(addonerr.Internal, "failed to create update staging directory").WithPath(stagingDir).Wrap(err)
	}

	for _, rel := range plan.DeleteFiles {
		if control.ShouldStop() {
			return stopErr(control)
		}
		if err := e.fs.RemoveAll(stagingDir + "/" + rel); err != nil {
			return addonerr.New(addonerr.Internal, "failed to delete stale update file").WithPath(rel).Wrap(err)
		}
	}

	overlay := append(append([]string{}, plan.AddFiles...), plan.ReplaceFiles...)
	for _, rel := range overlay {
		if control.ShouldStop() {
			return stopErr(control)
		}
		src := downloadedDir + "/" + rel
		dest := stagingDir + "/" + rel
		if err := e.fs.CopyFile(src, dest); err != nil {
			return addonerr.New(addonerr.Internal, "failed to stage updated file").WithPath(rel).Wrap(err)
		}
	}
	return nil
}
