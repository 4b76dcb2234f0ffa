package install

import (
	"context"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/ports"
	"github.com/google/uuid"
)

// committer finalizes one task's staged content into place, per §4.F's
// three strategies, and knows how to unwind each one on cancellation or
// skip.
type committer struct {
	fs     ports.FileSystem
	logger ports.Logger
}

// commitFresh renames stagingDir directly over targetPath. There is no
// prior content to preserve: the Conflict invariant (addon.Validate)
// guarantees a fresh-strategy task only ever runs against an empty
// target path.
func (c *committer) commitFresh(stagingDir, targetPath string, tracker *events.Tracker, control *events.Control) (State, error) {
	tracker.Start(events.StageCommit, "finalizing install")
	if control.ShouldStop() {
		dropStaging(c.fs, stagingDir)
		err := stopErr(control)
		tracker.Cancel(err.Error())
		return StateRolledBack, err
	}

	if err := c.renameTree(stagingDir, targetPath); err != nil {
		tracker.Fail(err.Error())
		return StateFailing, err
	}

	if control.ShouldStop() {
		// Renamed just as cancellation/skip landed: best-effort undo by
		// deleting the target we just created, since staging no longer
		// exists to roll back to.
		_ = c.fs.RemoveAll(targetPath)
		err := stopErr(control)
		tracker.Cancel(err.Error())
		return StateRolledBack, err
	}

	tracker.Complete("install finalized")
	return StateDone, nil
}

// commitClean moves any existing target aside to targetPath+".origin."+id,
// renames stagingDir into targetPath, then reconciles the previous
// install's backup policy (liveries, config globs, Navdata cycle)
// before deleting what remains of the aside copy.
func (c *committer) commitClean(stagingDir, targetPath string, policy addon.BackupPolicy, tracker *events.Tracker, control *events.Control) (State, error) {
	tracker.Start(events.StageCommit, "finalizing install")
	if control.ShouldStop() {
		dropStaging(c.fs, stagingDir)
		err := stopErr(control)
		tracker.Cancel(err.Error())
		return StateRolledBack, err
	}

	originDir := targetPath + ".origin." + uuid.NewString()
	targetExisted := c.fs.Exists(targetPath)
	if targetExisted {
		if err := c.fs.Rename(targetPath, originDir); err != nil {
			err = addonerr.New(addonerr.Internal, "failed to move previous install aside").WithPath(targetPath).Wrap(err)
			tracker.Fail(err.Error())
			return StateFailing, err
		}
	}

	if control.ShouldStop() {
		if targetExisted {
			_ = c.fs.Rename(originDir, targetPath)
		}
		dropStaging(c.fs, stagingDir)
		err := stopErr(control)
		tracker.Cancel(err.Error())
		return StateRolledBack, err
	}

	if err := c.renameTree(stagingDir, targetPath); err != nil {
		if targetExisted {
			_ = c.fs.Rename(originDir, targetPath)
		}
		tracker.Fail(err.Error())
		return StateFailing, err
	}

	if !targetExisted {
		tracker.Complete("install finalized")
		return StateDone, nil
	}

	// Both renames landed: the new content is already live. A stop
	// that trips from here on is not acted on: reconcile runs to
	// completion without checking control, since the new install
	// itself is already committed.
	if err := reconcileClean(c.fs, policy, originDir, targetPath, tracker); err != nil {
		return StateFailing, err
	}
	return StateDone, nil
}

// commitOverwrite renames each staged file over the corresponding
// target path one at a time, creating parent directories as needed and
// leaving target-only files untouched. Unlike fresh/clean, a stop
// partway through cannot be rolled back: files already renamed over
// the target are real user-visible changes, so the task becomes
// PartiallyApplied instead of Rolled-back (§4.F).
func (c *committer) commitOverwrite(stagingDir, targetPath string, tracker *events.Tracker, control *events.Control) (State, []string, error) {
	tracker.Start(events.StageCommit, "applying overwrite install")
	if control.ShouldStop() {
		dropStaging(c.fs, stagingDir)
		err := stopErr(control)
		tracker.Cancel(err.Error())
		return StateRolledBack, nil, err
	}

	files, err := listFilesRecursive(c.fs, stagingDir, "")
	if err != nil {
		tracker.Fail(err.Error())
		return StateFailing, nil, err
	}

	var applied []string
	for _, rel := range files {
		if control.ShouldStop() {
			err := stopErr(control)
			tracker.Fail(err.Error())
			return StatePartiallyApplied, applied, err
		}
		src := stagingDir + "/" + rel
		dest := targetPath + "/" + rel
		if err := c.renameFile(src, dest); err != nil {
			err = addonerr.New(addonerr.Internal, "failed to overwrite target file").WithPath(dest).Wrap(err)
			tracker.Fail(err.Error())
			return StatePartiallyApplied, applied, err
		}
		applied = append(applied, rel)
	}

	dropStaging(c.fs, stagingDir)
	tracker.Complete("overwrite install applied")
	return StateDone, applied, nil
}

// renameTree moves src to dest as a unit, falling back to a recursive
// copy-then-delete when the two paths don't share a volume — renaming
// across devices isn't atomic, but it's the only option available, and
// the fallback is logged so a non-atomic commit is visible in support
// bundles.
func (c *committer) renameTree(src, dest string) error {
	sameVol, err := c.fs.SameVolume(src, dest)
	if err == nil && sameVol {
		if err := c.fs.Rename(src, dest); err == nil {
			return nil
		}
	}
	c.logger.Warn(context.Background(), "falling back to non-atomic copy for cross-device commit",
		ports.F("src", src), ports.F("dest", dest))
	return copyTreeThenRemove(c.fs, src, dest)
}

func (c *committer) renameFile(src, dest string) error {
	sameVol, err := c.fs.SameVolume(src, dest)
	if err == nil && sameVol {
		if err := c.fs.Rename(src, dest); err == nil {
			return nil
		}
	}
	if err := c.fs.CopyFile(src, dest); err != nil {
		return err
	}
	return c.fs.Remove(src)
}

func copyTreeThenRemove(fs ports.FileSystem, src, dest string) error {
	if err := copyTree(fs, src, dest); err != nil {
		return err
	}
	return fs.RemoveAll(src)
}

func copyTree(fs ports.FileSystem, src, dest string) error {
	entries, err := fs.ReadDir(src)
	if err != nil {
		return addonerr.New(addonerr.Internal, "failed to read directory during fallback copy").WithPath(src).Wrap(err)
	}
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return addonerr.New(addonerr.Internal, "failed to create directory during fallback copy").WithPath(dest).Wrap(err)
	}
	for _, e := range entries {
		srcChild := src + "/" + e.Name
		destChild := dest + "/" + e.Name
		if isLink, target := fs.IsSymlink(srcChild); isLink {
			if err := fs.CreateSymlink(target, destChild); err != nil {
				return addonerr.New(addonerr.Internal, "failed to recreate symlink during fallback copy").WithPath(destChild).Wrap(err)
			}
			continue
		}
		if e.IsDir {
			if err := copyTree(fs, srcChild, destChild); err != nil {
				return err
			}
			continue
		}
		if err := fs.CopyFile(srcChild, destChild); err != nil {
			return addonerr.New(addonerr.Internal, "failed to copy file during fallback copy").WithPath(srcChild).Wrap(err)
		}
	}
	return nil
}

// dropStaging best-effort removes a staging directory on rollback; a
// failure here doesn't change the task's terminal state since the
// staging dir sits outside the target tree. A staging dir that fails
// to be removed here is left in place.
func dropStaging(fs ports.FileSystem, stagingDir string) {
	_ = fs.RemoveAll(stagingDir)
}
