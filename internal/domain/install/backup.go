package install

import (
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// reconcileClean applies a clean install's BackupPolicy against the
// just-renamed-aside previous install (originDir), per §4.F: liveries
// and user config files are restored into the new target only where
// the new install didn't already provide them, and a Navdata package's
// previous AIRAC cycle is archived rather than discarded. originDir is
// removed afterward regardless of what, if anything, was restored.
func reconcileClean(fs ports.FileSystem, policy addon.BackupPolicy, originDir, targetPath string, tracker *events.Tracker) error {
	tracker.Start(events.StageReconcile, "reconciling previous install")

	if policy.Liveries {
		if err := restoreLiveries(fs, originDir, targetPath); err != nil {
			tracker.Fail(err.Error())
			return err
		}
	}
	if len(policy.ConfigGlobs) > 0 {
		if err := restoreConfigGlobs(fs, originDir, targetPath, policy.ConfigGlobs); err != nil {
			tracker.Fail(err.Error())
			return err
		}
	}
	if policy.Navdata {
		if err := archiveNavdataCycle(fs, originDir, targetPath); err != nil {
			tracker.Fail(err.Error())
			return err
		}
	}

	if err := fs.RemoveAll(originDir); err != nil {
		err := addonerr.New(addonerr.Internal, "failed to remove previous install backup directory").WithPath(originDir).Wrap(err)
		tracker.Fail(err.Error())
		return err
	}
	tracker.Complete("previous install reconciled")
	return nil
}

// restoreLiveries moves any livery subdirectory present under
// originDir/liveries that the new target doesn't already have.
func restoreLiveries(fs ports.FileSystem, originDir, targetPath string) error {
	originLiveries := originDir + "/liveries"
	if !fs.Exists(originLiveries) || !fs.IsDir(originLiveries) {
		return nil
	}
	entries, err := fs.ReadDir(originLiveries)
	if err != nil {
		return addonerr.New(addonerr.Internal, "failed to read previous liveries directory").WithPath(originLiveries).Wrap(err)
	}
	targetLiveries := targetPath + "/liveries"
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		dest := targetLiveries + "/" + e.Name
		if fs.Exists(dest) {
			continue
		}
		if err := fs.MkdirAll(targetLiveries, 0o755); err != nil {
			return addonerr.New(addonerr.Internal, "failed to create liveries directory").WithPath(targetLiveries).Wrap(err)
		}
		if err := fs.Rename(originLiveries+"/"+e.Name, dest); err != nil {
			return addonerr.New(addonerr.Internal, "failed to restore previous livery").WithPath(dest).Wrap(err)
		}
	}
	return nil
}

// restoreConfigGlobs moves any file under originDir matching one of
// globs that the new target doesn't already have at the same relative
// path; files the new install already placed always win.
func restoreConfigGlobs(fs ports.FileSystem, originDir, targetPath string, globs []string) error {
	files, err := listFilesRecursive(fs, originDir, "")
	if err != nil {
		return err
	}
	for _, rel := range files {
		if !matchesAny(globs, rel) {
			continue
		}
		dest := targetPath + "/" + rel
		if fs.Exists(dest) {
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return addonerr.New(addonerr.Internal, "failed to create config restore directory").WithPath(filepath.Dir(dest)).Wrap(err)
		}
		if err := fs.Rename(originDir+"/"+rel, dest); err != nil {
			return addonerr.New(addonerr.Internal, "failed to restore previous config file").WithPath(dest).Wrap(err)
		}
	}
	return nil
}

// archiveNavdataCycle moves the previous Earth nav data directory to a
// timestamped backup location sitting next to targetPath rather than
// discarding it, so the UI can offer a later restore.
func archiveNavdataCycle(fs ports.FileSystem, originDir, targetPath string) error {
	prevNavdata := originDir + "/Earth nav data"
	if !fs.Exists(prevNavdata) {
		return nil
	}
	backupDir := filepath.Dir(targetPath) + "/Earth nav data.backup." + timestampSuffix()
	if err := fs.Rename(prevNavdata, backupDir); err != nil {
		return addonerr.New(addonerr.Internal, "failed to archive previous navdata cycle").WithPath(backupDir).Wrap(err)
	}
	return nil
}

func timestampSuffix() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

func listFilesRecursive(fs ports.FileSystem, root, relPrefix string) ([]string, error) {
	var out []string
	entries, err := fs.ReadDir(joinNonEmpty(root, relPrefix))
	if err != nil {
		return nil, addonerr.New(addonerr.Internal, "failed to read directory").WithPath(root).Wrap(err)
	}
	for _, e := range entries {
		rel := joinNonEmpty(relPrefix, e.Name)
		if e.IsDir {
			sub, err := listFilesRecursive(fs, root, rel)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

// matchesAny reports whether rel matches any of globs. Glob patterns
// follow filepath.Match's shell-style syntax component by component;
// a pattern with no slash matches against rel's base name so
// "*.ini"-style user settings match regardless of subdirectory depth.
func matchesAny(globs []string, rel string) bool {
	base := filepath.Base(rel)
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
	}
	return false
}
