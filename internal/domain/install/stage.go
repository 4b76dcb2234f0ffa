package install

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/archivechain"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/domain/pathsafety"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// stager copies or extracts one task's source content into its own
// staging directory, checking the shared Control at every entry (an
// I/O boundary, per §4.F) and reporting progress through tracker.
type stager struct {
	fs     ports.FileSystem
	cursor *archivechain.Cursor
	logger ports.Logger
}

// stageDirTo copies an already-resolved filesystem subtree into
// stagingDir, preserving symlinks without dereferencing them.
func (s *stager) stageDirTo(srcRoot, stagingDir string, totalSize int64, tracker *events.Tracker, control *events.Control) error {
	tracker.Start(events.StageStage, "copying source files")
	var processed int64

	var walk func(relPath string) error
	walk = func(relPath string) error {
		srcDir := joinNonEmpty(srcRoot, relPath)
		destDir := joinNonEmpty(stagingDir, relPath)
		entries, err := s.fs.ReadDir(srcDir)
		if err != nil {
			return addonerr.New(addonerr.Internal, "failed to read source directory").WithPath(srcDir).Wrap(err)
		}
		if err := s.fs.MkdirAll(destDir, 0o755); err != nil {
			return addonerr.New(addonerr.Internal, "failed to create staging directory").WithPath(destDir).Wrap(err)
		}
		for _, e := range entries {
			if control.ShouldStop() {
				return stopErr(control)
			}
			srcChild := srcDir + "/" + e.Name
			destChild := destDir + "/" + e.Name
			childRel := joinNonEmpty(relPath, e.Name)

			if isLink, target := s.fs.IsSymlink(srcChild); isLink {
				if err := s.fs.CreateSymlink(target, destChild); err != nil {
					return addonerr.New(addonerr.Internal, "failed to recreate symlink during staging").WithPath(destChild).Wrap(err)
				}
				continue
			}
			if e.IsDir {
				if err := walk(childRel); err != nil {
					return err
				}
				continue
			}
			if err := s.fs.CopyFile(srcChild, destChild); err != nil {
				return addonerr.New(addonerr.Internal, "failed to copy source file during staging").WithPath(srcChild).Wrap(err)
			}
			if info, err := s.fs.GetFileInfo(destChild); err == nil {
				processed += info.Size
			}
			tracker.Advance(time.Now(), processed, totalSize, e.Name)
			if control.ShouldStop() {
				return stopErr(control)
			}
		}
		return nil
	}

	if err := walk(""); err != nil {
		tracker.Fail(err.Error())
		return err
	}
	tracker.Complete("source files copied")
	return nil
}

// stageArchiveTo extracts the InternalRoot subtree of an archive chain
// into stagingDir, applying the archive-bomb guard as it goes (§4.A)
// and stripping the InternalRoot prefix from every written path.
func (s *stager) stageArchiveTo(chain archivechain.Chain, internalRoot, stagingDir string, totalSize int64, tracker *events.Tracker, control *events.Control, scope *archivechain.Scope) error {
	tracker.Start(events.StageExtract, "extracting archive")

	reader, err := s.cursor.OpenChain(scope, chain)
	if err != nil {
		tracker.Fail(err.Error())
		return err
	}

	prefix := ""
	if internalRoot != "" {
		prefix = strings.TrimSuffix(internalRoot, "/") + "/"
	}

	var processed int64
	for {
		if control.ShouldStop() {
			err := stopErr(control)
			tracker.Fail(err.Error())
			return err
		}
		entry, nerr := reader.Next()
		if errors.Is(nerr, io.EOF) {
			break
		}
		if nerr != nil {
			err := addonerr.New(addonerr.ArchiveCorrupt, "failed to enumerate archive entries during staging").Wrap(nerr)
			tracker.Fail(err.Error())
			return err
		}

		name := strings.TrimLeft(strings.ReplaceAll(entry.Name, "\\", "/"), "/")
		if prefix != "" {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			name = strings.TrimPrefix(name, prefix)
		}
		if name == "" {
			continue
		}
		if entry.IsDir {
			continue
		}

		destPath, err := pathsafety.SanitizeEntryName(name, stagingDir)
		if err != nil {
			tracker.Fail(err.Error())
			return err
		}
		if err := s.fs.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			err := addonerr.New(addonerr.Internal, "failed to create extraction parent directory").WithPath(destPath).Wrap(err)
			tracker.Fail(err.Error())
			return err
		}
		data, rerr := io.ReadAll(reader)
		if rerr != nil {
			err := addonerr.New(addonerr.ArchiveCorrupt, "failed to read archive entry").WithPath(name).Wrap(rerr)
			tracker.Fail(err.Error())
			return err
		}
		if err := s.fs.WriteFile(destPath, data, 0o644); err != nil {
			err := addonerr.New(addonerr.Internal, "failed to write extracted file").WithPath(destPath).Wrap(err)
			tracker.Fail(err.Error())
			return err
		}

		processed += int64(len(data))
		tracker.Advance(time.Now(), processed, totalSize, name)
	}

	tracker.Complete("archive extracted")
	return nil
}

func stopErr(control *events.Control) error {
	if control.Skipped() {
		return addonerr.New(addonerr.Skipped, "task skipped by user")
	}
	return addonerr.New(addonerr.Cancelled, "install cancelled")
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "/" + b
}

// stageTask extracts or copies t's source content into stagingDir.
func (s *stager) stageTask(t *addon.InstallTask, stagingDir string, totalSize int64, tracker *events.Tracker, control *events.Control, scope *archivechain.Scope) error {
	if t.SourceRoot.IsArchive() {
		return s.stageArchiveTo(*t.SourceRoot.Chain, t.InternalRoot, stagingDir, totalSize, tracker, control, scope)
	}
	root := t.SourceRoot.Dir
	if t.InternalRoot != "" {
		root = root + "/" + t.InternalRoot
	}
	return s.stageDirTo(root, stagingDir, totalSize, tracker, control)
}
