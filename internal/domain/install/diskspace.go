package install

import (
	"errors"
	"io"
	"strings"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/archivechain"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

const oneGiB = 1 << 30

// requiredFreeBytes computes the §4.F disk-space preflight threshold:
// at least max(1 GiB, 1.2 * planned).
func requiredFreeBytes(planned int64) uint64 {
	scaled := int64(float64(planned) * 1.2)
	if scaled < oneGiB {
		return oneGiB
	}
	return uint64(scaled)
}

// checkDiskSpace fails the task with InsufficientSpace before any
// staging has begun, per §4.F.
func checkDiskSpace(fs ports.FileSystem, targetParent string, planned int64) error {
	free, err := fs.DiskFreeBytes(targetParent)
	if err != nil {
		return addonerr.New(addonerr.Internal, "failed to query free disk space").WithPath(targetParent).Wrap(err)
	}
	need := requiredFreeBytes(planned)
	if free < need {
		return addonerr.New(addonerr.InsufficientSpace, "not enough free space for this install").WithPath(targetParent)
	}
	return nil
}

// sourceSize computes the planned uncompressed size of a task's
// source content, for the disk-space preflight and for progress
// percent denominators. scratchDir is used to hold any temporary
// extraction a chained archive source requires along the way; it is
// removed again before sourceSize returns.
func sourceSize(fs ports.FileSystem, cursor *archivechain.Cursor, logger ports.Logger, scratchDir string, source addon.SourceRoot, internalRoot string) (int64, error) {
	if !source.IsArchive() {
		root := source.Dir
		if internalRoot != "" {
			root = root + "/" + internalRoot
		}
		return dirSize(fs, root)
	}
	return chainEntrySize(fs, cursor, logger, scratchDir, *source.Chain, internalRoot)
}

func dirSize(fs ports.FileSystem, root string) (int64, error) {
	var total int64
	var walk func(path string) error
	walk = func(path string) error {
		entries, err := fs.ReadDir(path)
		if err != nil {
			return addonerr.New(addonerr.Internal, "failed to read source directory").WithPath(path).Wrap(err)
		}
		for _, e := range entries {
			full := path + "/" + e.Name
			if isLink, _ := fs.IsSymlink(full); isLink {
				continue
			}
			if e.IsDir {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			info, err := fs.GetFileInfo(full)
			if err != nil {
				return addonerr.New(addonerr.Internal, "failed to stat source file").WithPath(full).Wrap(err)
			}
			total += info.Size
		}
		return nil
	}
	if err := walk(root); err != nil {
		return 0, err
	}
	return total, nil
}

// chainEntrySize opens a throwaway scope to walk the chain's entries
// purely for their declared sizes, then discards it — the real
// extraction during staging reopens the chain fresh, since archive
// readers cannot be rewound.
func chainEntrySize(fs ports.FileSystem, cursor *archivechain.Cursor, logger ports.Logger, scratchDir string, chain archivechain.Chain, internalRoot string) (int64, error) {
	scope, err := archivechain.NewScope(fs, scratchDir, logger)
	if err != nil {
		return 0, err
	}
	defer scope.Close()

	reader, err := cursor.OpenChain(scope, chain)
	if err != nil {
		return 0, err
	}

	prefix := ""
	if internalRoot != "" {
		prefix = strings.TrimSuffix(internalRoot, "/") + "/"
	}

	var total int64
	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, addonerr.New(addonerr.ArchiveCorrupt, "failed to enumerate archive entries while sizing").Wrap(err)
		}
		if entry.IsDir {
			continue
		}
		name := strings.TrimLeft(strings.ReplaceAll(entry.Name, "\\", "/"), "/")
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		total += entry.UncompressedSize
	}
	return total, nil
}
