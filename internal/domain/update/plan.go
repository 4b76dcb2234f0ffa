// Package update implements the addon update planner (§4.K): diffing
// a local installation against a remote file manifest to produce an
// AddonUpdatePlan, which the install engine then executes as a
// synthesized clean-merge strategy.
package update

import "sort"

// RemoteFile describes one file the remote manifest declares.
type RemoteFile struct {
	Path     string
	Size     int64
	Hash     string
	Optional bool
}

// Manifest is the remote side of an update comparison: a version tag,
// a kill-switch, and the declared file tree.
type Manifest struct {
	Version      string
	Locked       bool
	Files        []RemoteFile
}

// LocalFile describes one file actually present in the installation.
type LocalFile struct {
	Path string
	Hash string
}

// Local is the local side of an update comparison.
type Local struct {
	Version string
	Files   []LocalFile
}

// Plan is the AddonUpdatePlan from §3.
type Plan struct {
	LocalVersion  string
	RemoteVersion string
	HasUpdate     bool

	AddFiles     []string
	ReplaceFiles []string
	DeleteFiles  []string
	SkipFiles    []string

	EstimatedDownloadBytes int64
	Warnings               []string
	RemoteLocked           bool
}

// LockedSubtree reports whether path is locked against
// deletion/overwrite, matching the same lock-entry semantics as the
// install planner's Options.Locks.
type LockedSubtree func(path string) bool

// LocalDirExists reports whether a file's parent directory already
// exists locally, for the "missing local parent directories" warning.
type LocalDirExists func(path string) bool

// Compute computes an AddonUpdatePlan per §4.K's rules:
//   - addFiles: in remote, not in local
//   - replaceFiles: in both, but local hash != remote hash
//   - deleteFiles: in local, but not declared in remote
//   - skipFiles: optional and present (in both, unchanged policy)
func Compute(local Local, remote Manifest, locked LockedSubtree, dirExists LocalDirExists) Plan {
	localByPath := make(map[string]LocalFile, len(local.Files))
	for _, f := range local.Files {
		localByPath[f.Path] = f
	}
	remoteByPath := make(map[string]RemoteFile, len(remote.Files))
	for _, f := range remote.Files {
		remoteByPath[f.Path] = f
	}

	p := Plan{
		LocalVersion:  local.Version,
		RemoteVersion: remote.Version,
		RemoteLocked:  remote.Locked,
	}

	for _, rf := range remote.Files {
		lf, existsLocally := localByPath[rf.Path]
		switch {
		case !existsLocally:
			p.AddFiles = append(p.AddFiles, rf.Path)
			p.EstimatedDownloadBytes += rf.Size
			if dirExists != nil && !dirExists(rf.Path) {
				p.Warnings = append(p.Warnings, "missing local parent directory for "+rf.Path)
			}
		case lf.Hash != rf.Hash:
			// A changed hash always means a real content difference, so
			// this takes priority over Optional: an optional file is only
			// ever skipped when it is present and unchanged (§4.K).
			p.ReplaceFiles = append(p.ReplaceFiles, rf.Path)
			p.EstimatedDownloadBytes += rf.Size
		case rf.Optional:
			p.SkipFiles = append(p.SkipFiles, rf.Path)
		}
	}

	for path := range localByPath {
		rf, stillDeclared := remoteByPath[path]
		if stillDeclared && !rf.Optional {
			continue
		}
		if stillDeclared && rf.Optional {
			continue
		}
		p.DeleteFiles = append(p.DeleteFiles, path)
		if locked != nil && locked(path) {
			p.Warnings = append(p.Warnings, "planned delete under locked subtree: "+path)
		}
	}

	sort.Strings(p.AddFiles)
	sort.Strings(p.ReplaceFiles)
	sort.Strings(p.DeleteFiles)
	sort.Strings(p.SkipFiles)

	p.HasUpdate = local.Version != remote.Version || len(p.AddFiles) > 0 || len(p.ReplaceFiles) > 0 || len(p.DeleteFiles) > 0
	if remote.Locked {
		p.HasUpdate = false
	}
	return p
}
