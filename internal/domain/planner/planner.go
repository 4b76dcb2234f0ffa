// Package planner resolves each analyzed InstallTask's destination,
// conflict state, default commit strategy, backup policy and size
// warning (§4.E) before the install engine ever touches the
// filesystem.
package planner

import (
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// Options configures a planning pass with the user's current settings.
type Options struct {
	// SimRoot is the flight-simulator installation root.
	SimRoot string
	// Locks are target paths (absolute, simRoot-relative resolved) the
	// user has refused to let the installer overwrite or clean-install.
	Locks []string
	// ConfigGlobs are the glob patterns backed up during an Aircraft
	// clean install, from user settings.
	ConfigGlobs []string
	// AllowOverwrite must be true for the planner to ever choose the
	// overwrite strategy by default; otherwise livery conflicts fall
	// back to clean (§4.F: "the Planner must refuse overwrite when the
	// user has not explicitly opted in").
	AllowOverwrite bool
}

// TargetPathFor computes the conflict-free, filesystem-independent
// destination for a task of the given kind and display name, relative
// to simRoot. It is pure so the analyzer can reuse it to detect
// cross-source target-path collisions before planning proper assigns
// conflict/strategy metadata.
func TargetPathFor(simRoot string, kind addon.Kind, displayName, liveryAircraftRef string) string {
	switch kind {
	case addon.Aircraft:
		return filepath.Join(simRoot, "Aircraft", displayName)
	case addon.Scenery, addon.SceneryLibrary:
		return filepath.Join(simRoot, "Custom Scenery", displayName)
	case addon.Plugin:
		return filepath.Join(simRoot, "Resources", "plugins", displayName)
	case addon.Navdata:
		return filepath.Join(simRoot, "Custom Data")
	case addon.Livery:
		parent := liveryAircraftRef
		if parent == "" {
			parent = displayName
		}
		return filepath.Join(simRoot, "Aircraft", parent, "liveries", lastSegment(displayName))
	case addon.Script:
		return filepath.Join(simRoot, "Resources", "plugins", "FlyWithLua", "Scripts", displayName)
	default:
		return ""
	}
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// Planner assigns targetPath, conflict, strategy, backupPolicy and
// sizeWarning to a batch of InstallTasks produced by the analyzer.
type Planner struct {
	fs   ports.FileSystem
	opts Options
}

// New creates a Planner.
func New(fs ports.FileSystem, opts Options) *Planner {
	return &Planner{fs: fs, opts: opts}
}

// Plan mutates each task in place, resolving its destination and
// default commit metadata. It also performs the cross-task dedup the
// spec assigns to the analyzer (§4.D): two tasks resolving to the same
// TargetPath in the same run are both flagged TargetPathConflict, on
// top of whichever per-task Conflict the filesystem itself reports.
func (p *Planner) Plan(tasks []*addon.InstallTask) {
	seen := make(map[string]int, len(tasks))
	for _, t := range tasks {
		p.planOne(t)
		seen[t.TargetPath]++
	}
	for _, t := range tasks {
		if t.TargetPath != "" && seen[t.TargetPath] > 1 {
			t.TargetPathConflict = true
		}
	}
}

func (p *Planner) planOne(t *addon.InstallTask) {
	t.TargetPath = TargetPathFor(p.opts.SimRoot, t.Kind, t.DisplayName, t.LiveryAircraftRef)

	t.Conflict = p.resolveConflict(t.TargetPath)
	t.Strategy = p.defaultStrategy(t.Kind, t.Conflict)
	t.BackupPolicy = p.backupPolicy(t.Kind, t.Strategy)

	if t.Conflict == addon.ConflictExistsLocked {
		t.Enabled = false
	} else if t.Kind != addon.Unrecognized {
		t.Enabled = true
	}
}

func (p *Planner) resolveConflict(targetPath string) addon.Conflict {
	if targetPath == "" {
		return addon.ConflictNone
	}
	for _, lock := range p.opts.Locks {
		if samePath(lock, targetPath) {
			return addon.ConflictExistsLocked
		}
	}
	if p.fs.Exists(targetPath) {
		return addon.ConflictExists
	}
	return addon.ConflictNone
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func (p *Planner) defaultStrategy(kind addon.Kind, conflict addon.Conflict) addon.Strategy {
	if conflict == addon.ConflictNone {
		return addon.StrategyFresh
	}
	switch kind {
	case addon.Livery:
		if p.opts.AllowOverwrite {
			return addon.StrategyOverwrite
		}
		return addon.StrategyClean
	default:
		return addon.StrategyClean
	}
}

func (p *Planner) backupPolicy(kind addon.Kind, strategy addon.Strategy) addon.BackupPolicy {
	if strategy != addon.StrategyClean {
		return addon.BackupPolicy{}
	}
	switch kind {
	case addon.Aircraft:
		return addon.BackupPolicy{Liveries: true, ConfigGlobs: append([]string(nil), p.opts.ConfigGlobs...)}
	case addon.Navdata:
		return addon.BackupPolicy{Navdata: true}
	default:
		return addon.BackupPolicy{ConfigGlobs: append([]string(nil), p.opts.ConfigGlobs...)}
	}
}
