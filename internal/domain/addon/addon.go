// Package addon holds the shared data model for the install pipeline:
// the kinds of content the installer recognizes and the InstallTask
// that carries one addon root from analysis through commit.
package addon

import "github.com/felixgeelhaar/addonctl/internal/domain/archivechain"

// Kind identifies the category of addon a task installs. A task has
// exactly one Kind.
type Kind string

const (
	Aircraft       Kind = "Aircraft"
	Scenery        Kind = "Scenery"
	SceneryLibrary Kind = "SceneryLibrary"
	Plugin         Kind = "Plugin"
	Navdata        Kind = "Navdata"
	Livery         Kind = "Livery"
	Script         Kind = "Script"
	Unrecognized   Kind = "Unrecognized"
)

// Conflict describes what the planner found at a task's target path.
type Conflict string

const (
	ConflictNone         Conflict = "none"
	ConflictExists       Conflict = "exists"
	ConflictExistsLocked Conflict = "exists-locked"
)

// Strategy is the commit algorithm the install engine runs for a task.
type Strategy string

const (
	StrategyFresh     Strategy = "fresh"
	StrategyClean     Strategy = "clean"
	StrategyOverwrite Strategy = "overwrite"
)

// SizeWarningKind distinguishes the two archive-bomb heuristics from
// §4.A.
type SizeWarningKind string

const (
	SizeWarningRatio    SizeWarningKind = "suspiciousRatio"
	SizeWarningAbsolute SizeWarningKind = "largeAbsolute"
)

// SizeWarning flags a task whose declared size crossed a bomb-detection
// threshold; the user must set Confirmed before the task may commit.
type SizeWarning struct {
	Kind      SizeWarningKind
	Ratio     float64
	Declared  int64
	Confirmed bool
}

// BackupPolicy controls what the install engine preserves from the
// previous install during a clean strategy (§4.E/§4.F).
type BackupPolicy struct {
	Liveries    bool
	ConfigGlobs []string
	Navdata     bool
}

// SourceRoot references where a task's content actually lives: either
// a plain filesystem directory, or a cursor position inside an archive
// chain. Exactly one of Dir or Chain is set.
type SourceRoot struct {
	Dir   string
	Chain *archivechain.Chain
}

// IsArchive reports whether the source is an archive chain rather than
// a loose directory.
func (s SourceRoot) IsArchive() bool { return s.Chain != nil }

// AircraftFound records whether a Livery task's target aircraft folder
// already exists in the destination (§4.D).
type AircraftFound string

const (
	AircraftFoundUnknown AircraftFound = ""
	AircraftFoundYes     AircraftFound = "yes"
	AircraftFoundNo      AircraftFound = "no"
)

// NavdataCycle is the AIRAC cycle identifier probed from an Earth nav
// data header, when recognizable.
type NavdataCycle struct {
	Cycle string
}

// InstallTask is one unit of work flowing analyzer → planner → install
// engine, per spec §3.
type InstallTask struct {
	ID          string
	Kind        Kind
	SourceRoot  SourceRoot
	DisplayName string
	// InternalRoot is the path within SourceRoot that is the actual
	// addon root (e.g. the parent directory of the .acf file).
	InternalRoot string
	TargetPath   string

	Conflict Conflict
	Strategy Strategy

	BackupPolicy BackupPolicy
	SizeWarning  *SizeWarning

	CompanionArtifacts []string

	// Enabled is false by default for exists-locked conflicts; the UI
	// may toggle it for everything else before commit.
	Enabled bool

	// Livery-specific metadata, set by the analyzer.
	LiveryAircraftRef string
	AircraftFound     AircraftFound

	// Navdata-specific metadata, set by the classifier.
	Navdata *NavdataCycle

	// TargetPathConflict flags that another task in the same run
	// resolved to the identical TargetPath (§4.D dedup rule).
	TargetPathConflict bool
}

// Validate checks the invariants from spec §3. It is intended to run
// right before commit, after the planner and any UI edits have had a
// chance to mutate the task.
func (t InstallTask) Validate() error {
	if t.Strategy == StrategyFresh && t.Conflict != ConflictNone {
		return invalid("strategy=fresh requires conflict=none")
	}
	if t.Conflict == ConflictNone && t.Strategy != StrategyFresh {
		return invalid("conflict=none requires strategy=fresh")
	}
	if t.BackupPolicy.Navdata && t.Kind != Navdata {
		return invalid("backupPolicy.navdata is only valid for kind=Navdata")
	}
	if t.Conflict == ConflictExistsLocked && t.Enabled {
		return invalid("a task with conflict=exists-locked must not be enabled")
	}
	return nil
}

func invalid(msg string) error {
	return &invariantError{msg: msg}
}

type invariantError struct{ msg string }

func (e *invariantError) Error() string { return "invalid install task: " + e.msg }
