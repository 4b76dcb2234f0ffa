// Package install executes a planned list of InstallTasks against the
// real filesystem, one state machine per task (§4.F): staging content
// on the target's own filesystem so the final commit step can be a
// single atomic rename, then reconciling backups for a clean install.
package install

// State is one node of the per-task install state machine.
//
//	Planned → Preparing → Staging → Committing → Reconciling → Done
//	                          │           │            │
//	                          └─ Failing ─┴────────────┘
//	                                   │
//	                                Rolled-back
//
// PartiallyApplied is a second terminal failure state reachable only
// from Committing during an overwrite strategy, where already-written
// files cannot be un-written.
type State string

const (
	StatePlanned          State = "Planned"
	StatePreparing        State = "Preparing"
	StateStaging          State = "Staging"
	StateCommitting       State = "Committing"
	StateReconciling      State = "Reconciling"
	StateDone             State = "Done"
	StateFailing          State = "Failing"
	StateRolledBack       State = "Rolled-back"
	StatePartiallyApplied State = "PartiallyApplied"
)

// Terminal reports whether s is one the engine never transitions out
// of.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateRolledBack, StatePartiallyApplied:
		return true
	default:
		return false
	}
}
