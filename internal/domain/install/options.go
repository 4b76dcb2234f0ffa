package install

// Options configures one Engine.
type Options struct {
	// Workers bounds how many tasks commit concurrently (P in §4.F/§5).
	// Zero or negative means 1.
	Workers int
	// AllowOverwrite gates the overwrite strategy: §4.F requires the
	// planner (and, in depth, the engine) to refuse it unless the user
	// has explicitly opted in, since an overwrite cannot be rolled back
	// on cancellation.
	AllowOverwrite bool
	// MemoryThresholdBytes is M from §4.B: ZIP-in-ZIP nodes at or under
	// this size are held in memory rather than spooled to a temp file.
	// Zero means the engine's default of 200 MiB.
	MemoryThresholdBytes int64
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// Result is the terminal outcome of running one InstallTask.
type Result struct {
	TaskID string
	State  State
	Err    error
	// PartiallyAppliedFiles lists the target-relative paths already
	// overwritten when an overwrite-strategy commit failed partway
	// through (§4.F: "the only state where the engine admits partial
	// failure by design").
	PartiallyAppliedFiles []string
}
