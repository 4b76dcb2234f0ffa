package events

import "time"

// Stage is one phase of a task's lifecycle, reported on every
// progress event (§4.F).
type Stage string

const (
	StageScan      Stage = "scan"
	StageExtract   Stage = "extract"
	StageStage     Stage = "stage"
	StageCommit    Stage = "commit"
	StageReconcile Stage = "reconcile"
	StageCleanup   Stage = "cleanup"
)

// Status is a task's condition within a Stage.
type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	// StatusDropped marks a synthetic event the Bus itself emits when
	// it had to discard events under backpressure; it carries no
	// TaskID since it describes the bus, not a task.
	StatusDropped Status = "dropped"
)

// Event is one structured progress notification (§4.F).
type Event struct {
	TaskID           string
	Stage            Stage
	Status           Status
	Percent          float64
	ProcessedBytes   int64
	TotalBytes       int64
	SpeedBytesPerSec float64
	Message          string
	At               time.Time
}
