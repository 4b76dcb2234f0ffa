package events

import (
	"math"
	"time"
)

// halfLife is the exponentially-weighted moving average half-life for
// Tracker's speed estimate (§4.F: "half-life 1s").
const halfLife = time.Second

// Tracker accumulates one task's progress into well-formed Events:
// percent clamped to [0,100] and non-decreasing within a Stage (it may
// reset when the stage changes), and a speed estimate smoothed with an
// EWMA of the given half-life rather than a raw instantaneous rate.
type Tracker struct {
	taskID string
	bus    *Bus

	stage         Stage
	maxPercent    float64
	lastSampleAt  time.Time
	lastProcessed int64
	speed         float64
	haveSpeed     bool
}

// NewTracker creates a Tracker that publishes to bus on behalf of
// taskID.
func NewTracker(bus *Bus, taskID string) *Tracker {
	return &Tracker{bus: bus, taskID: taskID}
}

// Start begins a new stage, resetting percent monotonicity and the
// speed estimate (the spec permits percent to reset between stages).
func (t *Tracker) Start(stage Stage, message string) {
	t.stage = stage
	t.maxPercent = 0
	t.haveSpeed = false
	t.lastSampleAt = time.Now()
	t.publish(StatusStarted, 0, 0, 0, message)
}

// Advance reports processedBytes out of totalBytes within the current
// stage at now, updating the EWMA speed estimate and clamping the
// reported percent to be monotonic.
func (t *Tracker) Advance(now time.Time, processedBytes, totalBytes int64, message string) {
	percent := percentOf(processedBytes, totalBytes)
	if percent < t.maxPercent {
		percent = t.maxPercent
	}
	t.maxPercent = percent

	dt := now.Sub(t.lastSampleAt)
	if dt > 0 {
		instant := 0.0
		if t.lastProcessed > 0 || processedBytes > 0 {
			instant = float64(processedBytes-t.lastProcessed) / dt.Seconds()
		}
		t.updateSpeed(instant, dt)
		t.lastProcessed = processedBytes
		t.lastSampleAt = now
	}

	t.publish(StatusInProgress, percent, processedBytes, totalBytes, message)
}

func (t *Tracker) updateSpeed(instant float64, dt time.Duration) {
	alpha := 1 - math.Exp2(-float64(dt)/float64(halfLife))
	if !t.haveSpeed {
		t.speed = instant
		t.haveSpeed = true
		return
	}
	t.speed = t.speed + alpha*(instant-t.speed)
}

// Complete reports the stage finished successfully; percent is forced
// to 100 per the "completed implies 100" invariant (§8 property 5).
func (t *Tracker) Complete(message string) {
	t.maxPercent = 100
	t.publish(StatusCompleted, 100, 0, 0, message)
}

// Fail reports the stage failed.
func (t *Tracker) Fail(message string) {
	t.publish(StatusFailed, t.maxPercent, 0, 0, message)
}

// Cancel reports the stage was cancelled.
func (t *Tracker) Cancel(message string) {
	t.publish(StatusCancelled, t.maxPercent, 0, 0, message)
}

func (t *Tracker) publish(status Status, percent float64, processed, total int64, message string) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(Event{
		TaskID:           t.taskID,
		Stage:            t.stage,
		Status:           status,
		Percent:          percent,
		ProcessedBytes:   processed,
		TotalBytes:       total,
		SpeedBytesPerSec: t.speed,
		Message:          message,
		At:               time.Now(),
	})
}

func percentOf(processed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(processed) / float64(total) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
