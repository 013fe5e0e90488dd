package job

import (
	"log/slog"
	"time"
)

// ProgressFunc reports a task's fractional completion (0.0-1.0) within its
// phase band. The Job translates this into the job-wide percentage using
// the phase bands spec.md §4.1 defines for the indexer (and analogous
// bands for other job kinds).
type ProgressFunc func(fraction float64)

// CheckpointFunc persists an intermediate checkpoint blob without waiting
// for the task to finish, throttled by the job system's configured
// interval so it doesn't thrash the job database on every processed file.
type CheckpointFunc func(data []byte) error

// Runtime is the context a Task runs with: interruption control, progress
// reporting, mid-task checkpointing, warning collection, and a logger
// scoped to this job's rotating log file.
type Runtime struct {
	interrupter *Interrupter
	logger      *slog.Logger
	onProgress  ProgressFunc
	onCheckpoint CheckpointFunc
	onWarning   func(msg string)

	lastCheckpoint time.Time
	checkpointEvery time.Duration
}

// NewRuntime builds a Runtime for a single Task invocation.
func NewRuntime(
	interrupter *Interrupter,
	logger *slog.Logger,
	checkpointEvery time.Duration,
	onProgress ProgressFunc,
	onCheckpoint CheckpointFunc,
	onWarning func(string),
) *Runtime {
	return &Runtime{
		interrupter:     interrupter,
		logger:          logger,
		onProgress:      onProgress,
		onCheckpoint:    onCheckpoint,
		onWarning:       onWarning,
		checkpointEvery: checkpointEvery,
	}
}

// Interrupter exposes pause/cancel control to the running Task.
func (rt *Runtime) Interrupter() *Interrupter { return rt.interrupter }

// Logger returns the job's scoped logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Progress reports fractional progress (0.0-1.0) within the task's phase.
func (rt *Runtime) Progress(fraction float64) {
	if rt.onProgress != nil {
		rt.onProgress(fraction)
	}
}

// Warn records a non-critical, per-item failure on the job's warning list
// without failing the task (spec.md §7 KindNonCritical).
func (rt *Runtime) Warn(msg string) {
	if rt.onWarning != nil {
		rt.onWarning(msg)
	}
}

// MaybeCheckpoint persists data if checkpointEvery has elapsed since the
// last checkpoint, throttling writes during high-frequency loops (e.g. one
// call per filesystem entry during Discovery).
func (rt *Runtime) MaybeCheckpoint(data []byte) error {
	if rt.onCheckpoint == nil {
		return nil
	}

	if time.Since(rt.lastCheckpoint) < rt.checkpointEvery {
		return nil
	}

	rt.lastCheckpoint = time.Now()

	return rt.onCheckpoint(data)
}
