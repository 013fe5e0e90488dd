// Package job implements the persistent, resumable, checkpointed task
// runtime of spec.md §4.2. A Job is a priority-ordered sequence of Tasks —
// the indexer's four phases are one job's four tasks, for instance — run
// to completion, paused, or cancelled cooperatively through an
// Interrupter, and checkpointed to internal/jobstore between tasks and at
// a configurable interval during a single long-running task.
package job

import (
	"context"
	"fmt"
)

// Priority orders jobs within the dispatcher's ready queue. Higher runs
// first.
type Priority int

// Priority bands used across the indexer, sync engine, and user-triggered
// actions (spec.md §4.2).
const (
	PriorityBackground Priority = 0
	PriorityNormal     Priority = 5
	PriorityInteractive Priority = 10
)

// Task is one unit of work within a Job. Implementations live in the
// indexer, sync engine, and volume packages; each registers a constructor
// under its Kind with RegisterTaskKind so the dispatcher can rebuild a Task
// from its serialized checkpoint after a restart.
type Task interface {
	// Kind identifies the task type for serialization/deserialization,
	// e.g. "indexer.discovery".
	Kind() string

	// Run executes the task to completion, reporting incremental progress
	// through rt. It must check rt.Interrupter().CheckPoint periodically
	// (between filesystem entries, batches, or rows) so Pause/Cancel take
	// effect promptly rather than only between tasks.
	Run(ctx context.Context, rt *Runtime) error

	// Checkpoint returns a serialized snapshot of the task's progress,
	// stored in jobstore.Record.TaskState. Called after Run returns and,
	// for long tasks, periodically during Run via rt.Checkpoint().
	Checkpoint() ([]byte, error)
}

// Resumable is implemented by tasks that can restore progress from a prior
// checkpoint instead of starting over — the indexer's phases all implement
// it so a crash mid-Discovery resumes from the last committed batch rather
// than re-walking the whole tree.
type Resumable interface {
	Task
	RestoreCheckpoint(data []byte) error
}

// TaskFactory constructs a zero-value Task of a given kind, ready for
// RestoreCheckpoint to populate it.
type TaskFactory func() Task

var taskRegistry = map[string]TaskFactory{}

// RegisterTaskKind makes a task kind constructible by the dispatcher when
// resuming jobs from jobstore after a restart. Called from package init()
// in the indexer, syncengine, and volume packages.
func RegisterTaskKind(kind string, factory TaskFactory) {
	taskRegistry[kind] = factory
}

// NewTaskForKind looks up a registered factory and constructs a blank Task,
// returning an error if kind was never registered.
func NewTaskForKind(kind string) (Task, error) {
	factory, ok := taskRegistry[kind]
	if !ok {
		return nil, fmt.Errorf("job: no task factory registered for kind %q", kind)
	}

	return factory(), nil
}
