package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacedriveapp/sdcore/internal/jobstore"
)

// Status mirrors jobstore.Status; re-exported so callers need not import
// both packages for the common case.
type Status = jobstore.Status

// Job lifecycle states (aliases of jobstore's, kept here for ergonomics).
const (
	StatusQueued    = jobstore.StatusQueued
	StatusRunning   = jobstore.StatusRunning
	StatusPaused    = jobstore.StatusPaused
	StatusCompleted = jobstore.StatusCompleted
	StatusFailed    = jobstore.StatusFailed
	StatusCancelled = jobstore.StatusCancelled
)

// Job is a priority-ordered, checkpointed sequence of Tasks — a
// JobTaskDispatcher in spec.md's terms — run to completion by the
// Dispatcher's worker pool. The indexer's four phases are the four tasks
// of one "index location" job; a sync backfill is a single-task job.
type Job struct {
	mu sync.Mutex

	id       string
	kind     string
	priority Priority
	tasks    []Task

	status           Status
	currentTaskIndex int
	progressPercent  float64
	warnings         []string
	errMessage       string

	createdAt   int64
	updatedAt   int64
	startedAt   int64
	completedAt int64

	interrupter *Interrupter
	logger      *slog.Logger
}

// New constructs a queued Job from an ordered list of tasks. nowMS is the
// caller's current time in Unix milliseconds (injected so job creation
// stays deterministic in tests).
func New(id, kind string, priority Priority, tasks []Task, nowMS int64) *Job {
	return &Job{
		id:        id,
		kind:      kind,
		priority:  priority,
		tasks:     tasks,
		status:    StatusQueued,
		createdAt: nowMS,
		updatedAt: nowMS,
	}
}

// Restore reconstructs a Job from a persisted jobstore.Record, positioned
// to resume from its last completed task. Callers that need to carry
// shared state across task boundaries (e.g. internal/indexer's pipeline,
// whose Discovery-phase output must survive a crash even though later
// phases don't re-run it) restore that state into the tasks themselves
// before calling Restore — the generic task-kind registry
// (RegisterTaskKind/NewTaskForKind) only fits task kinds with no
// cross-task shared state, since its factories take no arguments.
func Restore(rec *jobstore.Record, tasks []Task) *Job {
	j := New(rec.ID, rec.Kind, Priority(rec.Priority), tasks, rec.CreatedAt)
	j.currentTaskIndex = rec.CurrentTaskIndex
	j.progressPercent = rec.ProgressPercent
	j.status = StatusQueued
	j.updatedAt = rec.UpdatedAt
	j.startedAt = rec.StartedAt
	j.errMessage = rec.ErrorMessage

	if rec.Warnings != "" {
		j.warnings = strings.Split(rec.Warnings, "\n")
	}

	return j
}

// ID returns the job's identifier.
func (j *Job) ID() string { return j.id }

// Kind returns the job's type string, e.g. "indexer.location".
func (j *Job) Kind() string { return j.kind }

// Priority returns the job's dispatch priority.
func (j *Job) Priority() Priority { return j.priority }

// WithPriority returns a copy of the job's priority setting applied — used
// by callers that need to escalate a queued job (e.g. a user-triggered
// re-index jumping ahead of background maintenance).
func (j *Job) WithPriority(p Priority) *Job {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.priority = p

	return j
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.status
}

// Progress returns the job-wide completion percentage (0-100).
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.progressPercent
}

// Warnings returns the accumulated non-critical failure messages.
func (j *Job) Warnings() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]string, len(j.warnings))
	copy(out, j.warnings)

	return out
}

// Pause requests the currently running task suspend at its next
// CheckPoint.
func (j *Job) Pause() {
	j.mu.Lock()
	in := j.interrupter
	j.mu.Unlock()

	if in != nil {
		in.Pause()
	}
}

// Resume releases a paused job.
func (j *Job) Resume() {
	j.mu.Lock()
	in := j.interrupter
	j.mu.Unlock()

	if in != nil {
		in.Resume()
	}
}

// Cancel requests the job stop at its next CheckPoint, moving it to
// StatusCancelled once the running task observes the cancellation.
func (j *Job) Cancel() {
	j.mu.Lock()
	in := j.interrupter
	j.mu.Unlock()

	if in != nil {
		in.Cancel()
	}
}

// taskProgressBand returns the [start, end) percentage band a task index
// occupies within the job's overall progress, evenly dividing 0-100 across
// len(tasks) tasks. Individual task kinds (the indexer's four phases) may
// report finer-grained bands by overriding via WithBands, but the even
// split is the sane default for single- or few-task jobs.
func (j *Job) taskProgressBand(index int) (start, end float64) {
	n := float64(len(j.tasks))
	if n == 0 {
		return 0, 100
	}

	return 100 * float64(index) / n, 100 * float64(index+1) / n
}

// Run executes the job's remaining tasks in order, starting from
// currentTaskIndex (nonzero when resuming). checkpoint is called after
// every task completes and, throttled by checkpointEvery, during a task's
// execution. logger should already be scoped to this job (see
// internal/job's log file helpers).
func (j *Job) Run(
	ctx context.Context,
	logger *slog.Logger,
	checkpointEvery time.Duration,
	onCheckpoint func(taskIndex int, progressPercent float64, taskState []byte) error,
	nowMS func() int64,
) error {
	j.mu.Lock()
	j.status = StatusRunning
	if j.startedAt == 0 {
		j.startedAt = nowMS()
	}
	j.interrupter = NewInterrupter(ctx)
	startIndex := j.currentTaskIndex
	j.mu.Unlock()

	for i := startIndex; i < len(j.tasks); i++ {
		task := j.tasks[i]
		bandStart, bandEnd := j.taskProgressBand(i)

		rt := NewRuntime(
			j.interrupter,
			logger.With("job_id", j.id, "task_kind", task.Kind()),
			checkpointEvery,
			func(fraction float64) {
				j.mu.Lock()
				j.progressPercent = bandStart + fraction*(bandEnd-bandStart)
				j.mu.Unlock()
			},
			func(data []byte) error {
				j.mu.Lock()
				progress := j.progressPercent
				j.mu.Unlock()

				return onCheckpoint(i, progress, data)
			},
			func(msg string) {
				j.mu.Lock()
				j.warnings = append(j.warnings, msg)
				j.mu.Unlock()
			},
		)

		if err := task.Run(ctx, rt); err != nil {
			return j.finishTask(i, task, err, onCheckpoint, nowMS)
		}

		if err := j.finishTask(i, task, nil, onCheckpoint, nowMS); err != nil {
			return err
		}
	}

	j.mu.Lock()
	j.status = StatusCompleted
	j.progressPercent = 100
	j.completedAt = nowMS()
	j.mu.Unlock()

	return nil
}

func (j *Job) finishTask(
	index int,
	task Task,
	taskErr error,
	onCheckpoint func(taskIndex int, progressPercent float64, taskState []byte) error,
	nowMS func() int64,
) error {
	state, checkpointErr := task.Checkpoint()
	if checkpointErr != nil {
		state = nil
	}

	j.mu.Lock()
	j.updatedAt = nowMS()

	switch {
	case taskErr != nil && isCancellation(taskErr):
		j.status = StatusCancelled
		j.completedAt = j.updatedAt
	case taskErr != nil:
		j.status = StatusFailed
		j.errMessage = taskErr.Error()
		j.completedAt = j.updatedAt
	default:
		j.currentTaskIndex = index + 1
	}

	progress := j.progressPercent
	j.mu.Unlock()

	if err := onCheckpoint(index, progress, state); err != nil {
		return fmt.Errorf("job: checkpoint after task %d (%s): %w", index, task.Kind(), err)
	}

	if taskErr != nil {
		return taskErr
	}

	return nil
}

func isCancellation(err error) bool {
	return err != nil && strings.Contains(err.Error(), context.Canceled.Error())
}

// ErrMessage returns the failure message recorded when the job transitions
// to StatusFailed.
func (j *Job) ErrMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.errMessage
}

// Snapshot captures enough state to persist the job via jobstore.Record.
func (j *Job) Snapshot() (status Status, currentTaskIndex int, progressPercent float64, warnings, errMessage string, createdAt, updatedAt, startedAt, completedAt int64) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.status, j.currentTaskIndex, j.progressPercent, strings.Join(j.warnings, "\n"),
		j.errMessage, j.createdAt, j.updatedAt, j.startedAt, j.completedAt
}
