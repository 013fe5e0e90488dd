package job

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spacedriveapp/sdcore/internal/jobstore"
	"github.com/spacedriveapp/sdcore/internal/metrics"
)

// minWorkers is the dispatcher's floor for total worker count, matching
// the teacher's WorkerPool.Start floor in internal/sync/worker.go.
const minWorkers = 2

// jobQueueItem is one entry in the dispatcher's priority heap.
type jobQueueItem struct {
	job   *Job
	index int
}

type jobPriorityQueue []*jobQueueItem

func (q jobPriorityQueue) Len() int { return len(q) }

func (q jobPriorityQueue) Less(i, k int) bool {
	if q[i].job.Priority() != q[k].job.Priority() {
		return q[i].job.Priority() > q[k].job.Priority()
	}

	return q[i].job.createdAt < q[k].job.createdAt
}

func (q jobPriorityQueue) Swap(i, k int) {
	q[i], q[k] = q[k], q[i]
	q[i].index = i
	q[k].index = k
}

func (q *jobPriorityQueue) Push(x any) {
	item := x.(*jobQueueItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *jobPriorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return item
}

// Dispatcher is the job system's runtime: a priority queue of pending jobs
// drained by a fixed worker pool, each worker running one job's task
// sequence to completion (or pause/cancel) and checkpointing progress to
// jobstore. Grounded on the teacher's WorkerPool/DepTracker pairing in
// internal/sync/worker.go and tracker.go, collapsed to a single priority
// queue since jobs here don't form a dependency DAG — concurrency is
// "run up to N jobs at once," not "run this job's steps in parallel."
type Dispatcher struct {
	mu      sync.Mutex
	queue   jobPriorityQueue
	jobs    map[string]*Job
	notify  chan struct{}

	store           *jobstore.Store
	logger          *slog.Logger
	checkpointEvery time.Duration
	nowMS           func() int64
	newJobLogger    func(jobID string) *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	succeeded     int
	failed        int
	activeWorkers int
	statsMu       sync.Mutex
}

// Config configures a Dispatcher's checkpointing cadence and worker count.
type Config struct {
	Workers            int
	CheckpointInterval time.Duration
}

// NewDispatcher builds a Dispatcher backed by store. newJobLogger scopes a
// logger (and, via internal/job/logfile.go, a rotating per-job log file)
// to each job as it starts running. nowMS supplies the current time in
// Unix milliseconds, injectable for deterministic tests.
func NewDispatcher(
	store *jobstore.Store,
	logger *slog.Logger,
	cfg Config,
	newJobLogger func(jobID string) *slog.Logger,
	nowMS func() int64,
) *Dispatcher {
	return &Dispatcher{
		jobs:            make(map[string]*Job),
		notify:          make(chan struct{}, 1),
		store:           store,
		logger:          logger,
		checkpointEvery: cfg.CheckpointInterval,
		nowMS:           nowMS,
		newJobLogger:    newJobLogger,
	}
}

// Submit enqueues a job for dispatch and persists its initial record.
func (d *Dispatcher) Submit(ctx context.Context, j *Job) error {
	d.mu.Lock()
	d.jobs[j.id] = j
	heap.Push(&d.queue, &jobQueueItem{job: j})
	depth := d.queue.Len()
	d.mu.Unlock()

	if err := d.checkpoint(ctx, j); err != nil {
		return fmt.Errorf("job: persist submitted job %s: %w", j.id, err)
	}

	metrics.RecordJobStarted(j.kind)
	metrics.SetJobQueueDepth(depth)

	d.signal()

	return nil
}

// Job looks up a previously submitted or resumed job by ID.
func (d *Dispatcher) Job(id string) (*Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, ok := d.jobs[id]

	return j, ok
}

// Start spawns workers pulling from the priority queue. Minimum
// minWorkers, matching the teacher's worker pool floor.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	if workers < minWorkers {
		workers = minWorkers
	}

	ctx, d.cancel = context.WithCancel(ctx)

	for range workers {
		d.wg.Add(1)

		go d.worker(ctx)
	}

	d.logger.Info("job dispatcher started", "workers", workers)
}

// Stop cancels all in-flight jobs at their next checkpoint and waits for
// workers to exit.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}

	d.wg.Wait()
}

// Stats returns the count of jobs that have finished successfully or
// failed since the dispatcher started.
func (d *Dispatcher) Stats() (succeeded, failed int) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	return d.succeeded, d.failed
}

// incActiveWorkers adjusts the running-worker count by delta and returns
// the new value, for metrics.SetJobActiveWorkers to report.
func (d *Dispatcher) incActiveWorkers(delta int) int {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	d.activeWorkers += delta

	return d.activeWorkers
}

func (d *Dispatcher) signal() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		j := d.popNext()
		if j == nil {
			select {
			case <-ctx.Done():
				return
			case <-d.notify:
				continue
			case <-time.After(time.Second):
				continue
			}
		}

		d.runJob(ctx, j)
	}
}

func (d *Dispatcher) popNext() *Job {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue.Len() == 0 {
		return nil
	}

	item := heap.Pop(&d.queue).(*jobQueueItem)

	return item.job
}

func (d *Dispatcher) runJob(ctx context.Context, j *Job) {
	logger := d.logger
	if d.newJobLogger != nil {
		logger = d.newJobLogger(j.id)
	}

	metrics.SetJobActiveWorkers(d.incActiveWorkers(1))
	defer metrics.SetJobActiveWorkers(d.incActiveWorkers(-1))

	started := time.Now()

	err := j.Run(ctx, logger, d.checkpointEvery, func(taskIndex int, progressPercent float64, taskState []byte) error {
		return d.checkpointWithState(ctx, j, taskState)
	}, d.nowMS)

	d.statsMu.Lock()
	if err != nil {
		d.failed++
	} else {
		d.succeeded++
	}
	d.statsMu.Unlock()

	metrics.RecordJobCompleted(j.kind, err == nil, time.Since(started))

	d.mu.Lock()
	depth := d.queue.Len()
	d.mu.Unlock()
	metrics.SetJobQueueDepth(depth)

	if err != nil {
		logger.Error("job finished with error", "job_id", j.id, "kind", j.kind, "error", err)
	} else {
		logger.Info("job completed", "job_id", j.id, "kind", j.kind)
	}
}

func (d *Dispatcher) checkpoint(ctx context.Context, j *Job) error {
	return d.checkpointWithState(ctx, j, nil)
}

func (d *Dispatcher) checkpointWithState(ctx context.Context, j *Job, taskState []byte) error {
	status, currentTaskIndex, progressPercent, warnings, errMessage, createdAt, updatedAt, startedAt, completedAt := j.Snapshot()

	r := &jobstore.Record{
		ID:               j.id,
		Kind:             j.kind,
		Priority:         int(j.priority),
		Status:           status,
		ProgressPercent:  progressPercent,
		CurrentTaskIndex: currentTaskIndex,
		TaskState:        taskState,
		Warnings:         warnings,
		ErrorMessage:     errMessage,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
		StartedAt:        startedAt,
		CompletedAt:      completedAt,
	}

	return d.store.Upsert(ctx, r)
}
