package indexer

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/jobstore"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
)

// LocationJobKind is the job.Kind string for an indexing run, persisted in
// jobstore.Record and used by dashboards/logs to identify job type.
const LocationJobKind = "indexer.location"

// NewIndexLocationJob builds a fresh (non-resumed) indexing job for loc:
// Discovery and Processing always run; Content-Identification runs only
// when loc.IndexMode is model.IndexModeContent; Aggregation always runs
// last. Progress bands follow spec.md §4.1 (0-20/20-60/60-98/98-100%),
// achieved simply by giving Job's even per-task split the right task
// count — three tasks for deep mode, four for content mode. The
// returned *Stats is populated as the job's tasks run and is stable to
// read once the job reaches a terminal status.
func NewIndexLocationJob(
	st *store.Store,
	deviceID string,
	loc *model.Location,
	opts Options,
	priority job.Priority,
	nowMS func() int64,
) (*job.Job, *Stats) {
	p := &pipeline{store: st, location: loc, deviceID: deviceID, opts: opts}

	tasks := buildTasks(p, nowMS)

	j := job.New(uuid.NewString(), LocationJobKind, priority, tasks, nowMS())

	return j, &p.stats
}

// ResumeIndexLocationJob reconstructs an indexing job from a persisted
// jobstore.Record. Discovery's walked-entry list (the only cross-task
// shared state the pipeline holds) is restored from the record's
// TaskState blob before the job resumes, regardless of which task index
// it resumes at — Processing, Content-Identification, and Aggregation
// all depend on entries that Discovery already walked in the original
// run, which the process's in-memory pipeline no longer holds after a
// restart.
func ResumeIndexLocationJob(
	st *store.Store,
	deviceID string,
	loc *model.Location,
	opts Options,
	nowMS func() int64,
	rec *jobstore.Record,
) (*job.Job, *Stats, error) {
	p := &pipeline{store: st, location: loc, deviceID: deviceID, opts: opts}

	if len(rec.TaskState) > 0 {
		if err := json.Unmarshal(rec.TaskState, &p.walked); err != nil {
			return nil, nil, err
		}
	}

	tasks := buildTasks(p, nowMS)

	return job.Restore(rec, tasks), &p.stats, nil
}

func buildTasks(p *pipeline, nowMS func() int64) []job.Task {
	root := contentIDRootPath(p.location, p.opts.Shallow, p.opts.ShallowPath)

	tasks := []job.Task{
		newDiscoveryTask(p),
		newProcessingTask(p, nowMS),
	}

	if p.opts.IndexMode == model.IndexModeContent {
		tasks = append(tasks, newContentIDTask(p, nowMS, root))
	}

	tasks = append(tasks, newAggregationTask(p, nowMS))

	return tasks
}
