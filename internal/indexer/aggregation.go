package indexer

import (
	"context"
	"sort"
	"time"

	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/metrics"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/sdcerr"
)

// aggregationTaskKind is this task's registry key.
const aggregationTaskKind = "indexer.aggregation"

// aggregationTask recomputes every directory's aggregate_size, child_count,
// and file_count bottom-up: deepest directories first, each folding in its
// already-computed children's totals. Grounded on spec.md §4.1's
// "deepest-first directory walk using the closure table" — depth here
// comes from internal/store's entry_closure ancestor-count query, so a
// directory's processing order is determined by the closure table even
// though each fold step only reads its direct children.
type aggregationTask struct {
	p     *pipeline
	nowMS func() int64
}

func newAggregationTask(p *pipeline, nowMS func() int64) *aggregationTask {
	return &aggregationTask{p: p, nowMS: nowMS}
}

func (t *aggregationTask) Kind() string { return aggregationTaskKind }

type dirTotals struct {
	size  int64
	child int
	file  int
}

func (t *aggregationTask) Run(ctx context.Context, rt *job.Runtime) error {
	entries, err := t.p.store.ListEntriesByLocation(ctx, t.p.location.ID)
	if err != nil {
		return sdcerr.Fatal("indexer.aggregation", t.p.location.ID, err)
	}

	if len(entries) == 0 {
		rt.Progress(1.0)
		t.recordRunMetrics(true)

		return nil
	}

	childrenByParent := make(map[string][]*model.Entry)

	var dirs []*model.Entry

	for _, e := range entries {
		childrenByParent[e.ParentID] = append(childrenByParent[e.ParentID], e)

		if e.Kind == model.EntryKindDirectory {
			dirs = append(dirs, e)
		}
	}

	depth := make(map[string]int, len(dirs))

	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}

		ancestors, err := t.p.store.ListAncestors(ctx, d.ID)
		if err != nil {
			return sdcerr.Fatal("indexer.aggregation", d.ID, err)
		}

		depth[d.ID] = len(ancestors)
	}

	sort.Slice(dirs, func(i, j int) bool { return depth[dirs[i].ID] > depth[dirs[j].ID] })

	now := t.nowMS()
	totals := make(map[string]dirTotals, len(dirs))

	for i, d := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}

		var tot dirTotals

		for _, c := range childrenByParent[d.ID] {
			tot.child++

			if c.Kind == model.EntryKindDirectory {
				childTot := totals[c.ID]
				tot.size += childTot.size
				tot.file += childTot.file
			} else if c.Kind == model.EntryKindFile {
				tot.size += c.Size
				tot.file++
			}
		}

		totals[d.ID] = tot

		if err := t.p.store.SetEntryAggregates(ctx, d.ID, tot.size, tot.child, tot.file, now); err != nil {
			return sdcerr.Fatal("indexer.aggregation", d.ID, err)
		}

		rt.Progress(float64(i+1) / float64(len(dirs)))
	}

	t.p.stats.Bytes = totals[t.p.location.RootEntryID].size

	t.recordRunMetrics(true)

	return nil
}

// recordRunMetrics reports this run's final Stats to internal/metrics.
// Called only from Aggregation, the pipeline's last task, since Stats
// isn't complete until every earlier phase has run.
func (t *aggregationTask) recordRunMetrics(success bool) {
	var duration time.Duration
	if !t.p.startedAt.IsZero() {
		duration = time.Since(t.p.startedAt)
	}

	s := t.p.stats
	metrics.RecordIndexerRun(success, s.Files, s.Dirs, s.Symlinks, s.Skipped, s.Errors, s.Bytes, duration)
}

// Checkpoint is a no-op: Aggregation recomputes fully from store state on
// every run, so it's naturally idempotent and needs no saved cursor.
func (t *aggregationTask) Checkpoint() ([]byte, error) { return nil, nil }
