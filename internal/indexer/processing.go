package indexer

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/spacedriveapp/sdcore/internal/contenthash"
	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/sdcerr"
)

// processingTaskKind is this task's registry key.
const processingTaskKind = "indexer.processing"

// defaultBatchSize is used when Options.BatchSize is unset.
const defaultBatchSize = 750

// processingTask assigns entry UUIDs to Discovery's walked list, resolves
// parent UUIDs, and batch-writes entries plus their closure rows in
// BatchSize-row transactions. Grounded on the teacher's baseline
// batch-upsert style (internal/sync/baseline.go) and spec.md §4.1's call
// for 500-1000 row transactions. Like the teacher's Scanner
// (internal/sync/scanner.go), an entry's identity is resolved by looking
// up any existing row for its path hash first, rather than trusting a
// freshly generated UUID to survive an upsert conflict — this keeps
// closure-table writes (which are keyed by the resolved ID, not the
// generated one) correct when Processing re-runs after a crash.
type processingTask struct {
	p       *pipeline
	nowMS   func() int64
	pending int // rows durably written so far, for progress on resume
}

func newProcessingTask(p *pipeline, nowMS func() int64) *processingTask {
	return &processingTask{p: p, nowMS: nowMS}
}

func (t *processingTask) Kind() string { return processingTaskKind }

func (t *processingTask) Run(ctx context.Context, rt *job.Runtime) error {
	if len(t.p.walked) == 0 {
		return nil
	}

	batchSize := t.p.opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	idsByRelPath := make(map[string]string, len(t.p.walked))
	now := t.nowMS()

	entries := make([]*model.Entry, 0, len(t.p.walked))

	for _, we := range t.p.walked {
		id, err := t.resolveID(ctx, we.relPath)
		if err != nil {
			return sdcerr.Fatal("indexer.processing", we.relPath, err)
		}

		idsByRelPath[we.relPath] = id
	}

	for i, we := range t.p.walked {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind := we.kind
		if i == 0 {
			kind = model.EntryKindDirectory
		}

		entries = append(entries, &model.Entry{
			ID:         idsByRelPath[we.relPath],
			LocationID: t.p.location.ID,
			ParentID:   idsByRelPath[we.parentPath],
			Name:       we.name,
			Kind:       kind,
			Extension:  strings.TrimPrefix(filepath.Ext(we.name), "."),
			Size:       we.size,
			Inode:      we.inode,
			PathHash:   contenthash.Fingerprint(we.relPath),
			CreatedAt:  now,
			ModifiedAt: we.modifiedAt,
			AccessedAt: we.accessedAt,
			UpdatedAt:  now,
		})
	}

	// The root entry (index 0, relPath "") has no parent row of its own.
	entries[0].ParentID = ""

	if err := t.writeBatches(ctx, rt, entries, batchSize); err != nil {
		return err
	}

	if t.p.location.RootEntryID == "" {
		t.p.location.RootEntryID = entries[0].ID
	}

	rt.Progress(1.0)

	return nil
}

func (t *processingTask) resolveID(ctx context.Context, relPath string) (string, error) {
	existing, err := t.p.store.GetEntryByPathHash(ctx, t.p.location.ID, contenthash.Fingerprint(relPath))
	if err != nil {
		return "", err
	}

	if existing != nil {
		return existing.ID, nil
	}

	return uuid.NewString(), nil
}

func (t *processingTask) writeBatches(ctx context.Context, rt *job.Runtime, entries []*model.Entry, batchSize int) error {
	for start := 0; start < len(entries); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+batchSize, len(entries))
		batch := entries[start:end]

		if err := t.p.store.BatchUpsertEntries(ctx, batch); err != nil {
			return sdcerr.Fatal("indexer.processing", t.p.location.ID, err)
		}

		for _, e := range batch {
			if e.ParentID == "" && e.ID != entries[0].ID {
				continue
			}

			if err := t.p.store.InsertClosureForEntry(ctx, e.ID, e.ParentID); err != nil {
				return sdcerr.Fatal("indexer.processing", e.ID, err)
			}
		}

		t.pending = end
		rt.Progress(float64(end) / float64(len(entries)))

		if err := rt.MaybeCheckpoint([]byte(strconv.Itoa(t.pending))); err != nil {
			return err
		}
	}

	return nil
}

// Checkpoint records how many rows have been durably written so far.
// Processing itself is idempotent on resume (resolveID looks up existing
// rows before minting new ones), so this count is informational progress
// state rather than a strict resume cursor.
func (t *processingTask) Checkpoint() ([]byte, error) {
	return []byte(strconv.Itoa(t.pending)), nil
}

func (t *processingTask) RestoreCheckpoint(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}

	t.pending = n

	return nil
}
