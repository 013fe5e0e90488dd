package indexer

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/google/uuid"

	"github.com/spacedriveapp/sdcore/internal/contenthash"
	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/sdcerr"
	"github.com/spacedriveapp/sdcore/internal/sdpath"
)

// contentIDTaskKind is this task's registry key.
const contentIDTaskKind = "indexer.contentid"

// defaultContentWorkers bounds hashing concurrency when Options.ContentWorkers
// is unset.
const defaultContentWorkers = 4

// contentIdentityNamespace is the UUIDv5/SHA1 namespace ContentIdentity IDs
// are derived from (see contentIdentityID). Any fixed UUID works as a
// namespace; this one has no meaning beyond being stable across builds.
var contentIdentityNamespace = uuid.MustParse("c9c1b45e-6d0b-4fda-9f9e-2f5b6a2a9b5a")

// contentIdentityID derives a ContentIdentity's UUID deterministically from
// its content hash, per spec.md §3: two devices that index byte-identical
// content must mint the same ContentIdentity ID, or the sync reconciler
// (which keys GetContentIdentity lookups on this ID) never recognizes them
// as the same record. uuid.NewSHA1 makes that derivation a pure function of
// the hash, so every device — and every concurrent goroutine hashing the
// same bytes in this process — computes the identical ID independently,
// with no coordination required.
func contentIdentityID(contentHash string) string {
	return uuid.NewSHA1(contentIdentityNamespace, []byte(contentHash)).String()
}

// contentIDTask streams every unidentified file entry's bytes through
// BLAKE3 and links it to a shared ContentIdentity, bounded by a worker
// semaphore. Only runs when the Location's IndexMode is
// model.IndexModeContent. Grounded on spec.md §4.1's description of this
// phase; the semaphore-bounded worker pattern follows the teacher's
// WorkerPool capacity gating (internal/sync/worker.go), narrowed to
// golang.org/x/sync/semaphore since this phase has no dependency graph to
// track, unlike the job Dispatcher.
type contentIDTask struct {
	p      *pipeline
	nowMS  func() int64
	root   string
	done   atomic.Int64
	errMu  sync.Mutex
	errors []string
}

func newContentIDTask(p *pipeline, nowMS func() int64, root string) *contentIDTask {
	return &contentIDTask{p: p, nowMS: nowMS, root: root}
}

func (t *contentIDTask) Kind() string { return contentIDTaskKind }

func (t *contentIDTask) Run(ctx context.Context, rt *job.Runtime) error {
	entries, err := t.p.store.ListUnidentifiedEntries(ctx, t.p.location.ID)
	if err != nil {
		return sdcerr.Fatal("indexer.contentid", t.p.location.ID, err)
	}

	if len(entries) == 0 {
		rt.Progress(1.0)
		return nil
	}

	workers := t.p.opts.ContentWorkers
	if workers <= 0 {
		workers = defaultContentWorkers
	}

	sem := semaphore.NewWeighted(int64(workers))

	var wg sync.WaitGroup

	total := len(entries)

	for _, e := range entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context cancelled; stop launching new work
		}

		wg.Add(1)

		go func(entry *model.Entry) {
			defer wg.Done()
			defer sem.Release(1)

			t.identifyOne(ctx, rt, entry)

			done := t.done.Add(1)
			rt.Progress(float64(done) / float64(total))
		}(e)
	}

	wg.Wait()

	t.errMu.Lock()
	for _, msg := range t.errors {
		rt.Warn(msg)
	}
	t.errMu.Unlock()

	return ctx.Err()
}

func (t *contentIDTask) identifyOne(ctx context.Context, rt *job.Runtime, e *model.Entry) {
	fsPath, err := t.entryFSPath(ctx, e)
	if err != nil {
		t.recordError(sdcerr.NonCritical("indexer.contentid", e.ID, err).Error())
		return
	}

	hash, err := contenthash.ComputeFile(fsPath)
	if err != nil {
		t.recordError(sdcerr.NonCritical("indexer.contentid", fsPath, err).Error())
		return
	}

	now := t.nowMS()

	ci, err := t.p.store.GetContentIdentityByHash(ctx, hash)
	if err != nil {
		t.recordError(sdcerr.NonCritical("indexer.contentid", hash, err).Error())
		return
	}

	if ci == nil {
		ci = &model.ContentIdentity{
			ID:             contentIdentityID(hash),
			Kind:           model.ContentKindFile,
			ContentHash:    hash,
			TotalSize:      e.Size,
			EntryCount:     0,
			FirstSeenAt:    now,
			LastVerifiedAt: now,
			UpdatedAt:      now,
			DeviceID:       t.p.deviceID,
		}
	} else {
		ci.LastVerifiedAt = now
		ci.UpdatedAt = now
	}

	if err := t.p.store.UpsertContentIdentity(ctx, ci); err != nil {
		t.recordError(sdcerr.NonCritical("indexer.contentid", ci.ID, err).Error())
		return
	}

	if err := t.p.store.IncrementEntryCount(ctx, ci.ID, now); err != nil {
		t.recordError(sdcerr.NonCritical("indexer.contentid", ci.ID, err).Error())
		return
	}

	if err := t.p.store.SetEntryContentID(ctx, e.ID, ci.ID, now); err != nil {
		t.recordError(sdcerr.NonCritical("indexer.contentid", e.ID, err).Error())
	}
}

func (t *contentIDTask) recordError(msg string) {
	t.p.stats.Errors++

	t.errMu.Lock()
	t.errors = append(t.errors, msg)
	t.errMu.Unlock()
}

// entryFSPath reconstructs the absolute filesystem path of an entry by
// walking its parent chain back to the location root.
func (t *contentIDTask) entryFSPath(ctx context.Context, e *model.Entry) (string, error) {
	var components []string

	cur := e

	for {
		components = append([]string{cur.Name}, components...)

		if cur.ParentID == "" {
			break
		}

		parent, err := t.p.store.GetEntry(ctx, cur.ParentID)
		if err != nil {
			return "", err
		}

		if parent == nil {
			break
		}

		cur = parent
	}

	// The first component is the location root's own name; the walk
	// already starts from t.root on disk, so drop it.
	if len(components) > 0 {
		components = components[1:]
	}

	return filepath.Join(append([]string{t.root}, components...)...), nil
}

func contentIDRootPath(loc *model.Location, shallow bool, shallowPath string) string {
	if shallow {
		return shallowPath
	}

	if sp, err := sdpath.FromURI(loc.Path); err == nil && sp.Kind() == sdpath.KindPhysical {
		return sp.Path()
	}

	return loc.Path
}

// Checkpoint is a no-op: this phase re-derives its work queue from
// ListUnidentifiedEntries on every run, so already-identified entries are
// simply skipped on resume without needing saved state.
func (t *contentIDTask) Checkpoint() ([]byte, error) { return nil, nil }
