// Package indexer implements the four-phase indexing pipeline that turns a
// Location's filesystem subtree into Entry/EntryClosure rows: Discovery
// walks the tree, Processing assigns identity and batch-writes rows,
// Content-Identification hashes file bytes into shared ContentIdentity
// records, and Aggregation rolls directory sizes up the closure table.
// Each phase is a job.Task so the whole pipeline is checkpointed and
// resumable across a process restart, grounded on the teacher's
// planner/executor phase pipeline (internal/sync/planner.go,
// executor.go) generalized from "sync action plan" to "filesystem index".
package indexer

import (
	"log/slog"
	"time"

	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
)

// Progress bands per phase, matching spec.md §4.1: Discovery 0-20%,
// Processing 20-60%, Content-Identification 60-98%, Aggregation 98-100%.
const (
	DiscoveryBandStart = 0.0
	DiscoveryBandEnd   = 0.20
	ProcessingBandEnd  = 0.60
	ContentIDBandEnd   = 0.98
	AggregationBandEnd = 1.0
)

// Stats accumulates counters across a full pipeline run, returned to
// callers via the final task's checkpoint payload and surfaced through
// internal/query.
type Stats struct {
	Files    int
	Dirs     int
	Symlinks int
	Skipped  int
	Errors   int
	Bytes    int64
}

// Options configures one indexing run.
type Options struct {
	IndexMode      model.IndexMode
	BatchSize      int // rows per transaction during Processing; config.IndexerConfig.BatchSize
	ContentWorkers int // bounded concurrency for Content-Identification hashing
	SkipHidden     bool
	SkipSystemDirs bool // .git
	SkipDevDirs    bool // node_modules, target, dist, etc.
	ExtraIgnores   []string
	Shallow        bool   // index only ShallowPath's direct children, no recursive walk
	ShallowPath    string // absolute filesystem path, required when Shallow is true
}

// pipeline holds the state shared by all four phase tasks of one indexing
// job. Discovery populates walked once; Processing, Content-Identification,
// and Aggregation each read from it. Tasks run sequentially on the same
// worker goroutine (job.Job.Run never overlaps tasks), so no locking is
// needed for cross-task access — only Content-Identification's internal
// worker pool needs its own synchronization, scoped to contentIDTask.
type pipeline struct {
	store    *store.Store
	location *model.Location
	deviceID string
	opts     Options
	logger   *slog.Logger

	stats     Stats
	startedAt time.Time // set by Discovery's first run, read by Aggregation to report run duration

	// populated by Discovery, consumed by Processing.
	walked []walkedEntry
}

// walkedEntry is one filesystem object found during Discovery, not yet
// assigned a UUID or written to the store.
type walkedEntry struct {
	relPath    string // relative to location root, "" for the root itself
	parentPath string
	name       string
	kind       model.EntryKind
	size       int64
	inode      uint64
	modifiedAt int64
	accessedAt int64
}
