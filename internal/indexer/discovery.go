package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/sdcerr"
	"github.com/spacedriveapp/sdcore/internal/sdpath"
)

// discoveryTaskKind is this task's registry key (job.RegisterTaskKind).
const discoveryTaskKind = "indexer.discovery"

// discoveryTask walks a Location's filesystem subtree, recording every
// file, directory, and symlink that survives the configured filters.
// Symlinks are recorded but never followed (spec.md §4.1). Grounded on
// the teacher's Scanner.walkDir (internal/sync/scanner.go): depth-first
// os.ReadDir traversal with per-entry filtering, generalized from
// "diff against DB state" to "record every surviving entry" since this
// phase's job is a full rebuild, not an incremental reconciliation.
type discoveryTask struct {
	p      *pipeline
	filter *filter
	root   string // absolute filesystem path to walk
}

func newDiscoveryTask(p *pipeline) *discoveryTask {
	root := p.location.Path

	if sp, err := sdpath.FromURI(p.location.Path); err == nil && sp.Kind() == sdpath.KindPhysical {
		root = sp.Path()
	}

	if p.opts.Shallow {
		root = p.opts.ShallowPath
	}

	return &discoveryTask{p: p, filter: newFilter(p.opts), root: root}
}

func (t *discoveryTask) Kind() string { return discoveryTaskKind }

func (t *discoveryTask) Run(ctx context.Context, rt *job.Runtime) error {
	if t.p.startedAt.IsZero() {
		t.p.startedAt = time.Now()
	}

	info, err := os.Lstat(t.root)
	if err != nil {
		return sdcerr.Fatal("indexer.discovery", t.root, err)
	}

	if !info.IsDir() {
		return sdcerr.Validation("indexer.discovery", t.root, errNotADirectory)
	}

	t.p.walked = append(t.p.walked, walkedEntry{
		relPath:    "",
		name:       filepath.Base(t.root),
		kind:       model.EntryKindDirectory,
		modifiedAt: info.ModTime().UnixMilli(),
	})

	if t.p.opts.Shallow {
		if err := t.walkOneLevel(ctx, rt); err != nil {
			return err
		}
	} else if err := t.walkRecursive(ctx, rt, ""); err != nil {
		return err
	}

	rt.Progress(1.0)

	return nil
}

// walkOneLevel records only root's direct children, for shallow re-index
// of a single subdirectory (supplemented feature, grounded on
// original_source/core/src/location/indexer/shallow_indexer_job.rs).
func (t *discoveryTask) walkOneLevel(ctx context.Context, rt *job.Runtime) error {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		return sdcerr.Fatal("indexer.discovery", t.root, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		t.recordEntry(rt, "", e)
	}

	return nil
}

func (t *discoveryTask) walkRecursive(ctx context.Context, rt *job.Runtime, relDir string) error {
	if err := rt.Interrupter().CheckPoint(); err != nil {
		return err
	}

	fullDir := filepath.Join(t.root, relDir)

	entries, err := os.ReadDir(fullDir)
	if err != nil {
		t.p.stats.Errors++
		rt.Warn(sdcerr.NonCritical("indexer.discovery", fullDir, err).Error())

		return nil
	}

	// Sorted order keeps batch writes and progress reporting deterministic
	// across resumes, matching the teacher's preference for stable on-disk
	// iteration order over map/readdir's platform-dependent ordering.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		childRel := t.recordEntry(rt, relDir, e)

		if e.IsDir() && childRel != "" {
			if err := t.walkRecursive(ctx, rt, childRel); err != nil {
				return err
			}
		}
	}

	return nil
}

// recordEntry filters and appends a single os.DirEntry to the pipeline's
// walked list, returning the child's relative path (empty if skipped).
func (t *discoveryTask) recordEntry(rt *job.Runtime, relDir string, e os.DirEntry) string {
	name := e.Name()
	isDir := e.IsDir()

	if !t.filter.include(name, isDir) {
		t.p.stats.Skipped++
		return ""
	}

	childRel := filepath.Join(relDir, name)

	info, err := e.Info()
	if err != nil {
		t.p.stats.Errors++
		rt.Warn(sdcerr.NonCritical("indexer.discovery", childRel, err).Error())

		return ""
	}

	kind := model.EntryKindFile

	switch {
	case e.Type()&os.ModeSymlink != 0:
		kind = model.EntryKindSymlink
		t.p.stats.Symlinks++

		// e.Info() above is Lstat-based and succeeds even for a dangling
		// symlink; Stat follows the link and fails if the target is
		// missing. The symlink entry is still recorded (spec.md's broken-
		// symlink boundary case: two entries, one warning) — only the
		// target is unreachable, not the symlink itself.
		if _, statErr := os.Stat(filepath.Join(t.root, childRel)); statErr != nil {
			rt.Warn(sdcerr.NonCritical("indexer.discovery", childRel, fmt.Errorf("dangling symlink target: %w", statErr)).Error())
		}
	case isDir:
		kind = model.EntryKindDirectory
		t.p.stats.Dirs++
	default:
		t.p.stats.Files++
		t.p.stats.Bytes += info.Size()
	}

	we := walkedEntry{
		relPath:    childRel,
		parentPath: relDir,
		name:       name,
		kind:       kind,
		size:       info.Size(),
		modifiedAt: info.ModTime().UnixMilli(),
	}

	if sysInode, ok := inodeOf(info); ok {
		we.inode = sysInode
	}

	t.p.walked = append(t.p.walked, we)

	return childRel
}

// Checkpoint serializes the walked list so a crash mid-Discovery can
// resume without re-walking from scratch.
func (t *discoveryTask) Checkpoint() ([]byte, error) {
	return json.Marshal(t.p.walked)
}

// RestoreCheckpoint restores a previously checkpointed walk.
func (t *discoveryTask) RestoreCheckpoint(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, &t.p.walked)
}
