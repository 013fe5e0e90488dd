// Package query implements the engine's read-only external interface:
// typed lookups a UI or CLI calls directly against a library's store,
// without going through internal/action's validate/execute/event-publish
// machinery meant for state-changing operations. Every method here is a
// thin, allocation-light wrapper over one or two internal/store calls —
// grounded on the teacher's own pattern of exposing read paths as plain
// methods on driveops/store types rather than a separate query language.
package query

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spacedriveapp/sdcore/internal/config"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/sdpath"
	"github.com/spacedriveapp/sdcore/internal/store"
)

// Library summarizes a provisioned library for listing purposes — there is
// no model.Library row (a library is a directory, per internal/action's
// LibraryRegistry), so this composes the on-disk UUID list with the
// human-readable names recorded in config.Config.Libraries.
type Library struct {
	ID           string
	Name         string
	SyncEnabled  bool
	IndexOnMount bool
}

// Queries answers the engine's read-only queries against one open
// library's Store. Library listing additionally needs the device's
// config (for names/prefs) and the on-disk library directory list, so a
// Queries instance is constructed once per open library the same way
// action.Dispatcher is.
type Queries struct {
	store *store.Store
}

// New builds a Queries bound to an open library Store.
func New(st *store.Store) *Queries {
	return &Queries{store: st}
}

// ListLibraries enumerates every library directory under dataDir,
// cross-referenced with cfg's per-library preferences for display name
// and sync settings. It does not require an open Queries/Store, since a
// caller listing libraries may not have one open yet — library listing is
// a dataDir-level operation, not a per-library one.
func ListLibraries(dataDir string, cfg *config.Config) ([]Library, error) {
	entries, err := listLibraryDirs(dataDir)
	if err != nil {
		return nil, err
	}

	libraries := make([]Library, 0, len(entries))

	for _, id := range entries {
		pref := cfg.Libraries[id]

		name := pref.Name
		if name == "" {
			name = id
		}

		libraries = append(libraries, Library{
			ID: id, Name: name, SyncEnabled: pref.SyncEnabled, IndexOnMount: pref.IndexOnMount,
		})
	}

	sort.Slice(libraries, func(i, k int) bool { return libraries[i].Name < libraries[k].Name })

	return libraries, nil
}

// ListVolumes returns every volume known to this library, across every
// device that has synced one in.
func (q *Queries) ListVolumes(ctx context.Context) ([]*model.Volume, error) {
	return q.store.ListAllVolumes(ctx)
}

// GetFileByPath resolves an absolute filesystem path to its Entry, walking
// down from whichever Location's root is the longest matching prefix of
// fsPath. Returns (nil, nil) if no Location covers fsPath or no entry
// exists at that exact path.
func (q *Queries) GetFileByPath(ctx context.Context, fsPath string) (*model.Entry, error) {
	fsPath = filepath.Clean(fsPath)

	locs, err := q.store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: listing locations: %w", err)
	}

	loc, rel := bestMatchingLocation(locs, fsPath)
	if loc == nil {
		return nil, nil //nolint:nilnil
	}

	if loc.RootEntryID == "" {
		return nil, nil //nolint:nilnil
	}

	if rel == "." || rel == "" {
		return q.store.GetEntry(ctx, loc.RootEntryID)
	}

	cur := loc.RootEntryID

	components := strings.Split(rel, string(filepath.Separator))

	var current *model.Entry

	for _, name := range components {
		children, err := q.store.ListChildEntries(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("query: listing children of %s: %w", cur, err)
		}

		var match *model.Entry

		for _, c := range children {
			if c.Name == name {
				match = c
				break
			}
		}

		if match == nil {
			return nil, nil //nolint:nilnil
		}

		current = match
		cur = match.ID
	}

	return current, nil
}

// bestMatchingLocation finds the Location whose root filesystem path is
// the longest prefix of fsPath, returning it along with fsPath's
// location-relative remainder.
func bestMatchingLocation(locs []*model.Location, fsPath string) (*model.Location, string) {
	var (
		best    *model.Location
		bestLen int
	)

	for _, loc := range locs {
		root := loc.Path

		if sp, err := sdpath.FromURI(loc.Path); err == nil && sp.Kind() == sdpath.KindPhysical {
			root = sp.Path()
		}

		root = filepath.Clean(root)

		if fsPath != root && !strings.HasPrefix(fsPath, root+string(filepath.Separator)) {
			continue
		}

		if len(root) > bestLen {
			best = loc
			bestLen = len(root)
		}
	}

	if best == nil {
		return nil, ""
	}

	root := best.Path
	if sp, err := sdpath.FromURI(best.Path); err == nil && sp.Kind() == sdpath.KindPhysical {
		root = sp.Path()
	}

	rel, err := filepath.Rel(filepath.Clean(root), fsPath)
	if err != nil {
		return best, ""
	}

	return best, rel
}

// UniqueFile is one result row of FindFilesUniqueToLocation: a file whose
// content exists nowhere else in the library.
type UniqueFile struct {
	EntryID     string
	ContentHash string
	TotalSize   int64
}

// FindFilesUniqueToLocation lists files under locationID whose content
// identity has no other referencing entry anywhere in the library —
// candidates a user might back up before removing the location, since
// deleting them would be the library's only copy of that content.
func (q *Queries) FindFilesUniqueToLocation(ctx context.Context, locationID string) ([]UniqueFile, error) {
	summaries, err := q.store.ListContentUniqueToLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("query: listing unique content: %w", err)
	}

	results := make([]UniqueFile, 0, len(summaries))

	for _, summary := range summaries {
		entries, err := q.store.ListEntriesByContentID(ctx, summary.ContentID)
		if err != nil {
			return nil, fmt.Errorf("query: resolving entry for content %s: %w", summary.ContentID, err)
		}

		if len(entries) == 0 {
			continue
		}

		results = append(results, UniqueFile{
			EntryID: entries[0].ID, ContentHash: summary.ContentHash, TotalSize: summary.TotalSize,
		})
	}

	return results, nil
}

// SpaceLayoutEntry is one child of a location's root in a space-usage
// breakdown, sorted largest-first.
type SpaceLayoutEntry struct {
	EntryID string
	Name    string
	Kind    model.EntryKind
	Size    int64 // AggregateSize for directories, Size for files
}

// GetSpaceLayout returns locationID's top-level children ranked by size
// descending — the breakdown a disk-usage view renders, built from the
// aggregate sizes the indexer's aggregation phase already computed rather
// than re-walking the filesystem.
func (q *Queries) GetSpaceLayout(ctx context.Context, locationID string) ([]SpaceLayoutEntry, error) {
	loc, err := q.store.GetLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("query: looking up location: %w", err)
	}

	if loc == nil || loc.RootEntryID == "" {
		return nil, nil
	}

	children, err := q.store.ListChildEntries(ctx, loc.RootEntryID)
	if err != nil {
		return nil, fmt.Errorf("query: listing root children: %w", err)
	}

	layout := make([]SpaceLayoutEntry, 0, len(children))

	for _, c := range children {
		size := c.Size
		if c.Kind == model.EntryKindDirectory {
			size = c.AggregateSize
		}

		layout = append(layout, SpaceLayoutEntry{EntryID: c.ID, Name: c.Name, Kind: c.Kind, Size: size})
	}

	sort.Slice(layout, func(i, k int) bool { return layout[i].Size > layout[k].Size })

	return layout, nil
}
