package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/jobstore"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), ":memory:", slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func seedLocation(t *testing.T, s *store.Store, root string, mode model.IndexMode) (*model.Device, *model.Volume, *model.Location) {
	t.Helper()

	ctx := context.Background()

	d := &model.Device{ID: uuid.NewString(), Slug: "device-a", Platform: "linux", CreatedAt: 1, LastSeenAt: 1}
	require.NoError(t, s.UpsertDevice(ctx, d))

	v := &model.Volume{
		ID: uuid.NewString(), DeviceID: d.ID, Fingerprint: uuid.NewString(),
		Name: "vol", MountPoint: root, FileSystem: "ext4",
		DiskType: model.DiskTypeSSD, MountType: model.MountTypeSystem, VolumeType: model.VolumeTypePrimary,
		DetectedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.UpsertVolume(ctx, v))

	loc := &model.Location{
		ID: uuid.NewString(), VolumeID: v.ID, Path: root, Name: filepath.Base(root),
		IndexMode: mode, ScanState: model.ScanStatePending, CreatedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.UpsertLocation(ctx, loc))

	return d, v, loc
}

func buildTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("beta"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("alpha"), 0o600)) // duplicate of a.txt

	return root
}

func runJob(t *testing.T, j *job.Job) {
	t.Helper()

	err := j.Run(context.Background(), slog.New(slog.DiscardHandler), 0,
		func(int, float64, []byte) error { return nil },
		func() int64 { return 42 },
	)
	require.NoError(t, err)
	require.Equal(t, job.StatusCompleted, j.Status())
}

func TestDeepModeIndexesTreeAndAggregates(t *testing.T) {
	root := buildTree(t)
	s := newTestStore(t)
	_, _, loc := seedLocation(t, s, root, model.IndexModeDeep)

	j, stats := NewIndexLocationJob(s, "device-a", loc, Options{
		IndexMode: model.IndexModeDeep,
		BatchSize: 10,
	}, job.PriorityNormal, func() int64 { return 100 })

	runJob(t, j)

	require.Equal(t, 3, stats.Files)
	require.Equal(t, 1, stats.Dirs)

	entries, err := s.ListEntriesByLocation(context.Background(), loc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5) // root + a.txt + sub + b.txt + c.txt

	var rootEntry *model.Entry

	for _, e := range entries {
		if e.ParentID == "" {
			rootEntry = e
		}
	}

	require.NotNil(t, rootEntry)
	require.Equal(t, 2, rootEntry.ChildCount) // a.txt, sub
	require.Equal(t, 3, rootEntry.FileCount)   // a.txt, b.txt, c.txt (recursive)
	require.Equal(t, int64(len("alpha")+len("beta")+len("alpha")), rootEntry.AggregateSize)
}

func TestContentModeDeduplicatesIdenticalFiles(t *testing.T) {
	root := buildTree(t)
	s := newTestStore(t)
	_, _, loc := seedLocation(t, s, root, model.IndexModeContent)

	j, stats := NewIndexLocationJob(s, "device-a", loc, Options{
		IndexMode:      model.IndexModeContent,
		BatchSize:      10,
		ContentWorkers: 2,
	}, job.PriorityNormal, func() int64 { return 100 })

	runJob(t, j)

	require.Equal(t, 0, stats.Errors)

	entries, err := s.ListEntriesByLocation(context.Background(), loc.ID)
	require.NoError(t, err)

	contentIDs := make(map[string]int)

	for _, e := range entries {
		if e.Kind == model.EntryKindFile {
			require.NotEmpty(t, e.ContentID)
			contentIDs[e.ContentID]++
		}
	}

	require.Len(t, contentIDs, 2) // "alpha" content shared by two files, "beta" unique

	unique, err := s.ListContentUniqueToLocation(context.Background(), loc.ID)
	require.NoError(t, err)
	require.Len(t, unique, 1) // only "beta" has entry_count == 1
}

func TestDeepModeRecordsDanglingSymlinkAndWarns(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.Symlink(filepath.Join(root, "missing-target"), filepath.Join(root, "broken")))

	s := newTestStore(t)
	_, _, loc := seedLocation(t, s, root, model.IndexModeDeep)

	j, stats := NewIndexLocationJob(s, "device-a", loc, Options{
		IndexMode: model.IndexModeDeep,
		BatchSize: 10,
	}, job.PriorityNormal, func() int64 { return 100 })

	runJob(t, j)

	require.Equal(t, 1, stats.Symlinks)
	require.Equal(t, 0, stats.Errors) // dangling target is a warning, not an indexing error

	entries, err := s.ListEntriesByLocation(context.Background(), loc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2) // root directory + the broken symlink itself

	require.Len(t, j.Warnings(), 1)
	require.Contains(t, j.Warnings()[0], "broken")
}

func TestShallowModeIndexesOnlyDirectChildren(t *testing.T) {
	root := buildTree(t)
	s := newTestStore(t)
	_, _, loc := seedLocation(t, s, root, model.IndexModeDeep)

	j, stats := NewIndexLocationJob(s, "device-a", loc, Options{
		IndexMode:   model.IndexModeDeep,
		BatchSize:   10,
		Shallow:     true,
		ShallowPath: root,
	}, job.PriorityNormal, func() int64 { return 100 })

	runJob(t, j)

	require.Equal(t, 1, stats.Files) // only a.txt, not sub's children
	require.Equal(t, 1, stats.Dirs)  // sub itself, not walked into
}

func TestResumeIndexLocationJobRestoresWalkedEntries(t *testing.T) {
	root := buildTree(t)
	s := newTestStore(t)
	_, _, loc := seedLocation(t, s, root, model.IndexModeDeep)

	j, _ := NewIndexLocationJob(s, "device-a", loc, Options{IndexMode: model.IndexModeDeep, BatchSize: 10}, job.PriorityNormal, func() int64 { return 100 })

	// Run only Discovery, capturing its checkpoint, to simulate a crash
	// right after phase one completes.
	var discoveryState []byte

	err := j.Run(context.Background(), slog.New(slog.DiscardHandler), 0,
		func(taskIndex int, progressPercent float64, taskState []byte) error {
			if taskIndex == 0 {
				discoveryState = taskState
			}

			return nil
		},
		func() int64 { return 100 },
	)
	require.NoError(t, err)
	require.NotEmpty(t, discoveryState)

	rec := &jobstore.Record{
		ID:               j.ID(),
		Kind:             LocationJobKind,
		Priority:         int(job.PriorityNormal),
		Status:           jobstore.StatusQueued,
		CurrentTaskIndex: 1, // Discovery (index 0) already completed
		TaskState:        discoveryState,
		CreatedAt:        100,
		UpdatedAt:        100,
		StartedAt:        100,
	}

	resumed, stats, err := ResumeIndexLocationJob(s, "device-a", loc, Options{IndexMode: model.IndexModeDeep, BatchSize: 10}, func() int64 { return 200 }, rec)
	require.NoError(t, err)

	runJob(t, resumed)
	require.Equal(t, 3, stats.Files)
}
