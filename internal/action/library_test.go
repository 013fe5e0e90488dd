package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLibraryCreateProvisionsDirectoryAndDatabase(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	out, err := d.Dispatch(ctx, Action{Kind: KindLibraryCreate, LibraryName: "Photos"})
	require.NoError(t, err)
	require.NotEmpty(t, out.EntityID)
	require.True(t, d.libraries.Exists(out.EntityID))
}

func TestLibraryDeleteRejectsUnknownLibrary(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Action{Kind: KindLibraryDelete, LibraryID: "does-not-exist"})
	require.Error(t, err)
}

func TestLibraryJobsDBPathIsDistinctFromLibraryDBPath(t *testing.T) {
	r := NewLibraryRegistry(t.TempDir(), nil)

	require.NotEqual(t, r.LibraryDBPath("lib-1"), r.LibraryJobsDBPath("lib-1"))
	require.NotEqual(t, r.LibrarySyncDBPath("lib-1"), r.LibraryJobsDBPath("lib-1"))
}

func TestLibraryCreateThenDeleteRemovesDirectory(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	out, err := d.Dispatch(ctx, Action{Kind: KindLibraryCreate, LibraryName: "Throwaway"})
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, Action{Kind: KindLibraryDelete, LibraryID: out.EntityID})
	require.NoError(t, err)
	require.False(t, d.libraries.Exists(out.EntityID))
}
