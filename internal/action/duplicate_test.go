package action

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
)

func seedDuplicateContent(t *testing.T, s *store.Store, deviceID string) *model.ContentIdentity {
	t.Helper()

	ci := &model.ContentIdentity{
		ID: uuid.NewString(), Kind: model.ContentKindFile, ContentHash: uuid.NewString(),
		TotalSize: 100, EntryCount: 2, FirstSeenAt: 1, LastVerifiedAt: 1, UpdatedAt: 1, DeviceID: deviceID,
	}
	require.NoError(t, s.UpsertContentIdentity(context.Background(), ci))

	return ci
}

func TestDetectDuplicatesReportsReclaimableBytes(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)
	loc, _ := seedLocation(t, s, vol.ID)

	ci := seedDuplicateContent(t, s, dev.ID)

	a1 := seedEntry(t, s, loc.ID, "", "a.bin", model.EntryKindFile)
	a1.ContentID = ci.ID
	require.NoError(t, s.UpsertEntry(ctx, a1))

	a2 := seedEntry(t, s, loc.ID, "", "b.bin", model.EntryKindFile)
	a2.ContentID = ci.ID
	require.NoError(t, s.UpsertEntry(ctx, a2))

	out, err := d.Dispatch(ctx, Action{Kind: KindDetectDuplicates})
	require.NoError(t, err)
	require.Contains(t, out.EntityIDs, ci.ID)
	require.Contains(t, out.Summary, "100 bytes reclaimable")
}

func TestDetectDuplicatesRejectsUnknownScopeLocation(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Action{Kind: KindDetectDuplicates, ScopeLocationID: "missing"})
	require.Error(t, err)
}
