package syncengine

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
	"github.com/spacedriveapp/sdcore/internal/wire"
)

// Model names used as StateChangePayload.ModelName / SyncLogEntry.ModelName.
const (
	ModelDevice          = "device"
	ModelVolume          = "volume"
	ModelLocation        = "location"
	ModelEntry           = "entry"
	ModelContentIdentity = "content_identity"
)

// Reconciler applies received state changes and log entries to the local
// store, generalizing the teacher's three-way-merge Reconciler
// (internal/sync/reconciler.go) from "remote vs local vs synced-base" to
// "incoming peer write vs local row, last-writer-wins."
type Reconciler struct {
	store *store.Store
}

// NewReconciler constructs a Reconciler over st.
func NewReconciler(st *store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// ApplyStateChange applies one device-owned-resource upsert, per spec.md
// §4.3's "upserted by UUID, LWW on updated_at, tie-break by device UUID."
// Entries/Locations/Volumes don't separately track their last writer's
// device ID, so the tie-break compares the incoming payload's DeviceID
// against the local device ID directly rather than against the previous
// writer's — an accepted simplification recorded in DESIGN.md.
func (r *Reconciler) ApplyStateChange(ctx context.Context, localDeviceID string, p wire.StateChangePayload) error {
	switch p.ModelName {
	case ModelDevice:
		return r.applyDevice(ctx, localDeviceID, p)
	case ModelVolume:
		return r.applyVolume(ctx, localDeviceID, p)
	case ModelLocation:
		return r.applyLocation(ctx, localDeviceID, p)
	case ModelEntry:
		return r.applyEntry(ctx, localDeviceID, p)
	default:
		return fmt.Errorf("syncengine: unknown state-change model %q", p.ModelName)
	}
}

// wins reports whether an incoming write with the given timestamp/device
// should overwrite a local row last updated at existingUpdatedAt.
func wins(localDeviceID string, p wire.StateChangePayload, existingUpdatedAt int64) bool {
	if p.UpdatedAtMS != existingUpdatedAt {
		return p.UpdatedAtMS > existingUpdatedAt
	}

	return p.DeviceID > localDeviceID
}

func (r *Reconciler) applyDevice(ctx context.Context, localDeviceID string, p wire.StateChangePayload) error {
	var d model.Device
	if err := msgpack.Unmarshal(p.Data, &d); err != nil {
		return fmt.Errorf("syncengine: decode device payload: %w", err)
	}

	existing, err := r.store.GetDevice(ctx, d.ID)
	if err != nil {
		return err
	}

	if existing != nil && !wins(localDeviceID, p, existing.LastSeenAt) {
		return nil
	}

	return r.store.UpsertDevice(ctx, &d)
}

func (r *Reconciler) applyVolume(ctx context.Context, localDeviceID string, p wire.StateChangePayload) error {
	var v model.Volume
	if err := msgpack.Unmarshal(p.Data, &v); err != nil {
		return fmt.Errorf("syncengine: decode volume payload: %w", err)
	}

	existing, err := r.store.GetVolume(ctx, v.ID)
	if err != nil {
		return err
	}

	if existing != nil && !wins(localDeviceID, p, existing.UpdatedAt) {
		return nil
	}

	return r.store.UpsertVolume(ctx, &v)
}

func (r *Reconciler) applyLocation(ctx context.Context, localDeviceID string, p wire.StateChangePayload) error {
	var loc model.Location
	if err := msgpack.Unmarshal(p.Data, &loc); err != nil {
		return fmt.Errorf("syncengine: decode location payload: %w", err)
	}

	existing, err := r.store.GetLocation(ctx, loc.ID)
	if err != nil {
		return err
	}

	if existing != nil && !wins(localDeviceID, p, existing.UpdatedAt) {
		return nil
	}

	if p.Deleted {
		return r.store.DeleteLocation(ctx, loc.ID)
	}

	return r.store.UpsertLocation(ctx, &loc)
}

func (r *Reconciler) applyEntry(ctx context.Context, localDeviceID string, p wire.StateChangePayload) error {
	var e model.Entry
	if err := msgpack.Unmarshal(p.Data, &e); err != nil {
		return fmt.Errorf("syncengine: decode entry payload: %w", err)
	}

	existing, err := r.store.GetEntry(ctx, e.ID)
	if err != nil {
		return err
	}

	if existing != nil && !wins(localDeviceID, p, existing.UpdatedAt) {
		return nil
	}

	if p.Deleted {
		return r.store.DeleteEntry(ctx, e.ID)
	}

	return r.store.UpsertEntry(ctx, &e)
}

// ApplyLogEntry applies one log-synced mutation (currently ContentIdentity
// only) and persists it into the local sync_log_entries table so this
// device can in turn serve it to other peers. Per spec.md §7's "sync apply
// error" handling, a decode or apply failure is returned to the caller
// (internal/syncengine.Engine) to record against the offending entry's HLC
// and continue with the rest of the batch — it must not abort the batch.
func (r *Reconciler) ApplyLogEntry(ctx context.Context, e model.SyncLogEntry, nowMS int64) error {
	switch e.ModelName {
	case ModelContentIdentity:
		if err := r.applyContentIdentity(ctx, e); err != nil {
			return err
		}
	default:
		return fmt.Errorf("syncengine: unknown log-entry model %q", e.ModelName)
	}

	stored := e

	return r.store.AppendLogEntry(ctx, &stored, nowMS)
}

func (r *Reconciler) applyContentIdentity(ctx context.Context, e model.SyncLogEntry) error {
	if e.ChangeType == model.ChangeDelete {
		// ContentIdentity rows are never hard-deleted (spec.md §3: a shared
		// resource can always re-gain a reference later); a delete log
		// entry only means "this peer no longer has any file with this
		// content," which is already implicit in EntryCount reaching 0
		// via internal/store's IncrementEntryCount/DecrementEntryCount.
		return nil
	}

	var ci model.ContentIdentity
	if err := msgpack.Unmarshal(e.Data, &ci); err != nil {
		return fmt.Errorf("syncengine: decode content identity payload: %w", err)
	}

	existing, err := r.store.GetContentIdentity(ctx, ci.ID)
	if err != nil {
		return err
	}

	if existing != nil {
		if ci.UpdatedAt < existing.UpdatedAt ||
			(ci.UpdatedAt == existing.UpdatedAt && ci.DeviceID <= existing.DeviceID) {
			return nil
		}
	}

	return r.store.UpsertContentIdentity(ctx, &ci)
}
