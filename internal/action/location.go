package action

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/indexer"
	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/sdpath"
)

func init() {
	register(KindLocationAdd, validateLocationAdd, executeLocationAdd)
	register(KindLocationRemove, validateLocationRemove, executeLocationRemove)
	register(KindLocationIndex, validateLocationIndex, executeLocationIndex)
	register(KindIndex, validateIndex, executeIndex)
}

func parseIndexMode(s string) (model.IndexMode, error) {
	switch s {
	case "", string(model.IndexModeDeep):
		return model.IndexModeDeep, nil
	case string(model.IndexModeContent):
		return model.IndexModeContent, nil
	default:
		return "", fmt.Errorf("unrecognized index mode %q", s)
	}
}

func validateLocationAdd(ctx context.Context, d *Dispatcher, a Action) Result {
	if a.VolumeID == "" {
		return invalid("location add: volume_id is required")
	}

	if a.Path == "" {
		return invalid("location add: path is required")
	}

	if _, err := parseIndexMode(a.IndexMode); err != nil {
		return invalid("location add: %s", err)
	}

	vol, err := d.store.GetVolume(ctx, a.VolumeID)
	if err != nil {
		return invalid("location add: looking up volume: %s", err)
	}

	if vol == nil {
		return invalid("location add: volume %q not found", a.VolumeID)
	}

	info, err := os.Stat(a.Path)
	if err != nil {
		return invalid("location add: %s", err)
	}

	if !info.IsDir() {
		return invalid("location add: %q is not a directory", a.Path)
	}

	return ok()
}

func executeLocationAdd(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
	mode, _ := parseIndexMode(a.IndexMode)
	now := d.nowMS()

	loc := &model.Location{
		ID:        uuid.NewString(),
		VolumeID:  a.VolumeID,
		Path:      sdpath.Physical(d.deviceID, a.Path).ToURI(),
		Name:      locationName(a),
		IndexMode: mode,
		ScanState: model.ScanStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.store.UpsertLocation(ctx, loc); err != nil {
		return Output{}, fmt.Errorf("action: persisting new location: %w", err)
	}

	d.publish(ctx, eventbus.Event{
		Kind: eventbus.KindResourceChanged, ResourceType: eventbus.ResourceLocation, ResourceID: loc.ID,
	})

	return Output{EntityID: loc.ID, Summary: fmt.Sprintf("location %q added", loc.Name)}, nil
}

func locationName(a Action) string {
	if a.Name != "" {
		return a.Name
	}

	return a.Path
}

func validateLocationRemove(ctx context.Context, d *Dispatcher, a Action) Result {
	if a.LocationID == "" {
		return invalid("location remove: location_id is required")
	}

	loc, err := d.store.GetLocation(ctx, a.LocationID)
	if err != nil {
		return invalid("location remove: looking up location: %s", err)
	}

	if loc == nil {
		return invalid("location remove: location %q not found", a.LocationID)
	}

	return ok()
}

func executeLocationRemove(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
	if err := d.store.DeleteLocation(ctx, a.LocationID); err != nil {
		return Output{}, fmt.Errorf("action: deleting location: %w", err)
	}

	d.publish(ctx, eventbus.Event{
		Kind: eventbus.KindResourceChanged, ResourceType: eventbus.ResourceLocation, ResourceID: a.LocationID,
	})

	return Output{EntityID: a.LocationID, Summary: "location removed"}, nil
}

func validateLocationIndex(ctx context.Context, d *Dispatcher, a Action) Result {
	if a.LocationID == "" {
		return invalid("location index: location_id is required")
	}

	loc, err := d.store.GetLocation(ctx, a.LocationID)
	if err != nil {
		return invalid("location index: looking up location: %s", err)
	}

	if loc == nil {
		return invalid("location index: location %q not found", a.LocationID)
	}

	if d.jobs == nil {
		return invalid("location index: no job dispatcher configured")
	}

	return ok()
}

// indexerOptionsFor builds indexer.Options for loc, applying a's override
// (if IndexMode was specified) over the location's own persisted mode.
func indexerOptionsFor(loc *model.Location, a Action) indexer.Options {
	mode := loc.IndexMode

	if a.IndexMode != "" {
		if m, err := parseIndexMode(a.IndexMode); err == nil {
			mode = m
		}
	}

	return indexer.Options{
		IndexMode:      mode,
		BatchSize:      defaultIndexBatchSize,
		ContentWorkers: defaultContentWorkers,
		SkipHidden:     true,
		SkipSystemDirs: true,
		SkipDevDirs:    true,
	}
}

// Matches config.IndexerConfig's own defaults (internal/config/defaults.go)
// for the common case of an action dispatched without an explicit config
// lookup — a caller wiring a real config should prefer passing its own
// Options through a richer Action field instead of relying on these.
const (
	defaultIndexBatchSize = 500
	defaultContentWorkers = 4
)

func executeLocationIndex(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
	loc, err := d.store.GetLocation(ctx, a.LocationID)
	if err != nil {
		return Output{}, fmt.Errorf("action: looking up location: %w", err)
	}

	opts := indexerOptionsFor(loc, a)

	j, _ := indexer.NewIndexLocationJob(d.store, d.deviceID, loc, opts, priorityOrDefault(a.Priority), d.nowMS)

	if err := d.jobs.Submit(ctx, j); err != nil {
		return Output{}, fmt.Errorf("action: submitting index job: %w", err)
	}

	d.publish(ctx, eventbus.Event{Kind: eventbus.KindIndexingStarted, LocationID: loc.ID, JobID: j.ID()})

	return Output{JobID: j.ID(), EntityID: loc.ID, Summary: fmt.Sprintf("indexing %q", loc.Name)}, nil
}

func priorityOrDefault(p job.Priority) job.Priority {
	if p == 0 {
		return job.PriorityNormal
	}

	return p
}

func validateIndex(_ context.Context, d *Dispatcher, _ Action) Result {
	if d.jobs == nil {
		return invalid("index: no job dispatcher configured")
	}

	return ok()
}

// executeIndex submits one indexing job per location in the library — a
// library-wide reindex, distinct from KindLocationIndex's single-location
// scope.
func executeIndex(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
	locs, err := d.store.ListLocations(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("action: listing locations: %w", err)
	}

	jobIDs := make([]string, 0, len(locs))

	for _, loc := range locs {
		opts := indexerOptionsFor(loc, a)

		j, _ := indexer.NewIndexLocationJob(d.store, d.deviceID, loc, opts, priorityOrDefault(a.Priority), d.nowMS)

		if err := d.jobs.Submit(ctx, j); err != nil {
			return Output{}, fmt.Errorf("action: submitting index job for %s: %w", loc.ID, err)
		}

		d.publish(ctx, eventbus.Event{Kind: eventbus.KindIndexingStarted, LocationID: loc.ID, JobID: j.ID()})

		jobIDs = append(jobIDs, j.ID())
	}

	return Output{EntityIDs: jobIDs, Summary: fmt.Sprintf("indexing %d locations", len(locs))}, nil
}
