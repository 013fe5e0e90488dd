// Package action implements the engine's external entry point: a single
// typed dispatcher accepting an Action tagged union and routing it through
// a validate/execute pair, per spec.md §6's "Action dispatcher — a typed
// entry point accepting an Action sum ... Every action has validate(ctx) →
// Result and execute(ctx) → ActionOutput." Go has no native sum type, so
// Action is one struct carrying a Kind discriminant plus the fields
// relevant to that kind, the same shape internal/sdpath and
// internal/eventbus use to compose their own tagged values. Side effects
// (database writes, event emission, job dispatch) only ever happen inside
// execute, never validate.
package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/jobstore"
	"github.com/spacedriveapp/sdcore/internal/store"
	"github.com/spacedriveapp/sdcore/internal/volume"
)

// Kind discriminates the Action variants of spec.md §6.
type Kind string

// Action kinds.
const (
	KindLibraryCreate      Kind = "library.create"
	KindLibraryDelete      Kind = "library.delete"
	KindLocationAdd        Kind = "location.add"
	KindLocationRemove     Kind = "location.remove"
	KindLocationIndex      Kind = "location.index"
	KindIndex              Kind = "index" // reindex every location in the library
	KindFileCopy           Kind = "file.copy"
	KindFileDelete         Kind = "file.delete"
	KindFileValidate       Kind = "file.validate"
	KindDetectDuplicates   Kind = "detect_duplicates"
	KindVolumeTrack        Kind = "volume.track"
	KindVolumeUntrack      Kind = "volume.untrack"
	KindVolumeSpeedTest    Kind = "volume.speed_test"
	KindGenerateThumbnails Kind = "generate_thumbnails"
	KindContentAnalysis    Kind = "content_analysis"
	KindMetadataExtract    Kind = "metadata_extract"
)

// Action is the tagged-union request value. Only the fields relevant to
// Kind are populated by the caller; unused fields are the zero value.
type Action struct {
	Kind Kind

	// LibraryCreate/Delete.
	LibraryID   string
	LibraryName string

	// LocationAdd/Remove/Index, Index.
	LocationID string
	VolumeID   string
	Path       string // absolute filesystem path, LocationAdd only
	Name       string
	IndexMode  string // "deep" or "content", LocationAdd/Index only
	Priority   job.Priority

	// FileCopy/Delete/Validate.
	SourceEntryID string
	DestPath      string // FileCopy only: absolute destination filesystem path

	// DetectDuplicates.
	ScopeLocationID string // empty = whole library

	// VolumeTrack/Untrack/SpeedTest.
	// VolumeID above is reused.

	// GenerateThumbnails/ContentAnalysis/MetadataExtract.
	ContentID string
}

// Result is validate's outcome: either the action is well-formed and may
// proceed, or it isn't and carries a reason.
type Result struct {
	OK     bool
	Reason string
}

func ok() Result              { return Result{OK: true} }
func invalid(format string, a ...any) Result {
	return Result{OK: false, Reason: fmt.Sprintf(format, a...)}
}

// Output is execute's outcome: the IDs of anything created and a
// human-readable summary. JobID is set when the action's effect runs
// asynchronously via internal/job rather than synchronously inline.
type Output struct {
	JobID     string
	EntityID  string
	EntityIDs []string
	Summary   string
}

type validateFunc func(ctx context.Context, d *Dispatcher, a Action) Result
type executeFunc func(ctx context.Context, d *Dispatcher, a Action) (Output, error)

type handler struct {
	validate validateFunc
	execute  executeFunc
}

// registry maps each Kind to its validate/execute pair, per spec.md §9's
// "dispatcher uses a registry of (kind → validate_fn, execute_fn)."
// Populated by package init() in this file's sibling sources.
var registry = map[Kind]handler{}

func register(k Kind, v validateFunc, e executeFunc) {
	registry[k] = handler{validate: v, execute: e}
}

// Dispatcher holds the collaborators every action handler needs: the
// current library's store, the job dispatcher jobs run on, the event bus
// effects publish to, and the volume manager volume actions delegate to.
// One Dispatcher is scoped to one open library; LibraryCreate/Delete are
// the two actions that operate before/after a library is open, via
// libraries (see library.go).
type Dispatcher struct {
	libraries *LibraryRegistry

	store    *store.Store
	jobs     *job.Dispatcher
	jobstore *jobstore.Store
	bus      *eventbus.Bus
	volumes  *volume.Manager
	deviceID string
	nowMS    func() int64
	logger   *slog.Logger
}

// NewDispatcher builds a Dispatcher bound to one open library's
// collaborators. libraries may be nil if LibraryCreate/Delete actions
// will never be dispatched through this instance (e.g. a worker process
// that only ever touches one already-provisioned library).
func NewDispatcher(
	libraries *LibraryRegistry,
	st *store.Store,
	jobs *job.Dispatcher,
	js *jobstore.Store,
	bus *eventbus.Bus,
	volumes *volume.Manager,
	deviceID string,
	nowMS func() int64,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		libraries: libraries,
		store:     st,
		jobs:      jobs,
		jobstore:  js,
		bus:       bus,
		volumes:   volumes,
		deviceID:  deviceID,
		nowMS:     nowMS,
		logger:    logger,
	}
}

// Validate runs a's registered validate function without side effects.
func (d *Dispatcher) Validate(ctx context.Context, a Action) Result {
	h, ok := registry[a.Kind]
	if !ok {
		return invalid("action: unknown kind %q", a.Kind)
	}

	return h.validate(ctx, d, a)
}

// Dispatch validates a and, if valid, executes it. Per spec.md §9,
// execute is never called without a prior successful validate.
func (d *Dispatcher) Dispatch(ctx context.Context, a Action) (Output, error) {
	h, ok := registry[a.Kind]
	if !ok {
		return Output{}, fmt.Errorf("action: unknown kind %q", a.Kind)
	}

	if res := h.validate(ctx, d, a); !res.OK {
		return Output{}, fmt.Errorf("action: %s: %s", a.Kind, res.Reason)
	}

	return h.execute(ctx, d, a)
}

func (d *Dispatcher) publish(ctx context.Context, ev eventbus.Event) {
	if d.bus == nil {
		return
	}

	if err := d.bus.Publish(ctx, ev, d.nowMS()); err != nil {
		d.logger.Warn("action: event publish failed", "kind", ev.Kind, "error", err)
	}
}
