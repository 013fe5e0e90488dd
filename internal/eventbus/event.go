// Package eventbus implements the engine's in-process publish/subscribe
// bus: every applied change, job transition, and indexing milestone is
// published here so interested subscribers (a UI, a cache, a search
// indexer) can invalidate or update without polling the store directly.
// Built on watermill's in-memory gochannel Pub/Sub, grounded on
// tomtom215/cartographus's internal/eventprocessor, which wraps the same
// library around NATS for a durable bus — gochannel is watermill's
// in-memory counterpart, the right fit here since nothing in this engine
// needs cross-process delivery.
package eventbus

// Kind discriminates the canonical event list.
type Kind string

// Canonical event kinds.
const (
	KindIndexingStarted       Kind = "indexing_started"
	KindIndexingCompleted     Kind = "indexing_completed"
	KindIndexingFailed        Kind = "indexing_failed"
	KindFilesIndexed          Kind = "files_indexed"
	KindJobStarted            Kind = "job_started"
	KindJobCompleted          Kind = "job_completed"
	KindJobFailed             Kind = "job_failed"
	KindResourceChanged       Kind = "resource_changed"
	KindResourceChangedBatch  Kind = "resource_changed_batch"
	KindLibraryCreated        Kind = "library_created"
	KindLibraryDeleted        Kind = "library_deleted"
	KindVolumeAdded           Kind = "volume_added"
	KindVolumeRemoved         Kind = "volume_removed"
	KindVolumeUpdated         Kind = "volume_updated"
	KindPairingProgress       Kind = "pairing_progress"
	KindExternalTaskRequested Kind = "external_task_requested"
)

// ResourceType names the kind of entity a ResourceChanged/ResourceChangedBatch
// event refers to.
type ResourceType string

// Resource type values.
const (
	ResourceLocation ResourceType = "location"
	ResourceEntry    ResourceType = "entry"
	ResourceVolume   ResourceType = "volume"
	ResourceLibrary  ResourceType = "library"
)

// Event is the single envelope type published on the bus. Only the fields
// relevant to Kind are populated; this mirrors the teacher's flat
// ChangeEvent struct (internal/sync/scanner.go) rather than a Go type
// union, since every event still needs one wire shape to serialize.
type Event struct {
	Kind Kind

	// ResourceChanged / ResourceChangedBatch.
	ResourceType  ResourceType
	ResourceID    string
	ResourceIDs   []string
	AffectedPaths []string

	// IndexingStarted/Completed/Failed, FilesIndexed.
	LocationID string
	FilesDone  int
	FilesTotal int
	Bytes      int64

	// JobStarted/Completed/Failed.
	JobID   string
	JobKind string

	// LibraryCreated/Deleted.
	LibraryID string

	// VolumeAdded/Removed/Updated.
	VolumeID string

	// PairingProgress.
	DeviceID string
	Stage    string

	// ExternalTaskRequested: a unit of work this engine deliberately
	// doesn't perform itself (thumbnailing, content analysis, metadata
	// extraction) but announces so an external collaborator process can
	// pick it up.
	ExternalTaskKind string
	ContentID        string

	// Message carries a human-readable detail for *Failed events.
	Message string

	// EmittedAt is Unix milliseconds, set by the publisher.
	EmittedAt int64
}
