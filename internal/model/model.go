// Package model defines the plain entity structs shared across the store,
// indexer, job, and sync engine packages. Entities carry no behavior beyond
// simple accessors — persistence and hierarchy logic live in internal/store.
// Timestamps are Unix milliseconds (int64), matching the teacher's
// internal/sync.Item convention of storing time as plain integers rather
// than time.Time, and matching hlc.Timestamp's PhysicalMS unit.
package model

// DiskType classifies the physical medium backing a Volume.
type DiskType string

// Disk type values.
const (
	DiskTypeSSD     DiskType = "ssd"
	DiskTypeHDD     DiskType = "hdd"
	DiskTypeUnknown DiskType = "unknown"
)

// MountType classifies how a Volume is attached.
type MountType string

// Mount type values.
const (
	MountTypeSystem   MountType = "system"
	MountTypeExternal MountType = "external"
	MountTypeNetwork  MountType = "network"
	MountTypeVirtual  MountType = "virtual"
)

// VolumeType classifies the role a Volume plays.
type VolumeType string

// Volume type values.
const (
	VolumeTypePrimary  VolumeType = "primary"
	VolumeTypeExternal VolumeType = "external"
	VolumeTypeCloud    VolumeType = "cloud"
	VolumeTypeVirtual  VolumeType = "virtual"
)

// Device identifies one installation of the engine.
type Device struct {
	ID         string // UUID
	Slug       string
	Platform   string
	Paired     bool
	SessionKey string // hex-encoded long-term Ed25519 public key, for pairing verification
	CreatedAt  int64  // Unix ms
	LastSeenAt int64  // Unix ms
}

// Volume is a mounted storage surface on exactly one device.
type Volume struct {
	ID             string // UUID
	DeviceID       string
	Fingerprint    string // hash(name, capacity, filesystem); stable across remounts
	Name           string
	MountPoint     string
	FileSystem     string
	DiskType       DiskType
	MountType      MountType
	VolumeType     VolumeType
	TotalBytes     uint64
	AvailableBytes uint64
	ReadSpeedMBps  float64 // 0 if never measured
	WriteSpeedMBps float64 // 0 if never measured
	IsTracked      bool
	Online         bool
	DetectedAt     int64 // Unix ms
	UpdatedAt      int64 // Unix ms
}

// IndexMode controls how deep a Location's indexing job goes.
type IndexMode string

// Index mode values.
const (
	IndexModeDeep    IndexMode = "deep"    // walk + entries, no content hashing
	IndexModeContent IndexMode = "content" // walk + entries + content identification
)

// ScanState tracks a Location's indexing lifecycle.
type ScanState string

// Scan state values.
const (
	ScanStatePending   ScanState = "pending"
	ScanStateIndexing  ScanState = "indexing"
	ScanStateIndexed   ScanState = "indexed"
	ScanStateErrored   ScanState = "errored"
)

// Location is a user-declared subtree within a Volume selected for indexing.
type Location struct {
	ID          string // UUID
	VolumeID    string
	Path        string // SdPath URI form
	Name        string
	IndexMode   IndexMode
	ScanState   ScanState
	RootEntryID string
	CreatedAt   int64 // Unix ms
	UpdatedAt   int64 // Unix ms
}

// EntryKind classifies a filesystem object.
type EntryKind string

// Entry kind values.
const (
	EntryKindFile      EntryKind = "file"
	EntryKindDirectory EntryKind = "directory"
	EntryKindSymlink   EntryKind = "symlink"
)

// Entry is a single filesystem object within a Location's entry tree.
type Entry struct {
	ID         string // UUID
	LocationID string
	ParentID   string // empty for the Location root
	Name       string
	Kind       EntryKind
	Extension  string
	Size       int64
	Inode      uint64 // Unix; 0 on Windows
	PathHash   string // hash of the location-relative path; the re-scan dedup key
	ContentID  string // files only; empty until Content-Identification runs
	// Aggregation fields, directories only.
	AggregateSize int64
	ChildCount    int
	FileCount     int

	CreatedAt  int64 // Unix ms
	ModifiedAt int64 // Unix ms
	AccessedAt int64 // Unix ms
	UpdatedAt  int64 // Unix ms; LWW field for state-based sync
}

// EntryClosure is one row of the transitive-closure ancestry table.
type EntryClosure struct {
	AncestorID   string
	DescendantID string
	Depth        int
}

// ContentKind classifies the type of byte-sequence a ContentIdentity names.
type ContentKind string

// Content kind values.
const (
	ContentKindFile     ContentKind = "file"
	ContentKindDocument ContentKind = "document"
	ContentKindImage    ContentKind = "image"
	ContentKindVideo    ContentKind = "video"
	ContentKindAudio    ContentKind = "audio"
	ContentKindArchive  ContentKind = "archive"
)

// ChangeType classifies the mutation a SyncLogEntry records.
type ChangeType string

// Change type values.
const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// SyncLogEntry is one append-only record of a mutation to a log-synced
// model (ContentIdentity and friends). Ordered by HLC, not by row id —
// HLCPhysicalMS/HLCCounter/HLCDeviceID together reconstruct the
// hlc.Timestamp that ordered the mutation. Pruned once every paired
// device's high-water-mark has passed it.
type SyncLogEntry struct {
	ID            int64 // local autoincrement row id, not a sync identity
	HLCPhysicalMS int64
	HLCCounter    uint32
	HLCDeviceID   string
	ChangeType    ChangeType
	ModelName     string // e.g. "content_identity"
	RecordID      string // UUID of the mutated row
	Data          []byte // msgpack-encoded row snapshot
	CreatedAt     int64  // Unix ms, local receipt time
}

// SyncCursor is a device's high-water-mark against one peer: the HLC
// timestamp of the newest log entry that peer is known to have acked.
// Generalizes the teacher's delta_tokens per-remote cursor table to N
// peers; once every paired device's cursor has passed a log entry, that
// entry is eligible for pruning.
type SyncCursor struct {
	PeerDeviceID  string
	HLCPhysicalMS int64
	HLCCounter    uint32
	HLCDeviceID   string
	UpdatedAt     int64 // Unix ms
}

// ContentIdentity is the canonical, shared record for a byte-sequence.
type ContentIdentity struct {
	ID             string // UUID, deterministic from ContentHash
	Kind           ContentKind
	ContentHash    string // BLAKE3, hex-encoded
	IntegrityHash  string // optional stronger hash, hex-encoded
	MimeTypeID     int
	TotalSize      int64
	EntryCount     int
	ExtractedText  string
	FirstSeenAt    int64  // Unix ms
	LastVerifiedAt int64  // Unix ms
	UpdatedAt      int64  // Unix ms; LWW field for log-based sync
	DeviceID       string // device that produced the most recent UpdatedAt write; LWW tiebreak
}
