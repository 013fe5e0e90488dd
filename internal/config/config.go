// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for the engine.
package config

// Config is the top-level configuration structure for one device
// installation. A device hosts zero or more libraries; each library is a
// logical grouping of locations, volumes, and shared content identities
// that pairs with other devices.
type Config struct {
	Device    DeviceConfig           `toml:"device"`
	Indexer   IndexerConfig          `toml:"indexer"`
	Job       JobConfig              `toml:"job"`
	Sync      SyncConfig             `toml:"sync"`
	Volume    VolumeConfig           `toml:"volume"`
	Logging   LoggingConfig          `toml:"logging"`
	Libraries map[string]LibraryPref `toml:"library"`
}

// DeviceConfig identifies this installation.
type DeviceConfig struct {
	Slug     string `toml:"slug"`
	Platform string `toml:"platform"`
}

// IndexerConfig controls default indexing behavior for new locations.
type IndexerConfig struct {
	SkipHidden      bool     `toml:"skip_hidden"`
	SkipSystemFiles bool     `toml:"skip_system_files"`
	SkipGitDirs     bool     `toml:"skip_git_dirs"`
	SkipDevDirs     bool     `toml:"skip_dev_dirs"`
	ExtraIgnores    []string `toml:"extra_ignores"`
	BatchSize       int      `toml:"batch_size"`
	ContentWorkers  int      `toml:"content_workers"`
}

// JobConfig controls the job dispatcher and job database.
type JobConfig struct {
	Workers             int    `toml:"workers"`
	CheckpointInterval  string `toml:"checkpoint_interval"`
	ShutdownGracePeriod string `toml:"shutdown_grace_period"`
	LogRetentionDays    int    `toml:"log_retention_days"`
	LogMaxSizeMB        int    `toml:"log_max_size_mb"`
}

// SyncConfig controls the replication engine.
type SyncConfig struct {
	BackfillBatchSize int    `toml:"backfill_batch_size"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	BufferCapacity    int    `toml:"buffer_capacity"`
	LogPruneInterval  string `toml:"log_prune_interval"`
}

// VolumeConfig controls volume detection and rescanning.
type VolumeConfig struct {
	RescanInterval string `toml:"rescan_interval"`
	WatchMounts    bool   `toml:"watch_mounts"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	JobLogDir string `toml:"job_log_dir"`
}

// LibraryPref holds per-library overrides keyed by library UUID string.
type LibraryPref struct {
	Name         string `toml:"name"`
	SyncEnabled  bool   `toml:"sync_enabled"`
	IndexOnMount bool   `toml:"index_on_mount"`
}
