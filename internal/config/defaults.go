package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and are chosen to be safe, reasonable
// starting points that work without any config file.
const (
	defaultSkipHidden          = true
	defaultSkipSystemFiles     = true
	defaultSkipGitDirs         = true
	defaultSkipDevDirs         = true
	defaultIndexBatchSize      = 750
	defaultContentWorkers      = 8
	defaultJobWorkers          = 4
	defaultCheckpointInterval  = "2s"
	defaultShutdownGracePeriod = "5s"
	defaultJobLogRetention     = 14
	defaultJobLogMaxSizeMB     = 10
	defaultBackfillBatchSize   = 500
	defaultHeartbeatInterval   = "15s"
	defaultBufferCapacity      = 4096
	defaultLogPruneInterval    = "1h"
	defaultVolumeRescan        = "5m"
	defaultLogLevel            = "info"
	defaultLogFormat           = "text"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Indexer:   defaultIndexerConfig(),
		Job:       defaultJobConfig(),
		Sync:      defaultSyncConfig(),
		Volume:    defaultVolumeConfig(),
		Logging:   defaultLoggingConfig(),
		Libraries: make(map[string]LibraryPref),
	}
}

func defaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		SkipHidden:      defaultSkipHidden,
		SkipSystemFiles: defaultSkipSystemFiles,
		SkipGitDirs:     defaultSkipGitDirs,
		SkipDevDirs:     defaultSkipDevDirs,
		BatchSize:       defaultIndexBatchSize,
		ContentWorkers:  defaultContentWorkers,
	}
}

func defaultJobConfig() JobConfig {
	return JobConfig{
		Workers:             defaultJobWorkers,
		CheckpointInterval:  defaultCheckpointInterval,
		ShutdownGracePeriod: defaultShutdownGracePeriod,
		LogRetentionDays:    defaultJobLogRetention,
		LogMaxSizeMB:        defaultJobLogMaxSizeMB,
	}
}

func defaultSyncConfig() SyncConfig {
	return SyncConfig{
		BackfillBatchSize: defaultBackfillBatchSize,
		HeartbeatInterval: defaultHeartbeatInterval,
		BufferCapacity:    defaultBufferCapacity,
		LogPruneInterval:  defaultLogPruneInterval,
	}
}

func defaultVolumeConfig() VolumeConfig {
	return VolumeConfig{
		RescanInterval: defaultVolumeRescan,
		WatchMounts:    true,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  defaultLogLevel,
		Format: defaultLogFormat,
	}
}
