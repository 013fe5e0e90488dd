package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Validation range constants.
const (
	minJobWorkers     = 1
	maxJobWorkers     = 64
	minContentWorkers = 1
	maxContentWorkers = 64
	minBatchSize      = 1
	maxBatchSize      = 10_000
	minLogRetention   = 1
	minCheckpoint     = 100 * time.Millisecond
	minGracePeriod    = 1 * time.Second
	minHeartbeat      = 1 * time.Second
	minBufferCapacity = 16
	minLogPrune       = 1 * time.Minute
	minRescanInterval = 10 * time.Second
)

// Validate checks all configuration values and returns all errors found. It
// accumulates every error rather than stopping at the first, so users see a
// complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateIndexer(&cfg.Indexer)...)
	errs = append(errs, validateJob(&cfg.Job)...)
	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateVolume(&cfg.Volume)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

// ValidateResolved checks cross-field constraints on the fully resolved
// configuration, after the four-layer override chain has been applied.
func ValidateResolved(r *Resolved) error {
	var errs []error

	if r.DataDir != "" && !filepath.IsAbs(r.DataDir) {
		errs = append(errs, fmt.Errorf("data_dir: must be absolute after expansion, got %q", r.DataDir))
	}

	return errors.Join(errs...)
}

func validateIndexer(i *IndexerConfig) []error {
	var errs []error

	if i.BatchSize < minBatchSize || i.BatchSize > maxBatchSize {
		errs = append(errs, fmt.Errorf("indexer.batch_size: must be between %d and %d, got %d",
			minBatchSize, maxBatchSize, i.BatchSize))
	}

	if i.ContentWorkers < minContentWorkers || i.ContentWorkers > maxContentWorkers {
		errs = append(errs, fmt.Errorf("indexer.content_workers: must be between %d and %d, got %d",
			minContentWorkers, maxContentWorkers, i.ContentWorkers))
	}

	return errs
}

func validateJob(j *JobConfig) []error {
	var errs []error

	if j.Workers < minJobWorkers || j.Workers > maxJobWorkers {
		errs = append(errs, fmt.Errorf("job.workers: must be between %d and %d, got %d",
			minJobWorkers, maxJobWorkers, j.Workers))
	}

	errs = append(errs, validateDurationMin("job.checkpoint_interval", j.CheckpointInterval, minCheckpoint)...)
	errs = append(errs, validateDurationMin("job.shutdown_grace_period", j.ShutdownGracePeriod, minGracePeriod)...)

	if j.LogRetentionDays < minLogRetention {
		errs = append(errs, fmt.Errorf("job.log_retention_days: must be >= %d, got %d",
			minLogRetention, j.LogRetentionDays))
	}

	return errs
}

func validateSync(s *SyncConfig) []error {
	var errs []error

	if s.BackfillBatchSize < minBatchSize || s.BackfillBatchSize > maxBatchSize {
		errs = append(errs, fmt.Errorf("sync.backfill_batch_size: must be between %d and %d, got %d",
			minBatchSize, maxBatchSize, s.BackfillBatchSize))
	}

	errs = append(errs, validateDurationMin("sync.heartbeat_interval", s.HeartbeatInterval, minHeartbeat)...)
	errs = append(errs, validateDurationMin("sync.log_prune_interval", s.LogPruneInterval, minLogPrune)...)

	if s.BufferCapacity < minBufferCapacity {
		errs = append(errs, fmt.Errorf("sync.buffer_capacity: must be >= %d, got %d",
			minBufferCapacity, s.BufferCapacity))
	}

	return errs
}

func validateVolume(v *VolumeConfig) []error {
	return validateDurationMin("volume.rescan_interval", v.RescanInterval, minRescanInterval)
}

func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.Level)...)
	errs = append(errs, validateLogFormat(l.Format)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("logging.level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("logging.format: must be one of text, json; got %q", format)}
	}

	return nil
}
