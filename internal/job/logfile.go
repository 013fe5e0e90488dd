package job

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileConfig controls per-job rotating log files, mirroring
// spec.md §4.2's requirement that each job keeps its own durable execution
// log independent of the process's main log stream.
type LogFileConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewJobLoggerFactory returns a function suitable for Dispatcher's
// newJobLogger parameter: one lumberjack-backed rotating file per job ID,
// under cfg.Dir, with a text slog handler matching the rest of the
// codebase's log format.
func NewJobLoggerFactory(cfg LogFileConfig, level slog.Leveler) func(jobID string) *slog.Logger {
	return func(jobID string) *slog.Logger {
		writer := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, fmt.Sprintf("%s.log", jobID)),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}

		handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})

		return slog.New(handler).With("job_id", jobID)
	}
}
