package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacedriveapp/sdcore/internal/action"
	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/jobstore"
	"github.com/spacedriveapp/sdcore/internal/store"
	"github.com/spacedriveapp/sdcore/internal/volume"
)

// nowMS returns the current time in Unix milliseconds — the clock every
// store/dispatcher collaborator in this CLI is built with.
func nowMS() int64 { return time.Now().UnixMilli() }

// libraryHandle bundles one library's open Store, action.Dispatcher, and
// job.Dispatcher together with a close function that releases all three
// in the right order. Every command that dispatches an action against a
// specific library opens one of these and defers its close.
type libraryHandle struct {
	store      *store.Store
	jobstore   *jobstore.Store
	dispatcher *action.Dispatcher
	jobs       *job.Dispatcher
	bus        *eventbus.Bus
}

// Close releases the library's store, job store, and event bus, in
// reverse-open order.
func (h *libraryHandle) Close() {
	if h.bus != nil {
		h.bus.Close()
	}

	if h.jobstore != nil {
		h.jobstore.Close()
	}

	if h.store != nil {
		h.store.Close()
	}
}

// openLibrary opens libraryID's store and jobstore and builds an
// action.Dispatcher around them. The returned job.Dispatcher is never
// started (no worker goroutines) — a one-shot CLI command only needs
// Submit's enqueue-and-persist side, since a running `sdcore serve`
// daemon (or a later invocation of serve) owns actually executing queued
// jobs. Callers that need an action's job to run synchronously should use
// `serve` instead of a one-shot command.
func openLibrary(cc *CLIContext, libraryID string) (*libraryHandle, error) {
	registry := action.NewLibraryRegistry(cc.Cfg.DataDir, cc.Logger)

	if !registry.Exists(libraryID) {
		return nil, fmt.Errorf("library %q not found (see `sdcore library list`)", libraryID)
	}

	st, err := store.Open(context.Background(), registry.LibraryDBPath(libraryID), cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening library store: %w", err)
	}

	js, err := jobstore.Open(context.Background(), registry.LibraryJobsDBPath(libraryID), cc.Logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening job store: %w", err)
	}

	bus := eventbus.New(cc.Logger)

	checkpointEvery, err := parseJobDuration(cc.Cfg.Job.CheckpointInterval, 2*time.Second)
	if err != nil {
		cc.Logger.Warn("invalid checkpoint_interval, using default", "error", err)
	}

	jobLogger := func(jobID string) *slog.Logger {
		return cc.Logger.With("job_id", jobID)
	}

	jobs := job.NewDispatcher(js, cc.Logger, job.Config{CheckpointInterval: checkpointEvery}, jobLogger, nowMS)

	dispatcher := action.NewDispatcher(registry, st, jobs, js, bus, nil, cc.Device.ID, nowMS, cc.Logger)

	return &libraryHandle{store: st, jobstore: js, dispatcher: dispatcher, jobs: jobs, bus: bus}, nil
}

// volumeManagerFor builds a volume.Manager around an already-open
// libraryHandle, for one-shot commands (`volume scan`) that need a single
// Reconcile pass without starting the manager's background cron/watch
// goroutines.
func volumeManagerFor(cc *CLIContext, h *libraryHandle) *volume.Manager {
	cfg := volume.Config{RescanSpec: "@every " + cc.Cfg.Volume.RescanInterval, WatchMounts: cc.Cfg.Volume.WatchMounts}

	return volume.NewManager(h.store, h.bus, cc.Logger, cc.Device.ID, cfg, nowMS)
}

// parseJobDuration parses a config duration string, falling back to
// fallback (and returning an error to log, not to fail the command on)
// if the string is empty or malformed — a CLI command shouldn't refuse to
// run an action just because job.checkpoint_interval has a typo.
func parseJobDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("parsing duration %q: %w", value, err)
	}

	return d, nil
}
