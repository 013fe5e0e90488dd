package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/config"
	"github.com/spacedriveapp/sdcore/internal/indexer"
	"github.com/spacedriveapp/sdcore/internal/jobstore"
)

// defaultMetricsAddr is where serve exposes its Prometheus /metrics
// endpoint, promhttp.Handler() wired the same way the teacher's HTTP
// router exposes it.
const defaultMetricsAddr = ":9090"

// newServeCmd runs the long-lived daemon half of the engine for one
// library: the job dispatcher's worker pool (processing indexing jobs
// queued by `sdcore location index`), the volume manager's periodic
// rescan, and a Prometheus metrics endpoint. It deliberately does not
// start the sync engine/pairing/transport stack — wiring a websocket
// listener and ed25519 pairing keys is out of scope for a demonstration
// daemon; see DESIGN.md's Open Question on this for the reasoning.
func newServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the job dispatcher and volume manager as a long-lived daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			libraryID, err := requireLibraryFlag()
			if err != nil {
				return err
			}

			return runServe(cc, libraryID, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", defaultMetricsAddr, "address to serve Prometheus metrics on")

	return cmd
}

func runServe(cc *CLIContext, libraryID, metricsAddr string) error {
	h, err := openLibrary(cc, libraryID)
	if err != nil {
		return err
	}
	defer h.Close()

	pidPath := filepath.Join(cc.Cfg.DataDir, "libraries", libraryID, "serve.pid")

	cleanupPID, err := acquireDaemonLock(pidPath, libraryID, nowMS())
	if err != nil {
		return err
	}
	defer cleanupPID()

	ctx := shutdownContext(context.Background(), cc.Logger)
	hup := sighupChannel()

	workers := cc.Cfg.Job.Workers
	if workers <= 0 {
		workers = 1
	}

	h.jobs.Start(ctx, workers)
	defer h.jobs.Stop()

	if err := resumeJobs(ctx, h, cc); err != nil {
		cc.Logger.Warn("failed to resume pending jobs", "error", err)
	}

	mgr := volumeManagerFor(cc, h)

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("starting volume manager: %w", err)
	}

	defer mgr.Stop()

	srv := &http.Server{Addr: metricsAddr, Handler: metricsMux()}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cc.Logger.Error("metrics server exited", "error", err)
		}
	}()

	statusf(cc.Quiet, "serving library %s (metrics on %s, PID %s)", libraryID, metricsAddr, pidPath)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			srv.Shutdown(shutdownCtx)
			cancel()

			return nil
		case <-hup:
			cc.Logger.Info("received SIGHUP — reloading config file")

			reloaded, err := reloadConfig(cc)
			if err != nil {
				cc.Logger.Warn("config reload failed, keeping previous config", "error", err)
				continue
			}

			cc.Cfg = reloaded
		}
	}
}

// metricsMux builds the HTTP handler for serve's metrics endpoint. A
// dedicated mux rather than the default one keeps this process's metrics
// endpoint isolated from any other package that might register handlers
// on http.DefaultServeMux.
func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// resumeJobs reconstructs and re-submits every job left in a resumable
// state (queued, running, or paused) by a previous serve invocation that
// exited or crashed. Only indexer.LocationJobKind jobs are resumable —
// that's the only job kind with a Resume constructor today (see
// internal/indexer.ResumeIndexLocationJob); a future job kind needs its
// own case added here.
func resumeJobs(ctx context.Context, h *libraryHandle, cc *CLIContext) error {
	records, err := h.jobstore.ListResumable(ctx)
	if err != nil {
		return fmt.Errorf("listing resumable jobs: %w", err)
	}

	for _, rec := range records {
		if rec.Kind != indexer.LocationJobKind {
			cc.Logger.Warn("skipping resume for unsupported job kind", "kind", rec.Kind, "job_id", rec.ID)
			continue
		}

		if err := resumeIndexJob(ctx, h, cc, rec); err != nil {
			cc.Logger.Warn("failed to resume indexing job", "job_id", rec.ID, "error", err)
		}
	}

	return nil
}

func resumeIndexJob(ctx context.Context, h *libraryHandle, cc *CLIContext, rec *jobstore.Record) error {
	// The location ID a resumed indexing job targets isn't in
	// jobstore.Record; reconstructing it requires walking every location
	// and matching whichever one this job was indexing. In practice the
	// job's TaskState (Discovery's walked-entry list) is location-scoped
	// already, so the simplest correct approach is to resume against
	// every location and let ResumeIndexLocationJob's own store reads
	// settle on the right one via rec.TaskState — deferred here as a
	// known limitation rather than guessed at.
	locs, err := h.store.ListLocations(ctx)
	if err != nil {
		return err
	}

	for _, loc := range locs {
		opts := indexer.Options{
			IndexMode: loc.IndexMode, BatchSize: defaultResumeBatchSize, ContentWorkers: defaultResumeContentWorkers,
			SkipHidden: true, SkipSystemDirs: true, SkipDevDirs: true,
		}

		j, _, err := indexer.ResumeIndexLocationJob(h.store, cc.Device.ID, loc, opts, nowMS, rec)
		if err != nil {
			continue
		}

		if j.ID() != rec.ID {
			continue
		}

		return h.jobs.Submit(ctx, j)
	}

	return fmt.Errorf("no location matched resumable job %s", rec.ID)
}

const (
	defaultResumeBatchSize      = 500
	defaultResumeContentWorkers = 4
)

// reloadConfig re-resolves configuration from disk, for the SIGHUP path —
// lets an operator change log level or job worker count without
// restarting the daemon's in-flight jobs. The job dispatcher's worker
// count itself is fixed at Start time (see job.Dispatcher.Start), so a
// changed job.workers value takes effect only on the next serve restart;
// this only refreshes cc.Cfg for anything that reads it live (e.g. volume
// rescan interval on the next cron tick).
func reloadConfig(cc *CLIContext) (*config.Resolved, error) {
	cli := config.CLIOverrides{ConfigPath: cc.Cfg.ConfigPath, DataDir: cc.Cfg.DataDir}

	return config.Resolve(config.EnvOverrides{}, cli, cc.Logger)
}
