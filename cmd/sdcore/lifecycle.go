package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// daemonState is the small JSON record a running `sdcore serve` writes to
// its PID file — richer than a bare PID number, so `sdcore reload` (and a
// future `sdcore status`) can report which library a daemon is serving and
// when it started, not just whether it's alive.
type daemonState struct {
	PID       int    `json:"pid"`
	LibraryID string `json:"library_id"`
	StartedAt int64  `json:"started_at"` // Unix ms
}

const (
	daemonFilePermissions = 0o644
	daemonDirPermissions  = 0o755
)

// acquireDaemonLock writes a daemonState to path under an exclusive,
// non-blocking flock and returns a cleanup function that removes the file
// and releases the lock — the lock-file-as-mutex idiom keeping two `serve`
// invocations from racing over the same library's data directory. Fails
// immediately, rather than blocking, if another serve already holds it.
func acquireDaemonLock(path, libraryID string, startedAt int64) (cleanup func(), err error) {
	if path == "" {
		return nil, fmt.Errorf("PID file path is empty — cannot determine library data directory")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, daemonDirPermissions); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, daemonFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another serve is already running for this library (could not lock %s)", path)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating PID file: %w", err)
	}

	state := daemonState{PID: os.Getpid(), LibraryID: libraryID, StartedAt: startedAt}

	if err := json.NewEncoder(f).Encode(state); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing PID file: %w", err)
	}

	// Sync to disk so a concurrent `sdcore reload` sees the PID immediately.
	if err := f.Sync(); err != nil {
		f.Close()

		return nil, fmt.Errorf("syncing PID file: %w", err)
	}

	return func() {
		os.Remove(path)
		f.Close()
	}, nil
}

// readDaemonState reads and parses a PID file written by acquireDaemonLock.
func readDaemonState(path string) (*daemonState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PID file: %w", err)
	}

	var state daemonState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("invalid PID file content in %s: %w", path, err)
	}

	return &state, nil
}

// sendSIGHUP signals a running serve daemon, identified by its PID file, to
// reload its config. A PID file whose recorded process no longer exists is
// treated as stale and removed rather than reported as a reload failure.
func sendSIGHUP(pidPath string) error {
	state, err := readDaemonState(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no running daemon found (no PID file at %s)", pidPath)
		}

		return err
	}

	proc, err := os.FindProcess(state.PID)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", state.PID, err)
	}

	// Signal 0 probes liveness without actually signaling the process.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidPath)

		return fmt.Errorf("daemon (PID %d) is not running (stale PID file removed)", state.PID)
	}

	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("sending SIGHUP to daemon (PID %d): %w", state.PID, err)
	}

	return nil
}

// shutdownContext returns a context cancelled on the process's first
// SIGINT/SIGTERM, logging a graceful-shutdown message; a second signal
// forces an immediate os.Exit(1) rather than waiting on in-flight work.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}

// sighupChannel returns a channel that receives a value each time the
// process is sent SIGHUP — serve's trigger to reload its config file from
// disk without restarting its in-flight jobs (see reloadConfig in serve.go).
func sighupChannel() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	return sigCh
}
