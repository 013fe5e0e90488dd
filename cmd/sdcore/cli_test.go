package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/action"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
)

// runCLI executes newRootCmd with args against a temp data dir/config file,
// capturing whatever the command wrote to os.Stdout or os.Stderr. Result
// output (entity IDs, table listings) goes through cmd.OutOrStdout or a bare
// fmt.Println to stdout; status/summary lines go through statusf to stderr
// (see format.go) — capturing both keeps assertions from caring which
// stream a given command happens to use.
func runCLI(t *testing.T, dataDir, configPath string, args ...string) string {
	t.Helper()

	full := append([]string{"--data-dir", dataDir, "--config", configPath}, args...)

	r, w, err := os.Pipe()
	require.NoError(t, err)

	origStdout, origStderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = w, w

	cmd := newRootCmd()
	cmd.SetArgs(full)

	runErr := cmd.ExecuteContext(context.Background())

	w.Close()
	os.Stdout, os.Stderr = origStdout, origStderr

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)

	require.NoError(t, runErr, "cli output: %s", buf.String())

	return strings.TrimSpace(buf.String())
}

// seedVolumeDirect opens libraryID's store directly (bypassing the CLI)
// and inserts a volume row, since volume discovery normally comes from
// internal/volume.Manager's OS-level scan, not a path this test drives.
func seedVolumeDirect(t *testing.T, dataDir, libraryID, deviceID string) *model.Volume {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	registry := action.NewLibraryRegistry(dataDir, logger)

	st, err := store.Open(context.Background(), registry.LibraryDBPath(libraryID), logger)
	require.NoError(t, err)

	defer st.Close()

	vol := &model.Volume{
		ID: uuid.NewString(), DeviceID: deviceID, Fingerprint: uuid.NewString(),
		Name: "test-volume", MountPoint: t.TempDir(), FileSystem: "ext4",
		DiskType: model.DiskTypeSSD, MountType: model.MountTypeSystem, VolumeType: model.VolumeTypePrimary,
		DetectedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, st.UpsertVolume(context.Background(), vol))

	return vol
}

func deviceIDFor(t *testing.T, dataDir string) string {
	t.Helper()

	dev, err := loadOrCreateDevice(dataDir)
	require.NoError(t, err)

	return dev.ID
}

func TestCLI_LibraryCreateAndList(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "config.toml")

	out := runCLI(t, dataDir, configPath, "library", "create", "Photos")
	lines := strings.Split(out, "\n")
	libraryID := lines[len(lines)-1]
	require.NotEmpty(t, libraryID)

	list := runCLI(t, dataDir, configPath, "library", "list")
	require.Contains(t, list, "Photos")
	require.Contains(t, list, libraryID)
}

func TestCLI_LocationAddIndexAndQuery(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "config.toml")

	out := runCLI(t, dataDir, configPath, "library", "create", "Docs")
	lines := strings.Split(out, "\n")
	libraryID := lines[len(lines)-1]

	deviceID := deviceIDFor(t, dataDir)
	vol := seedVolumeDirect(t, dataDir, libraryID, deviceID)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644))

	out = runCLI(t, dataDir, configPath, "--library", libraryID, "location", "add", root, "--volume", vol.ID)
	lines = strings.Split(out, "\n")
	locationID := lines[len(lines)-1]
	require.NotEmpty(t, locationID)

	out = runCLI(t, dataDir, configPath, "--library", libraryID, "location", "index", locationID)
	require.Contains(t, out, "indexing")

	out = runCLI(t, dataDir, configPath, "--library", libraryID, "query", "volumes")
	require.Contains(t, out, vol.Name)

	out = runCLI(t, dataDir, configPath, "--library", libraryID, "duplicates")
	require.Contains(t, out, "duplicate content groups")
}

func TestCLI_VolumeTrackUntrack(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "config.toml")

	out := runCLI(t, dataDir, configPath, "library", "create", "Lib")
	libraryID := strings.Split(out, "\n")[len(strings.Split(out, "\n"))-1]

	deviceID := deviceIDFor(t, dataDir)
	vol := seedVolumeDirect(t, dataDir, libraryID, deviceID)

	out = runCLI(t, dataDir, configPath, "--library", libraryID, "volume", "track", vol.ID)
	require.Contains(t, out, "now tracked")

	out = runCLI(t, dataDir, configPath, "--library", libraryID, "volume", "untrack", vol.ID)
	require.Contains(t, out, "no longer tracked")
}

func TestCLI_RequiresLibraryFlag(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "config.toml")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--data-dir", dataDir, "--config", configPath, "query", "volumes"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "--library")
}

func TestCLI_LibraryDeleteRemovesDirectory(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "config.toml")

	out := runCLI(t, dataDir, configPath, "library", "create", "Temp")
	libraryID := strings.Split(out, "\n")[len(strings.Split(out, "\n"))-1]

	runCLI(t, dataDir, configPath, "library", "delete", libraryID)

	logger := slog.New(slog.DiscardHandler)
	registry := action.NewLibraryRegistry(dataDir, logger)
	require.False(t, registry.Exists(libraryID))
}
