package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/spacedriveapp/sdcore/internal/model"
)

// deviceFilePerms restricts the device identity file to owner-only read/write,
// matching internal/tokenfile's FilePerms — this file is less sensitive than
// an OAuth token but there's no reason to make it world-readable.
const deviceFilePerms = 0o600

// deviceDirPerms matches internal/tokenfile's DirPerms.
const deviceDirPerms = 0o700

// deviceFileName is the identity file's name within the data directory.
const deviceFileName = "device.json"

// loadOrCreateDevice reads this installation's model.Device identity from
// dataDir/device.json, creating one with a freshly generated UUID on first
// run. The device ID is stable across CLI invocations so the store, the sync
// engine, and the action dispatcher all agree on "this machine" is the same
// row every time.
func loadOrCreateDevice(dataDir string) (*model.Device, error) {
	path := filepath.Join(dataDir, deviceFileName)

	dev, err := readDeviceFile(path)
	if err != nil {
		return nil, err
	}

	if dev != nil {
		return dev, nil
	}

	now := time.Now().UnixMilli()

	dev = &model.Device{
		ID:         uuid.NewString(),
		Slug:       defaultDeviceSlug(),
		Platform:   runtime.GOOS,
		Paired:     false,
		CreatedAt:  now,
		LastSeenAt: now,
	}

	if err := writeDeviceFile(path, dev); err != nil {
		return nil, fmt.Errorf("creating device identity: %w", err)
	}

	return dev, nil
}

// touchDevice updates LastSeenAt and persists it. Called once per CLI
// invocation after the device identity is loaded, so a stale LastSeenAt
// doesn't linger across long gaps between runs.
func touchDevice(dataDir string, dev *model.Device) error {
	dev.LastSeenAt = time.Now().UnixMilli()

	return writeDeviceFile(filepath.Join(dataDir, deviceFileName), dev)
}

// defaultDeviceSlug derives a human-readable device label from the OS
// hostname, falling back to a generic name if the hostname can't be read.
func defaultDeviceSlug() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "sdcore-device"
	}

	return host
}

// readDeviceFile reads and decodes the device identity file. Returns
// (nil, nil) if the file does not exist yet — first run on this machine.
func readDeviceFile(path string) (*model.Device, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("reading device identity %s: %w", path, err)
	}

	var dev model.Device
	if err := json.Unmarshal(data, &dev); err != nil {
		return nil, fmt.Errorf("decoding device identity %s: %w", path, err)
	}

	return &dev, nil
}

// writeDeviceFile writes the device identity atomically (write-to-temp +
// rename), the same pattern internal/tokenfile uses for credential files.
func writeDeviceFile(path string, dev *model.Device) error {
	data, err := json.MarshalIndent(dev, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding device identity: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, deviceDirPerms); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".device-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, deviceFilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming: %w", err)
	}

	success = true

	return nil
}
