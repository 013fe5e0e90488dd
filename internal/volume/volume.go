// Package volume detects mounted storage surfaces (disks, network shares,
// removable media) and keeps internal/store's volumes table in sync with
// reality, broadcasting VolumeAdded/Removed/Updated on internal/eventbus
// as volumes come and go (spec.md §4.4). Detection is cross-platform via
// gopsutil; disk-type classification (SSD vs HDD) is Linux-only, falling
// back to Unknown elsewhere, matching spec.md's "best-effort" framing for
// that one attribute.
package volume

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/spacedriveapp/sdcore/internal/contenthash"
	"github.com/spacedriveapp/sdcore/internal/model"
)

// Detect enumerates every mounted partition visible to the OS and returns
// it as a model.Volume, not yet persisted. deviceID tags every result so
// callers can upsert directly into internal/store. Fingerprint is
// blake3(name, total bytes, filesystem) — stable across remounts of the
// same physical disk, unstable across a reformat (spec.md §6.4).
func Detect(ctx context.Context, deviceID string) ([]model.Volume, error) {
	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("volume: listing partitions: %w", err)
	}

	volumes := make([]model.Volume, 0, len(partitions))

	for _, p := range partitions {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			// Unreadable mount (permission denied, stale network share);
			// skip rather than fail the whole detection pass.
			continue
		}

		name := volumeName(p)

		v := model.Volume{
			DeviceID:       deviceID,
			Fingerprint:    contenthash.Fingerprint(name, fmt.Sprintf("%d", usage.Total), p.Fstype),
			Name:           name,
			MountPoint:     p.Mountpoint,
			FileSystem:     p.Fstype,
			DiskType:       classifyDiskType(p.Device),
			MountType:      classifyMountType(p),
			VolumeType:     classifyVolumeType(p),
			TotalBytes:     usage.Total,
			AvailableBytes: usage.Free,
			Online:         true,
		}

		volumes = append(volumes, v)
	}

	return volumes, nil
}

// volumeName derives a human-readable label from a partition's device
// node, falling back to the mount point when the device path is empty
// (some virtual filesystems report no backing device).
func volumeName(p disk.PartitionStat) string {
	if p.Device != "" {
		return p.Device
	}

	return p.Mountpoint
}
