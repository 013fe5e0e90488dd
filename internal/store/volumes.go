package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spacedriveapp/sdcore/internal/model"
)

const (
	sqlVolumeColumns = `id, device_id, fingerprint, name, mount_point, file_system,
		disk_type, mount_type, volume_type, total_bytes, available_bytes,
		read_speed_mbps, write_speed_mbps, is_tracked, online, detected_at, updated_at`

	sqlGetVolume = `SELECT ` + sqlVolumeColumns + ` FROM volumes WHERE id = ?`

	sqlGetVolumeByFingerprint = `SELECT ` + sqlVolumeColumns +
		` FROM volumes WHERE device_id = ? AND fingerprint = ?`

	sqlUpsertVolume = `INSERT INTO volumes (` + sqlVolumeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, fingerprint) DO UPDATE SET
			name = excluded.name,
			mount_point = excluded.mount_point,
			file_system = excluded.file_system,
			disk_type = excluded.disk_type,
			mount_type = excluded.mount_type,
			volume_type = excluded.volume_type,
			total_bytes = excluded.total_bytes,
			available_bytes = excluded.available_bytes,
			read_speed_mbps = excluded.read_speed_mbps,
			write_speed_mbps = excluded.write_speed_mbps,
			is_tracked = excluded.is_tracked,
			online = excluded.online,
			updated_at = excluded.updated_at`

	sqlListVolumesForDevice = `SELECT ` + sqlVolumeColumns +
		` FROM volumes WHERE device_id = ? ORDER BY name`

	sqlListAllVolumes = `SELECT ` + sqlVolumeColumns + ` FROM volumes ORDER BY device_id, name`

	sqlListTrackedVolumes = `SELECT ` + sqlVolumeColumns +
		` FROM volumes WHERE is_tracked = 1 ORDER BY name`

	sqlSetVolumeOnline = `UPDATE volumes SET online = ?, updated_at = ? WHERE id = ?`

	sqlSetVolumeTracked = `UPDATE volumes SET is_tracked = ?, updated_at = ? WHERE id = ?`
)

// GetVolume retrieves a volume by ID, returning (nil, nil) if not found.
func (s *Store) GetVolume(ctx context.Context, id string) (*model.Volume, error) {
	v, err := scanVolume(s.db.QueryRowContext(ctx, sqlGetVolume, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get volume %s: %w", id, err)
	}

	return v, nil
}

// GetVolumeByFingerprint looks up a volume by its device-scoped fingerprint,
// used by the volume manager to recognize a previously-seen disk across
// remounts (spec.md §6.4).
func (s *Store) GetVolumeByFingerprint(ctx context.Context, deviceID, fingerprint string) (*model.Volume, error) {
	v, err := scanVolume(s.db.QueryRowContext(ctx, sqlGetVolumeByFingerprint, deviceID, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get volume by fingerprint %s/%s: %w", deviceID, fingerprint, err)
	}

	return v, nil
}

// UpsertVolume inserts or updates a volume record.
func (s *Store) UpsertVolume(ctx context.Context, v *model.Volume) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertVolume,
		v.ID, v.DeviceID, v.Fingerprint, v.Name, v.MountPoint, v.FileSystem,
		string(v.DiskType), string(v.MountType), string(v.VolumeType),
		v.TotalBytes, v.AvailableBytes, v.ReadSpeedMBps, v.WriteSpeedMBps,
		boolToInt(v.IsTracked), boolToInt(v.Online), v.DetectedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert volume %s: %w", v.ID, err)
	}

	return nil
}

// ListVolumesForDevice returns all volumes ever detected on a device.
func (s *Store) ListVolumesForDevice(ctx context.Context, deviceID string) ([]*model.Volume, error) {
	rows, err := s.db.QueryContext(ctx, sqlListVolumesForDevice, deviceID)
	if err != nil {
		return nil, fmt.Errorf("store: list volumes for device %s: %w", deviceID, err)
	}
	defer rows.Close()

	return scanVolumeRows(rows)
}

// ListAllVolumes returns every volume row in the library across every
// device that has synced one in, tracked or not — the full inventory
// internal/query's ListVolumes exposes to a caller.
func (s *Store) ListAllVolumes(ctx context.Context) ([]*model.Volume, error) {
	rows, err := s.db.QueryContext(ctx, sqlListAllVolumes)
	if err != nil {
		return nil, fmt.Errorf("store: list all volumes: %w", err)
	}
	defer rows.Close()

	return scanVolumeRows(rows)
}

// ListTrackedVolumes returns volumes the user has opted to index (one or
// more Locations configured underneath them).
func (s *Store) ListTrackedVolumes(ctx context.Context) ([]*model.Volume, error) {
	rows, err := s.db.QueryContext(ctx, sqlListTrackedVolumes)
	if err != nil {
		return nil, fmt.Errorf("store: list tracked volumes: %w", err)
	}
	defer rows.Close()

	return scanVolumeRows(rows)
}

// SetVolumeOnline flips a volume's online flag, called when the volume
// manager observes a mount/unmount event.
func (s *Store) SetVolumeOnline(ctx context.Context, id string, online bool, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlSetVolumeOnline, boolToInt(online), updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: set volume online %s: %w", id, err)
	}

	return nil
}

// SetVolumeTracked flips a volume's is_tracked flag.
func (s *Store) SetVolumeTracked(ctx context.Context, id string, tracked bool, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlSetVolumeTracked, boolToInt(tracked), updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: set volume tracked %s: %w", id, err)
	}

	return nil
}

func scanVolumeRows(rows *sql.Rows) ([]*model.Volume, error) {
	var volumes []*model.Volume

	for rows.Next() {
		v, err := scanVolume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan volume row: %w", err)
		}

		volumes = append(volumes, v)
	}

	return volumes, rows.Err()
}

func scanVolume(row interface{ Scan(...any) error }) (*model.Volume, error) {
	var v model.Volume

	var diskType, mountType, volumeType string

	var tracked, online int

	err := row.Scan(
		&v.ID, &v.DeviceID, &v.Fingerprint, &v.Name, &v.MountPoint, &v.FileSystem,
		&diskType, &mountType, &volumeType, &v.TotalBytes, &v.AvailableBytes,
		&v.ReadSpeedMBps, &v.WriteSpeedMBps, &tracked, &online, &v.DetectedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.DiskType = model.DiskType(diskType)
	v.MountType = model.MountType(mountType)
	v.VolumeType = model.VolumeType(volumeType)
	v.IsTracked = tracked != 0
	v.Online = online != 0

	return &v, nil
}
