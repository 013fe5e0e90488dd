package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spacedriveapp/sdcore/internal/model"
)

const (
	sqlDeviceColumns = `id, slug, platform, paired, session_key, created_at, last_seen_at`

	sqlGetDevice = `SELECT ` + sqlDeviceColumns + ` FROM devices WHERE id = ?`

	sqlUpsertDevice = `INSERT INTO devices (` + sqlDeviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			platform = excluded.platform,
			paired = excluded.paired,
			session_key = excluded.session_key,
			last_seen_at = excluded.last_seen_at`

	sqlListDevices = `SELECT ` + sqlDeviceColumns + ` FROM devices ORDER BY created_at`

	sqlTouchDevice = `UPDATE devices SET last_seen_at = ? WHERE id = ?`
)

// GetDevice retrieves a device by ID, returning (nil, nil) if it does not
// exist, matching the teacher's GetItem nil-means-not-found convention.
func (s *Store) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx, sqlGetDevice, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get device %s: %w", id, err)
	}

	return d, nil
}

// UpsertDevice inserts or updates a device record.
func (s *Store) UpsertDevice(ctx context.Context, d *model.Device) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertDevice,
		d.ID, d.Slug, d.Platform, boolToInt(d.Paired), d.SessionKey, d.CreatedAt, d.LastSeenAt)
	if err != nil {
		return fmt.Errorf("store: upsert device %s: %w", d.ID, err)
	}

	return nil
}

// ListDevices returns every device known to this library, paired or not.
func (s *Store) ListDevices(ctx context.Context) ([]*model.Device, error) {
	rows, err := s.db.QueryContext(ctx, sqlListDevices)
	if err != nil {
		return nil, fmt.Errorf("store: list devices: %w", err)
	}
	defer rows.Close()

	var devices []*model.Device

	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan device row: %w", err)
		}

		devices = append(devices, d)
	}

	return devices, rows.Err()
}

// TouchDevice updates a device's last_seen_at timestamp.
func (s *Store) TouchDevice(ctx context.Context, id string, nowMS int64) error {
	if _, err := s.db.ExecContext(ctx, sqlTouchDevice, nowMS, id); err != nil {
		return fmt.Errorf("store: touch device %s: %w", id, err)
	}

	return nil
}

func scanDevice(row interface{ Scan(...any) error }) (*model.Device, error) {
	var d model.Device

	var paired int

	err := row.Scan(&d.ID, &d.Slug, &d.Platform, &paired, &d.SessionKey, &d.CreatedAt, &d.LastSeenAt)
	if err != nil {
		return nil, err
	}

	d.Paired = paired != 0

	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
