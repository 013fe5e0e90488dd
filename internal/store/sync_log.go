package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spacedriveapp/sdcore/internal/model"
)

const (
	sqlLogColumns = `id, hlc_physical_ms, hlc_counter, hlc_device_id, change_type, model_name, record_id, data, created_at`

	sqlAppendLogEntry = `INSERT INTO sync_log_entries
		(hlc_physical_ms, hlc_counter, hlc_device_id, change_type, model_name, record_id, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlListLogEntriesSince = `SELECT ` + sqlLogColumns + ` FROM sync_log_entries
		WHERE hlc_physical_ms > ?
		   OR (hlc_physical_ms = ? AND hlc_counter > ?)
		   OR (hlc_physical_ms = ? AND hlc_counter = ? AND hlc_device_id > ?)
		ORDER BY hlc_physical_ms, hlc_counter, hlc_device_id
		LIMIT ?`

	sqlPruneLogEntriesBefore = `DELETE FROM sync_log_entries
		WHERE hlc_physical_ms < ?
		   OR (hlc_physical_ms = ? AND hlc_counter < ?)`

	sqlGetCursor = `SELECT peer_device_id, hlc_physical_ms, hlc_counter, hlc_device_id, updated_at
		FROM sync_cursors WHERE peer_device_id = ?`

	sqlUpsertCursor = `INSERT INTO sync_cursors
		(peer_device_id, hlc_physical_ms, hlc_counter, hlc_device_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(peer_device_id) DO UPDATE SET
			hlc_physical_ms = excluded.hlc_physical_ms,
			hlc_counter = excluded.hlc_counter,
			hlc_device_id = excluded.hlc_device_id,
			updated_at = excluded.updated_at`

	sqlListCursors = `SELECT peer_device_id, hlc_physical_ms, hlc_counter, hlc_device_id, updated_at
		FROM sync_cursors ORDER BY peer_device_id`
)

// AppendLogEntry records one mutation to a log-synced model. The caller
// assigns HLC fields before calling; ID and CreatedAt are set here.
func (s *Store) AppendLogEntry(ctx context.Context, e *model.SyncLogEntry, nowMS int64) error {
	res, err := s.db.ExecContext(ctx, sqlAppendLogEntry,
		e.HLCPhysicalMS, e.HLCCounter, e.HLCDeviceID, string(e.ChangeType), e.ModelName, e.RecordID, e.Data, nowMS)
	if err != nil {
		return fmt.Errorf("store: append log entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: append log entry last insert id: %w", err)
	}

	e.ID = id
	e.CreatedAt = nowMS

	return nil
}

// ListLogEntriesSince returns up to limit log entries strictly newer than
// the given HLC components, ordered by HLC — the resume cursor shape a
// peer's BackfillRequest/live push consumes page by page.
func (s *Store) ListLogEntriesSince(ctx context.Context, physicalMS int64, counter uint32, deviceID string, limit int) ([]*model.SyncLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, sqlListLogEntriesSince,
		physicalMS, physicalMS, counter, physicalMS, counter, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list log entries since: %w", err)
	}
	defer rows.Close()

	var entries []*model.SyncLogEntry

	for rows.Next() {
		var e model.SyncLogEntry

		var changeType string

		if err := rows.Scan(&e.ID, &e.HLCPhysicalMS, &e.HLCCounter, &e.HLCDeviceID,
			&changeType, &e.ModelName, &e.RecordID, &e.Data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan log entry row: %w", err)
		}

		e.ChangeType = model.ChangeType(changeType)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// PruneLogEntriesBeforeLowestCursor deletes log entries older than every
// paired peer's current high-water-mark, per spec.md §6's "a log entry may
// be deleted when all paired devices have acknowledged receipt." A library
// with no paired peers yet prunes nothing.
func (s *Store) PruneLogEntriesBeforeLowestCursor(ctx context.Context) (int64, error) {
	cursors, err := s.ListCursors(ctx)
	if err != nil {
		return 0, err
	}

	if len(cursors) == 0 {
		return 0, nil
	}

	lowest := cursors[0]
	for _, c := range cursors[1:] {
		if c.HLCPhysicalMS < lowest.HLCPhysicalMS ||
			(c.HLCPhysicalMS == lowest.HLCPhysicalMS && c.HLCCounter < lowest.HLCCounter) {
			lowest = c
		}
	}

	res, err := s.db.ExecContext(ctx, sqlPruneLogEntriesBefore, lowest.HLCPhysicalMS, lowest.HLCPhysicalMS, lowest.HLCCounter)
	if err != nil {
		return 0, fmt.Errorf("store: prune log entries: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: prune log entries rows affected: %w", err)
	}

	return n, nil
}

// GetCursor returns the high-water-mark recorded for peerDeviceID, or nil
// if no log entry has been acked by that peer yet.
func (s *Store) GetCursor(ctx context.Context, peerDeviceID string) (*model.SyncCursor, error) {
	row := s.db.QueryRowContext(ctx, sqlGetCursor, peerDeviceID)

	var c model.SyncCursor

	err := row.Scan(&c.PeerDeviceID, &c.HLCPhysicalMS, &c.HLCCounter, &c.HLCDeviceID, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get cursor %s: %w", peerDeviceID, err)
	}

	return &c, nil
}

// SetCursor records that peerDeviceID has acknowledged consumption through
// the given HLC timestamp.
func (s *Store) SetCursor(ctx context.Context, c *model.SyncCursor) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertCursor,
		c.PeerDeviceID, c.HLCPhysicalMS, c.HLCCounter, c.HLCDeviceID, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: set cursor %s: %w", c.PeerDeviceID, err)
	}

	return nil
}

// ListCursors returns every peer's current high-water-mark.
func (s *Store) ListCursors(ctx context.Context) ([]*model.SyncCursor, error) {
	rows, err := s.db.QueryContext(ctx, sqlListCursors)
	if err != nil {
		return nil, fmt.Errorf("store: list cursors: %w", err)
	}
	defer rows.Close()

	var cursors []*model.SyncCursor

	for rows.Next() {
		var c model.SyncCursor

		if err := rows.Scan(&c.PeerDeviceID, &c.HLCPhysicalMS, &c.HLCCounter, &c.HLCDeviceID, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan cursor row: %w", err)
		}

		cursors = append(cursors, &c)
	}

	return cursors, rows.Err()
}
