package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spacedriveapp/sdcore/internal/model"
)

const (
	sqlLocationColumns = `id, volume_id, path, name, index_mode, scan_state,
		root_entry_id, created_at, updated_at`

	sqlGetLocation = `SELECT ` + sqlLocationColumns + ` FROM locations WHERE id = ?`

	sqlGetLocationByPath = `SELECT ` + sqlLocationColumns +
		` FROM locations WHERE volume_id = ? AND path = ?`

	sqlUpsertLocation = `INSERT INTO locations (` + sqlLocationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(volume_id, path) DO UPDATE SET
			name = excluded.name,
			index_mode = excluded.index_mode,
			scan_state = excluded.scan_state,
			root_entry_id = excluded.root_entry_id,
			updated_at = excluded.updated_at`

	sqlListLocations = `SELECT ` + sqlLocationColumns + ` FROM locations ORDER BY name`

	sqlSetLocationScanState = `UPDATE locations SET scan_state = ?, updated_at = ? WHERE id = ?`

	sqlSetLocationRootEntry = `UPDATE locations SET root_entry_id = ?, updated_at = ? WHERE id = ?`

	sqlDeleteLocation = `DELETE FROM locations WHERE id = ?`
)

// GetLocation retrieves a location by ID, returning (nil, nil) if not found.
func (s *Store) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	loc, err := scanLocation(s.db.QueryRowContext(ctx, sqlGetLocation, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get location %s: %w", id, err)
	}

	return loc, nil
}

// GetLocationByPath retrieves a location by its volume-scoped root path.
func (s *Store) GetLocationByPath(ctx context.Context, volumeID, path string) (*model.Location, error) {
	loc, err := scanLocation(s.db.QueryRowContext(ctx, sqlGetLocationByPath, volumeID, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get location by path %s/%s: %w", volumeID, path, err)
	}

	return loc, nil
}

// UpsertLocation inserts or updates a location.
func (s *Store) UpsertLocation(ctx context.Context, loc *model.Location) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertLocation,
		loc.ID, loc.VolumeID, loc.Path, loc.Name, string(loc.IndexMode), string(loc.ScanState),
		loc.RootEntryID, loc.CreatedAt, loc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert location %s: %w", loc.ID, err)
	}

	return nil
}

// ListLocations returns every location configured in the library.
func (s *Store) ListLocations(ctx context.Context) ([]*model.Location, error) {
	rows, err := s.db.QueryContext(ctx, sqlListLocations)
	if err != nil {
		return nil, fmt.Errorf("store: list locations: %w", err)
	}
	defer rows.Close()

	var locations []*model.Location

	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location row: %w", err)
		}

		locations = append(locations, loc)
	}

	return locations, rows.Err()
}

// SetLocationScanState transitions a location's indexing state machine
// (spec.md §4.1: Pending -> Scanning -> Complete, or -> Failed).
func (s *Store) SetLocationScanState(ctx context.Context, id string, state model.ScanState, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlSetLocationScanState, string(state), updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: set location scan state %s: %w", id, err)
	}

	return nil
}

// SetLocationRootEntry records the Entry ID created for a location's root
// directory, set once Discovery creates it.
func (s *Store) SetLocationRootEntry(ctx context.Context, id, rootEntryID string, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlSetLocationRootEntry, rootEntryID, updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: set location root entry %s: %w", id, err)
	}

	return nil
}

// DeleteLocation removes a location and, via ON DELETE CASCADE, all of its
// entries and closure rows.
func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteLocation, id); err != nil {
		return fmt.Errorf("store: delete location %s: %w", id, err)
	}

	return nil
}

func scanLocation(row interface{ Scan(...any) error }) (*model.Location, error) {
	var loc model.Location

	var indexMode, scanState string

	err := row.Scan(&loc.ID, &loc.VolumeID, &loc.Path, &loc.Name, &indexMode, &scanState,
		&loc.RootEntryID, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	loc.IndexMode = model.IndexMode(indexMode)
	loc.ScanState = model.ScanState(scanState)

	return &loc, nil
}
