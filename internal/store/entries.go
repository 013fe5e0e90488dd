package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spacedriveapp/sdcore/internal/model"
)

const (
	sqlEntryColumns = `id, location_id, parent_id, name, kind, extension, size,
		inode, path_hash, content_id, aggregate_size, child_count, file_count,
		created_at, modified_at, accessed_at, updated_at`

	sqlGetEntry = `SELECT ` + sqlEntryColumns + ` FROM entries WHERE id = ?`

	sqlGetEntryByPathHash = `SELECT ` + sqlEntryColumns +
		` FROM entries WHERE location_id = ? AND path_hash = ?`

	sqlUpsertEntry = `INSERT INTO entries (` + sqlEntryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location_id, path_hash) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			kind = excluded.kind,
			extension = excluded.extension,
			size = excluded.size,
			inode = excluded.inode,
			content_id = excluded.content_id,
			modified_at = excluded.modified_at,
			accessed_at = excluded.accessed_at,
			updated_at = excluded.updated_at`

	sqlListChildEntries = `SELECT ` + sqlEntryColumns +
		` FROM entries WHERE parent_id = ? ORDER BY name`

	sqlListEntriesByLocation = `SELECT ` + sqlEntryColumns +
		` FROM entries WHERE location_id = ?`

	sqlListUnidentifiedEntries = `SELECT ` + sqlEntryColumns +
		` FROM entries WHERE location_id = ? AND kind = 'file' AND content_id = ''`

	sqlListEntriesByContentID = `SELECT ` + sqlEntryColumns +
		` FROM entries WHERE content_id = ? ORDER BY location_id, name`

	sqlSetEntryContentID = `UPDATE entries SET content_id = ?, updated_at = ? WHERE id = ?`

	sqlSetEntryAggregates = `UPDATE entries
		SET aggregate_size = ?, child_count = ?, file_count = ?, updated_at = ?
		WHERE id = ?`

	sqlDeleteEntry = `DELETE FROM entries WHERE id = ?`

	// OR IGNORE makes closure insertion idempotent: re-running Processing
	// after a crash regenerates the same (ancestor_id, descendant_id) pairs
	// for entries the batch upsert resolved back to their pre-existing IDs,
	// which would otherwise violate entry_closure's primary key.
	sqlInsertClosureSelf = `INSERT OR IGNORE INTO entry_closure (ancestor_id, descendant_id, depth)
		VALUES (?, ?, 0)`

	sqlInsertClosureForChild = `INSERT OR IGNORE INTO entry_closure (ancestor_id, descendant_id, depth)
		SELECT ancestor_id, ?, depth + 1 FROM entry_closure WHERE descendant_id = ?`

	sqlListDescendants = `SELECT descendant_id FROM entry_closure
		WHERE ancestor_id = ? AND depth > 0`

	sqlListAncestors = `SELECT ancestor_id FROM entry_closure
		WHERE descendant_id = ? AND depth > 0 ORDER BY depth`
)

// GetEntry retrieves an entry by ID, returning (nil, nil) if not found.
func (s *Store) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, sqlGetEntry, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get entry %s: %w", id, err)
	}

	return e, nil
}

// GetEntryByPathHash looks up an entry by its location-scoped path hash —
// the Discovery phase's primary dedup key (spec.md §4.1).
func (s *Store) GetEntryByPathHash(ctx context.Context, locationID, pathHash string) (*model.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, sqlGetEntryByPathHash, locationID, pathHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get entry by path hash %s/%s: %w", locationID, pathHash, err)
	}

	return e, nil
}

// UpsertEntry inserts or updates a single entry.
func (s *Store) UpsertEntry(ctx context.Context, e *model.Entry) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertEntry, entryArgs(e)...)
	if err != nil {
		return fmt.Errorf("store: upsert entry %s: %w", e.ID, err)
	}

	return nil
}

// BatchUpsertEntries inserts or updates many entries inside a single
// transaction, the Discovery phase's main ingestion path (spec.md §4.1,
// batch size configured by indexer.batch_size).
func (s *Store) BatchUpsertEntries(ctx context.Context, entries []*model.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin batch upsert entries: %w", err)
	}

	for _, e := range entries {
		if _, execErr := tx.ExecContext(ctx, sqlUpsertEntry, entryArgs(e)...); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: batch upsert entry %s: %w", e.ID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit batch upsert entries: %w", err)
	}

	return nil
}

// InsertClosureForEntry wires a newly-created entry into the closure table:
// a self row (depth 0) plus one row for every ancestor of parentID, each
// one level deeper than that ancestor's distance from parentID. Called
// once per entry at Discovery time so descendant/ancestor queries never
// need a recursive walk (spec.md §3 EntryClosure).
func (s *Store) InsertClosureForEntry(ctx context.Context, entryID, parentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin closure insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlInsertClosureSelf, entryID, entryID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: insert self closure for %s: %w", entryID, err)
	}

	if parentID != "" {
		if _, err := tx.ExecContext(ctx, sqlInsertClosureForChild, entryID, parentID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: insert ancestor closure for %s: %w", entryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit closure insert for %s: %w", entryID, err)
	}

	return nil
}

// ListDescendants returns every descendant ID of ancestorID (any depth).
func (s *Store) ListDescendants(ctx context.Context, ancestorID string) ([]string, error) {
	return s.listClosureIDs(ctx, sqlListDescendants, ancestorID)
}

// ListAncestors returns every ancestor ID of descendantID, nearest first.
func (s *Store) ListAncestors(ctx context.Context, descendantID string) ([]string, error) {
	return s.listClosureIDs(ctx, sqlListAncestors, descendantID)
}

func (s *Store) listClosureIDs(ctx context.Context, query, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("store: closure query: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan closure row: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ReparentSubtree moves entryID (and its descendants) from its current
// ancestor chain onto newParentID's, used when the indexer detects a
// rename/move rather than a delete+create pair. The closure table's old
// ancestor links for the whole subtree are dropped and rebuilt against
// newParentID's ancestor chain; self rows (depth 0) and links purely
// internal to the subtree are untouched.
func (s *Store) ReparentSubtree(ctx context.Context, entryID, newParentID string, updatedAt int64) error {
	subtree, err := s.ListDescendants(ctx, entryID)
	if err != nil {
		return fmt.Errorf("store: list subtree for reparent %s: %w", entryID, err)
	}

	subtree = append(subtree, entryID)
	subtreeSet := make(map[string]bool, len(subtree))

	for _, id := range subtree {
		subtreeSet[id] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin reparent: %w", err)
	}

	for _, descendantID := range subtree {
		ancestors, err := s.ancestorsInTx(ctx, tx, descendantID)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: list ancestors of %s: %w", descendantID, err)
		}

		for _, ancestorID := range ancestors {
			if subtreeSet[ancestorID] {
				continue // internal link, keep as-is
			}

			if _, err := tx.ExecContext(ctx,
				`DELETE FROM entry_closure WHERE ancestor_id = ? AND descendant_id = ?`,
				ancestorID, descendantID); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("store: delete stale closure %s->%s: %w", ancestorID, descendantID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, sqlInsertClosureForChild, descendantID, newParentID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: insert new closure for %s: %w", descendantID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE entries SET parent_id = ?, updated_at = ? WHERE id = ?`,
		newParentID, updatedAt, entryID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: update parent pointer for %s: %w", entryID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit reparent %s: %w", entryID, err)
	}

	return nil
}

func (s *Store) ancestorsInTx(ctx context.Context, tx *sql.Tx, descendantID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, sqlListAncestors, descendantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListChildEntries returns the direct children of parentID, sorted by name.
func (s *Store) ListChildEntries(ctx context.Context, parentID string) ([]*model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlListChildEntries, parentID)
	if err != nil {
		return nil, fmt.Errorf("store: list child entries of %s: %w", parentID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

// ListEntriesByLocation returns every entry under a location, used by the
// Aggregation phase to recompute directory sizes bottom-up.
func (s *Store) ListEntriesByLocation(ctx context.Context, locationID string) ([]*model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlListEntriesByLocation, locationID)
	if err != nil {
		return nil, fmt.Errorf("store: list entries for location %s: %w", locationID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

// ListUnidentifiedEntries returns file entries still missing a content_id,
// the Content-Identification phase's work queue.
func (s *Store) ListUnidentifiedEntries(ctx context.Context, locationID string) ([]*model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlListUnidentifiedEntries, locationID)
	if err != nil {
		return nil, fmt.Errorf("store: list unidentified entries for %s: %w", locationID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

// ListEntriesByContentID returns every entry that references contentID —
// the sibling copies a duplicate-detection pass needs to list once a
// content identity with entry_count > 1 has been found.
func (s *Store) ListEntriesByContentID(ctx context.Context, contentID string) ([]*model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlListEntriesByContentID, contentID)
	if err != nil {
		return nil, fmt.Errorf("store: list entries by content id %s: %w", contentID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

// SetEntryContentID assigns an entry's ContentIdentity once hashed.
func (s *Store) SetEntryContentID(ctx context.Context, entryID, contentID string, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlSetEntryContentID, contentID, updatedAt, entryID)
	if err != nil {
		return fmt.Errorf("store: set entry content id %s: %w", entryID, err)
	}

	return nil
}

// SetEntryAggregates writes the recomputed directory totals an Aggregation
// pass produces for a folder entry.
func (s *Store) SetEntryAggregates(ctx context.Context, entryID string, aggregateSize int64, childCount, fileCount int, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlSetEntryAggregates, aggregateSize, childCount, fileCount, updatedAt, entryID)
	if err != nil {
		return fmt.Errorf("store: set entry aggregates %s: %w", entryID, err)
	}

	return nil
}

// DeleteEntry removes an entry; its closure rows cascade via the foreign
// key's ON DELETE CASCADE.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteEntry, id); err != nil {
		return fmt.Errorf("store: delete entry %s: %w", id, err)
	}

	return nil
}

func entryArgs(e *model.Entry) []any {
	return []any{
		e.ID, e.LocationID, e.ParentID, e.Name, string(e.Kind), e.Extension, e.Size,
		e.Inode, e.PathHash, e.ContentID, e.AggregateSize, e.ChildCount, e.FileCount,
		e.CreatedAt, e.ModifiedAt, e.AccessedAt, e.UpdatedAt,
	}
}

func scanEntry(row interface{ Scan(...any) error }) (*model.Entry, error) {
	var e model.Entry

	var kind string

	err := row.Scan(&e.ID, &e.LocationID, &e.ParentID, &e.Name, &kind, &e.Extension, &e.Size,
		&e.Inode, &e.PathHash, &e.ContentID, &e.AggregateSize, &e.ChildCount, &e.FileCount,
		&e.CreatedAt, &e.ModifiedAt, &e.AccessedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Kind = model.EntryKind(kind)

	return &e, nil
}

func scanEntryRows(rows *sql.Rows) ([]*model.Entry, error) {
	var entries []*model.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
