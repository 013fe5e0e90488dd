package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spacedriveapp/sdcore/internal/model"
)

const (
	sqlContentIdentityColumns = `id, kind, content_hash, integrity_hash, mime_type_id,
		total_size, entry_count, extracted_text, first_seen_at, last_verified_at,
		updated_at, device_id`

	sqlGetContentIdentity = `SELECT ` + sqlContentIdentityColumns +
		` FROM content_identities WHERE id = ?`

	sqlGetContentIdentityByHash = `SELECT ` + sqlContentIdentityColumns +
		` FROM content_identities WHERE content_hash = ?`

	// entry_count is deliberately absent from the conflict update: every
	// caller that links an entry to a content identity (including a
	// concurrent Content-Identification task racing on the same
	// content_hash) reaches entry_count only through IncrementEntryCount/
	// DecrementEntryCount's own atomic UPDATE. Letting this upsert also
	// write entry_count would let a losing racer's stale in-memory count
	// clobber a winner's already-incremented row.
	sqlUpsertContentIdentity = `INSERT INTO content_identities (` + sqlContentIdentityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			integrity_hash = excluded.integrity_hash,
			mime_type_id = excluded.mime_type_id,
			extracted_text = excluded.extracted_text,
			last_verified_at = excluded.last_verified_at,
			updated_at = excluded.updated_at`

	sqlIncrementEntryCount = `UPDATE content_identities
		SET entry_count = entry_count + 1, updated_at = ? WHERE id = ?`

	sqlDecrementEntryCount = `UPDATE content_identities
		SET entry_count = MAX(0, entry_count - 1), updated_at = ? WHERE id = ?`

	sqlListUniqueToLocation = `SELECT ci.id, ci.content_hash, ci.total_size
		FROM content_identities ci
		JOIN entries e ON e.content_id = ci.id
		WHERE e.location_id = ? AND ci.entry_count = 1`

	sqlListContentIdentitiesSince = `SELECT ` + sqlContentIdentityColumns + `
		FROM content_identities
		WHERE updated_at > ? OR (updated_at = ? AND id > ?)
		ORDER BY updated_at, id
		LIMIT ?`

	sqlListDuplicateContentAll = `SELECT ` + sqlContentIdentityColumns + `
		FROM content_identities WHERE entry_count > 1 ORDER BY total_size DESC`

	sqlListDuplicateContentScoped = `SELECT DISTINCT ci.` + sqlDuplicateSelectList + `
		FROM content_identities ci
		JOIN entries e ON e.content_id = ci.id
		WHERE ci.entry_count > 1 AND e.location_id = ?
		ORDER BY ci.total_size DESC`

	sqlDuplicateSelectList = `id, ci.kind, ci.content_hash, ci.integrity_hash, ci.mime_type_id,
		ci.total_size, ci.entry_count, ci.extracted_text, ci.first_seen_at, ci.last_verified_at,
		ci.updated_at, ci.device_id`
)

// GetContentIdentity retrieves a content identity by ID, (nil, nil) if not
// found.
func (s *Store) GetContentIdentity(ctx context.Context, id string) (*model.ContentIdentity, error) {
	ci, err := scanContentIdentity(s.db.QueryRowContext(ctx, sqlGetContentIdentity, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get content identity %s: %w", id, err)
	}

	return ci, nil
}

// GetContentIdentityByHash looks up a content identity by its BLAKE3
// content hash — the dedup check every Content-Identification pass makes
// before minting a new ContentIdentity (spec.md §4.1 phase 3).
func (s *Store) GetContentIdentityByHash(ctx context.Context, hash string) (*model.ContentIdentity, error) {
	ci, err := scanContentIdentity(s.db.QueryRowContext(ctx, sqlGetContentIdentityByHash, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("store: get content identity by hash %s: %w", hash, err)
	}

	return ci, nil
}

// UpsertContentIdentity inserts or updates a content identity.
func (s *Store) UpsertContentIdentity(ctx context.Context, ci *model.ContentIdentity) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertContentIdentity,
		ci.ID, string(ci.Kind), ci.ContentHash, ci.IntegrityHash, ci.MimeTypeID,
		ci.TotalSize, ci.EntryCount, ci.ExtractedText, ci.FirstSeenAt, ci.LastVerifiedAt,
		ci.UpdatedAt, ci.DeviceID)
	if err != nil {
		return fmt.Errorf("store: upsert content identity %s: %w", ci.ID, err)
	}

	return nil
}

// IncrementEntryCount bumps a content identity's reference count when a
// new entry is linked to it.
func (s *Store) IncrementEntryCount(ctx context.Context, id string, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlIncrementEntryCount, updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: increment entry count %s: %w", id, err)
	}

	return nil
}

// DecrementEntryCount lowers a content identity's reference count when an
// entry referencing it is deleted.
func (s *Store) DecrementEntryCount(ctx context.Context, id string, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, sqlDecrementEntryCount, updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: decrement entry count %s: %w", id, err)
	}

	return nil
}

// UniqueContentSummary is a row from ListContentUniqueToLocation: a
// content identity referenced by exactly one entry, and that entry lives
// under the queried location.
type UniqueContentSummary struct {
	ContentID   string
	ContentHash string
	TotalSize   int64
}

// ListContentUniqueToLocation supports the "files unique to this location"
// query (spec.md §6.2 FindFilesUniqueToLocation): content identities with
// entry_count == 1 whose sole referencing entry is under locationID.
func (s *Store) ListContentUniqueToLocation(ctx context.Context, locationID string) ([]UniqueContentSummary, error) {
	rows, err := s.db.QueryContext(ctx, sqlListUniqueToLocation, locationID)
	if err != nil {
		return nil, fmt.Errorf("store: list content unique to location %s: %w", locationID, err)
	}
	defer rows.Close()

	var results []UniqueContentSummary

	for rows.Next() {
		var r UniqueContentSummary
		if err := rows.Scan(&r.ContentID, &r.ContentHash, &r.TotalSize); err != nil {
			return nil, fmt.Errorf("store: scan unique content row: %w", err)
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

// ListDuplicateContent returns every content identity referenced by more
// than one entry — byte-identical files stored more than once — scoped to
// locationID when non-empty, across the whole library otherwise.
func (s *Store) ListDuplicateContent(ctx context.Context, locationID string) ([]*model.ContentIdentity, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if locationID == "" {
		rows, err = s.db.QueryContext(ctx, sqlListDuplicateContentAll)
	} else {
		rows, err = s.db.QueryContext(ctx, sqlListDuplicateContentScoped, locationID)
	}

	if err != nil {
		return nil, fmt.Errorf("store: list duplicate content: %w", err)
	}
	defer rows.Close()

	var results []*model.ContentIdentity

	for rows.Next() {
		ci, err := scanContentIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan duplicate content row: %w", err)
		}

		results = append(results, ci)
	}

	return results, rows.Err()
}

// ListContentIdentitiesSince returns up to limit content identities with
// updated_at/id strictly past the given resume position, ordered for
// stable pagination — the snapshot page internal/syncengine's
// BackfillCoordinator walks when bootstrapping a new peer.
func (s *Store) ListContentIdentitiesSince(ctx context.Context, updatedAt int64, afterID string, limit int) ([]*model.ContentIdentity, error) {
	rows, err := s.db.QueryContext(ctx, sqlListContentIdentitiesSince, updatedAt, updatedAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list content identities since: %w", err)
	}
	defer rows.Close()

	var results []*model.ContentIdentity

	for rows.Next() {
		ci, err := scanContentIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan content identity row: %w", err)
		}

		results = append(results, ci)
	}

	return results, rows.Err()
}

func scanContentIdentity(row interface{ Scan(...any) error }) (*model.ContentIdentity, error) {
	var ci model.ContentIdentity

	var kind string

	err := row.Scan(&ci.ID, &kind, &ci.ContentHash, &ci.IntegrityHash, &ci.MimeTypeID,
		&ci.TotalSize, &ci.EntryCount, &ci.ExtractedText, &ci.FirstSeenAt, &ci.LastVerifiedAt,
		&ci.UpdatedAt, &ci.DeviceID)
	if err != nil {
		return nil, err
	}

	ci.Kind = model.ContentKind(kind)

	return &ci, nil
}
