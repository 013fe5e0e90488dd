// Package store implements the library database: devices, volumes,
// locations, entries, the entry_closure ancestry table, and
// content_identities (spec.md §3). Schema management follows the teacher's
// internal/sync database, now on goose's Provider API (see migrations.go)
// rather than the teacher's earlier hand-rolled PRAGMA user_version runner.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers as "sqlite"
)

// walJournalSizeLimitBytes caps the WAL file at 64 MiB before a checkpoint
// is forced, matching the teacher's sync state database.
const walJournalSizeLimitBytes = 67108864

// Store is the library database handle shared by the indexer, query layer,
// and sync engine.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at dbPath, sets
// WAL pragmas, and applies pending goose migrations. Use ":memory:" for
// tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	logger.Info("opening library database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// Sole-writer pattern: one connection, matching the teacher's
	// BaselineManager. Also keeps ":memory:" databases coherent across
	// queries, since each new connection would otherwise see a fresh
	// empty database.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("library database ready", "path", dbPath)

	return &Store{db: db, logger: logger}, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimitBytes),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// DB exposes the underlying *sql.DB for callers (the job system, the sync
// engine) that need to run their own transactions spanning multiple store
// methods.
func (s *Store) DB() *sql.DB { return s.db }

// Checkpoint forces a WAL checkpoint, consolidating the WAL file into the
// main database file.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("store: wal checkpoint: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Info("closing library database")

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}

	return nil
}
