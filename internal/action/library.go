package action

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/store"
)

// libraryDBFile is the filename every library's store.Store opens within
// its own libraries/<uuid>/ directory, per spec.md §6's persisted state
// layout.
const libraryDBFile = "library.db"

// LibraryRegistry creates and destroys the on-disk library directories
// (libraries/<uuid>/library.db, .../sync.db) that back LibraryCreate and
// LibraryDelete. It holds no reference to any one library's open Store —
// callers open/close a library's Store themselves once LibraryCreate
// returns the new UUID.
type LibraryRegistry struct {
	dataDir string
	logger  *slog.Logger
}

// NewLibraryRegistry constructs a LibraryRegistry rooted at dataDir
// (typically config.DefaultDataDir()).
func NewLibraryRegistry(dataDir string, logger *slog.Logger) *LibraryRegistry {
	return &LibraryRegistry{dataDir: dataDir, logger: logger}
}

// LibraryDBPath returns the library.db path for libraryID.
func (r *LibraryRegistry) LibraryDBPath(libraryID string) string {
	return filepath.Join(r.dataDir, "libraries", libraryID, libraryDBFile)
}

// LibrarySyncDBPath returns the sync.db path for libraryID.
func (r *LibraryRegistry) LibrarySyncDBPath(libraryID string) string {
	return filepath.Join(r.dataDir, "libraries", libraryID, "sync.db")
}

// LibraryJobsDBPath returns the jobs.db path for libraryID, the jobstore
// database tracking that library's indexing and maintenance jobs.
func (r *LibraryRegistry) LibraryJobsDBPath(libraryID string) string {
	return filepath.Join(r.dataDir, "libraries", libraryID, "jobs.db")
}

// Create provisions a new library directory and returns its UUID. The
// caller is responsible for opening a store.Store at LibraryDBPath for
// write access; Create itself only makes sure the directory exists so
// that subsequent store.Open succeeds.
func (r *LibraryRegistry) Create(libraryID string) error {
	dir := filepath.Join(r.dataDir, "libraries", libraryID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("action: create library dir %s: %w", dir, err)
	}

	return nil
}

// Delete removes a library's entire on-disk directory, including its
// library.db, sync.db, and any job logs nested beneath it. This is
// irreversible — callers must have already confirmed with the user, per
// this package's contract that execute performs side effects without
// further confirmation once Dispatch is called.
func (r *LibraryRegistry) Delete(libraryID string) error {
	dir := filepath.Join(r.dataDir, "libraries", libraryID)

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("action: delete library dir %s: %w", dir, err)
	}

	return nil
}

// Exists reports whether libraryID has a provisioned directory.
func (r *LibraryRegistry) Exists(libraryID string) bool {
	_, err := os.Stat(filepath.Join(r.dataDir, "libraries", libraryID))
	return err == nil
}

func init() {
	register(KindLibraryCreate, validateLibraryCreate, executeLibraryCreate)
	register(KindLibraryDelete, validateLibraryDelete, executeLibraryDelete)
}

func validateLibraryCreate(_ context.Context, d *Dispatcher, a Action) Result {
	if d.libraries == nil {
		return invalid("library create: no library registry configured")
	}

	if a.LibraryName == "" {
		return invalid("library create: name is required")
	}

	return ok()
}

func executeLibraryCreate(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
	id := uuid.NewString()

	if err := d.libraries.Create(id); err != nil {
		return Output{}, err
	}

	st, err := store.Open(ctx, d.libraries.LibraryDBPath(id), d.logger)
	if err != nil {
		return Output{}, fmt.Errorf("action: opening new library store: %w", err)
	}

	if err := st.Close(); err != nil {
		d.logger.Warn("action: closing freshly created library store", "error", err)
	}

	d.publish(ctx, eventbus.Event{Kind: eventbus.KindLibraryCreated, LibraryID: id})

	return Output{EntityID: id, Summary: fmt.Sprintf("library %q created", a.LibraryName)}, nil
}

func validateLibraryDelete(_ context.Context, d *Dispatcher, a Action) Result {
	if d.libraries == nil {
		return invalid("library delete: no library registry configured")
	}

	if a.LibraryID == "" {
		return invalid("library delete: library_id is required")
	}

	if !d.libraries.Exists(a.LibraryID) {
		return invalid("library delete: library %q not found", a.LibraryID)
	}

	return ok()
}

func executeLibraryDelete(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
	if err := d.libraries.Delete(a.LibraryID); err != nil {
		return Output{}, err
	}

	d.publish(ctx, eventbus.Event{Kind: eventbus.KindLibraryDeleted, LibraryID: a.LibraryID})

	return Output{EntityID: a.LibraryID, Summary: "library deleted"}, nil
}
