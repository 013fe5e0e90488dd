package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Status mirrors the job lifecycle states of spec.md §4.2.
type Status string

// Job lifecycle states.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Record is a job's persisted checkpoint: enough to fully reconstruct and
// resume it after a crash or restart. TaskState is an opaque msgpack blob
// produced by the job package's task registry.
type Record struct {
	ID               string
	Kind             string
	Priority         int
	Status           Status
	ProgressPercent  float64
	CurrentTaskIndex int
	TaskState        []byte
	Warnings         string // newline-joined
	ErrorMessage     string
	CreatedAt        int64
	UpdatedAt        int64
	StartedAt        int64
	CompletedAt      int64
}

const (
	sqlRecordColumns = `id, kind, priority, status, progress_percent, current_task_index,
		task_state, warnings, error_message, created_at, updated_at, started_at, completed_at`

	sqlGetRecord = `SELECT ` + sqlRecordColumns + ` FROM jobs WHERE id = ?`

	sqlUpsertRecord = `INSERT INTO jobs (` + sqlRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			priority = excluded.priority,
			status = excluded.status,
			progress_percent = excluded.progress_percent,
			current_task_index = excluded.current_task_index,
			task_state = excluded.task_state,
			warnings = excluded.warnings,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`

	sqlListByStatus = `SELECT ` + sqlRecordColumns +
		` FROM jobs WHERE status = ? ORDER BY priority DESC, created_at`

	sqlListResumable = `SELECT ` + sqlRecordColumns +
		` FROM jobs WHERE status IN ('queued', 'running', 'paused')
		ORDER BY priority DESC, created_at`

	sqlDeleteRecord = `DELETE FROM jobs WHERE id = ?`
)

// Get retrieves a job record by ID, returning (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, sqlGetRecord, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("jobstore: get %s: %w", id, err)
	}

	return r, nil
}

// Upsert inserts or updates a job record — the dispatcher's checkpoint
// primitive, called after every task completes and at the configured
// checkpoint interval during long-running tasks (spec.md §4.2).
func (s *Store) Upsert(ctx context.Context, r *Record) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertRecord,
		r.ID, r.Kind, r.Priority, string(r.Status), r.ProgressPercent, r.CurrentTaskIndex,
		r.TaskState, r.Warnings, r.ErrorMessage, r.CreatedAt, r.UpdatedAt, r.StartedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("jobstore: upsert %s: %w", r.ID, err)
	}

	return nil
}

// ListByStatus returns every job record currently in the given status,
// priority-then-age ordered.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, sqlListByStatus, string(status))
	if err != nil {
		return nil, fmt.Errorf("jobstore: list by status %s: %w", status, err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// ListResumable returns every job not yet in a terminal state — the set
// the dispatcher reloads and requeues on startup.
func (s *Store) ListResumable(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, sqlListResumable)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list resumable: %w", err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// Delete removes a job record, used by retention cleanup (spec.md's
// job.log_retention_days, adapted to apply to the job record itself once
// terminal and past retention).
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteRecord, id); err != nil {
		return fmt.Errorf("jobstore: delete %s: %w", id, err)
	}

	return nil
}

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var r Record

	var status string

	err := row.Scan(&r.ID, &r.Kind, &r.Priority, &status, &r.ProgressPercent, &r.CurrentTaskIndex,
		&r.TaskState, &r.Warnings, &r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)

	return &r, nil
}

func scanRecordRows(rows *sql.Rows) ([]*Record, error) {
	var records []*Record

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job record row: %w", err)
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
