// Package sqlite provides a SQLite implementation of the EditStore and
// AuditLog ports.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.EditStore and ports.AuditLog using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

var (
	_ ports.EditStore = (*Repository)(nil)
	_ ports.AuditLog  = (*Repository)(nil)
)

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []struct {
		stmt string
		desc string
	}{
		{"PRAGMA foreign_keys = ON", "enabling foreign keys"},
		{"PRAGMA journal_mode = WAL", "enabling WAL mode"},
		// Set busy timeout to avoid "database is locked" errors
		{"PRAGMA busy_timeout = 5000", "setting busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p.desc, err)
		}
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Submitted edits and their review state
	CREATE TABLE IF NOT EXISTS edits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		wiki TEXT NOT NULL,
		text BLOB,
		summary TEXT NOT NULL,
		base_revision_id INTEGER NOT NULL,
		page_id INTEGER NOT NULL,
		page_name TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending'
			CHECK (state IN ('pending', 'published', 'rejected')),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_edits_state ON edits(state);

	-- Audit log (tracks all review actions)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		edit_id INTEGER,
		reviewer TEXT,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_edit ON audit_log(edit_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

const editColumns = `id, wiki, text, summary, base_revision_id, page_id, page_name, state, created_at, updated_at`

// Load finds an edit by its ID. A missing row wraps ports.ErrNotFound.
func (r *Repository) Load(ctx context.Context, id int64) (*entities.Edit, error) {
	query := `SELECT ` + editColumns + ` FROM edits WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	edit, err := scanEdit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loading edit %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning edit %d: %w", id, err)
	}
	return edit, nil
}

// ListByState returns every edit in the given state, newest first.
func (r *Repository) ListByState(ctx context.Context, state entities.State) ([]entities.Edit, error) {
	query := `SELECT ` + editColumns + ` FROM edits WHERE state = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query, string(state))
	if err != nil {
		return nil, fmt.Errorf("querying edits: %w", err)
	}
	defer rows.Close()

	result := []entities.Edit{}
	for rows.Next() {
		edit, err := scanEdit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning edit: %w", err)
		}
		result = append(result, *edit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edits: %w", err)
	}
	return result, nil
}

// Insert stores a draft as a new pending edit and returns the stored row.
func (r *Repository) Insert(ctx context.Context, draft entities.Draft) (*entities.Edit, error) {
	now := timeNow().UTC()

	query := `
		INSERT INTO edits (wiki, text, summary, base_revision_id, page_id, page_name, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		draft.Wiki,
		draft.Text,
		draft.Summary,
		draft.BaseRevisionID,
		draft.PageID,
		draft.PageName,
		string(entities.StatePending),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting edit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading edit id: %w", err)
	}

	return &entities.Edit{
		ID:             id,
		Wiki:           draft.Wiki,
		Text:           append([]byte(nil), draft.Text...),
		Summary:        draft.Summary,
		BaseRevisionID: draft.BaseRevisionID,
		PageID:         draft.PageID,
		PageName:       draft.PageName,
		State:          entities.StatePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SetState overwrites an edit's state without checking the transition.
func (r *Repository) SetState(ctx context.Context, id int64, state entities.State) error {
	query := `UPDATE edits SET state = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(state), timeNow().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating edit %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating edit %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating edit %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

// TransitionState moves an edit from one state to another in a single
// conditional UPDATE. It returns ports.ErrStateConflict if the edit is no
// longer in from.
func (r *Repository) TransitionState(ctx context.Context, id int64, from, to entities.State) error {
	query := `UPDATE edits SET state = ?, updated_at = ? WHERE id = ? AND state = ?`
	res, err := r.db.ExecContext(ctx, query, string(to), timeNow().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("transitioning edit %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transitioning edit %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT state FROM edits WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transitioning edit %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("transitioning edit %d: %w", id, err)
	}
	return fmt.Errorf("transitioning edit %d from %s (now %s): %w", id, from, current, ports.ErrStateConflict)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEdit(s scanner) (*entities.Edit, error) {
	var edit entities.Edit
	var state string
	err := s.Scan(
		&edit.ID,
		&edit.Wiki,
		&edit.Text,
		&edit.Summary,
		&edit.BaseRevisionID,
		&edit.PageID,
		&edit.PageName,
		&state,
		&edit.CreatedAt,
		&edit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	edit.State = entities.State(state)
	return &edit, nil
}

// LogAction appends an entry to the audit log.
func (r *Repository) LogAction(ctx context.Context, entry entities.AuditEntry) error {
	var detailsJSON sql.NullString
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var editID sql.NullInt64
	if entry.EditID != 0 {
		editID = sql.NullInt64{Int64: entry.EditID, Valid: true}
	}

	var reviewer sql.NullString
	if entry.Reviewer != "" {
		reviewer = sql.NullString{String: entry.Reviewer, Valid: true}
	}

	query := `INSERT INTO audit_log (action, edit_id, reviewer, details, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, string(entry.Action), editID, reviewer, detailsJSON, timeNow().UTC())
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog finds audit log entries for a specific edit, newest first.
func (r *Repository) FindAuditLog(ctx context.Context, editID int64) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, edit_id, reviewer, details, created_at
		FROM audit_log
		WHERE edit_id = ?
		ORDER BY id DESC
	`
	return r.queryAuditLog(ctx, query, editID)
}

// FindAuditLogByAction finds audit log entries by action type.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action entities.AuditAction, limit int) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, edit_id, reviewer, details, created_at
		FROM audit_log
		WHERE action = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return r.queryAuditLog(ctx, query, string(action), limit)
}

// queryAuditLog is a helper to execute audit log queries.
func (r *Repository) queryAuditLog(ctx context.Context, query string, args ...any) ([]entities.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := []entities.AuditEntry{}
	for rows.Next() {
		var entry entities.AuditEntry
		var action string
		var editID sql.NullInt64
		var reviewer, details sql.NullString
		if err := rows.Scan(&entry.ID, &action, &editID, &reviewer, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entry.Action = entities.AuditAction(action)
		entry.EditID = editID.Int64
		entry.Reviewer = reviewer.String
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}
	return entries, nil
}
