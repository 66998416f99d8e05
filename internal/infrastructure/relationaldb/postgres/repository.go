// Package postgres provides a PostgreSQL implementation of the EditStore and
// AuditLog ports on a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/infrastructure/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements ports.EditStore and ports.AuditLog using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ ports.EditStore = (*Repository)(nil)
	_ ports.AuditLog  = (*Repository)(nil)
)

// NewRepository connects to the database and verifies the connection.
func NewRepository(ctx context.Context, cfg config.PostgresConfig) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Truncate removes all edits and audit entries and restarts id sequences.
func (r *Repository) Truncate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `TRUNCATE edits, audit_log RESTART IDENTITY`); err != nil {
		return fmt.Errorf("truncating tables: %w", err)
	}
	return nil
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS edits (
		id BIGSERIAL PRIMARY KEY,
		wiki TEXT NOT NULL,
		text BYTEA,
		summary TEXT NOT NULL,
		base_revision_id BIGINT NOT NULL,
		page_id BIGINT NOT NULL,
		page_name TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending'
			CHECK (state IN ('pending', 'published', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_edits_state ON edits(state);

	CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		action TEXT NOT NULL,
		edit_id BIGINT,
		reviewer TEXT,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_edit ON audit_log(edit_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

const editColumns = `id, wiki, text, summary, base_revision_id, page_id, page_name, state, created_at, updated_at`

// Load finds an edit by its ID. A missing row wraps ports.ErrNotFound.
func (r *Repository) Load(ctx context.Context, id int64) (*entities.Edit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+editColumns+` FROM edits WHERE id = $1`, id)

	edit, err := scanEdit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loading edit %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning edit %d: %w", id, err)
	}
	return edit, nil
}

// ListByState returns every edit in the given state, newest first.
func (r *Repository) ListByState(ctx context.Context, state entities.State) ([]entities.Edit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+editColumns+` FROM edits WHERE state = $1 ORDER BY id DESC`, string(state))
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
	query := `
		INSERT INTO edits (wiki, text, summary, base_revision_id, page_id, page_name, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + editColumns
	row := r.pool.QueryRow(ctx, query,
		draft.Wiki,
		draft.Text,
		draft.Summary,
		draft.BaseRevisionID,
		draft.PageID,
		draft.PageName,
		string(entities.StatePending),
	)

	edit, err := scanEdit(row)
	if err != nil {
		return nil, fmt.Errorf("inserting edit: %w", err)
	}
	return edit, nil
}

// SetState overwrites an edit's state without checking the transition.
func (r *Repository) SetState(ctx context.Context, id int64, state entities.State) error {
	tag, err := r.pool.Exec(ctx, `UPDATE edits SET state = $1, updated_at = now() WHERE id = $2`, string(state), id)
	if err != nil {
		return fmt.Errorf("updating edit %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating edit %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

// TransitionState moves an edit from one state to another in a single
// conditional UPDATE. It returns ports.ErrStateConflict if the edit is no
// longer in from.
func (r *Repository) TransitionState(ctx context.Context, id int64, from, to entities.State) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE edits SET state = $1, updated_at = now() WHERE id = $2 AND state = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("transitioning edit %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = r.pool.QueryRow(ctx, `SELECT state FROM edits WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("transitioning edit %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("transitioning edit %d: %w", id, err)
	}
	return fmt.Errorf("transitioning edit %d from %s (now %s): %w", id, from, current, ports.ErrStateConflict)
}

func scanEdit(row pgx.Row) (*entities.Edit, error) {
	var edit entities.Edit
	var state string
	err := row.Scan(
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
	var details []byte
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		details = data
	}

	var editID *int64
	if entry.EditID != 0 {
		editID = &entry.EditID
	}
	var reviewer *string
	if entry.Reviewer != "" {
		reviewer = &entry.Reviewer
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (action, edit_id, reviewer, details) VALUES ($1, $2, $3, $4)`,
		string(entry.Action), editID, reviewer, details,
	)
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
		WHERE edit_id = $1
		ORDER BY id DESC
	`
	return r.queryAuditLog(ctx, query, editID)
}

// FindAuditLogByAction finds audit log entries by action type.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action entities.AuditAction, limit int) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, edit_id, reviewer, details, created_at
		FROM audit_log
		WHERE action = $1
		ORDER BY id DESC
		LIMIT $2
	`
	return r.queryAuditLog(ctx, query, string(action), limit)
}

func (r *Repository) queryAuditLog(ctx context.Context, query string, args ...any) ([]entities.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := []entities.AuditEntry{}
	for rows.Next() {
		var entry entities.AuditEntry
		var action string
		var editID *int64
		var reviewer *string
		var details []byte
		if err := rows.Scan(&entry.ID, &action, &editID, &reviewer, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entry.Action = entities.AuditAction(action)
		if editID != nil {
			entry.EditID = *editID
		}
		if reviewer != nil {
			entry.Reviewer = *reviewer
		}
		if details != nil {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
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
