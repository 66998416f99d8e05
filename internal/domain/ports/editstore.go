package ports

import (
	"context"

	"github.com/ersonp/suggestor/internal/domain/entities"
)

// EditStore defines the persistence contract for proposed edits.
// It stores state but does not decide which transitions are legal; that is
// the review service's job.
type EditStore interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// Load fetches an edit by ID. A missing row yields an error wrapping
	// ErrNotFound; any other storage failure is returned wrapped as-is.
	Load(ctx context.Context, id int64) (*entities.Edit, error)

	// ListByState returns all edits in the given state, newest ID first.
	ListByState(ctx context.Context, state entities.State) ([]entities.Edit, error)

	// Insert persists a draft as a new pending edit, ignoring draft.State,
	// and returns the stored row including its assigned ID.
	Insert(ctx context.Context, draft entities.Draft) (*entities.Edit, error)

	// SetState overwrites an edit's state unconditionally.
	SetState(ctx context.Context, id int64, state entities.State) error

	// TransitionState sets the state to `to` only if it is currently `from`.
	// Returns ErrStateConflict if the row exists in another state and
	// ErrNotFound if it doesn't exist.
	TransitionState(ctx context.Context, id int64, from, to entities.State) error
}

// AuditLog records review history. Implementations share the edit store's
// database.
type AuditLog interface {
	// LogAction appends an entry to the audit log.
	LogAction(ctx context.Context, entry entities.AuditEntry) error

	// FindAuditLog finds audit log entries for a specific edit, newest first.
	FindAuditLog(ctx context.Context, editID int64) ([]entities.AuditEntry, error)

	// FindAuditLogByAction finds audit log entries by action type.
	FindAuditLogByAction(ctx context.Context, action entities.AuditAction, limit int) ([]entities.AuditEntry, error)
}
