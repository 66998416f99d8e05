// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
)

// EditStore is an in-memory mock implementation of ports.EditStore.
// It is safe for concurrent use.
type EditStore struct {
	mu     sync.Mutex
	Edits  map[int64]*entities.Edit
	nextID int64

	// Err, when set, fails every call.
	Err error
	// LoadErr fails Load only.
	LoadErr error
	// WriteErr fails SetState and TransitionState only.
	WriteErr error

	LoadCalls  int
	WriteCalls int
	Audit      []entities.AuditEntry
}

// NewEditStore creates a new mock EditStore.
func NewEditStore() *EditStore {
	return &EditStore{
		Edits: make(map[int64]*entities.Edit),
	}
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *EditStore) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close closes the database connection.
func (m *EditStore) Close() error {
	return nil
}

// Load returns a copy of the stored edit.
func (m *EditStore) Load(_ context.Context, id int64) (*entities.Edit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	edit, ok := m.Edits[id]
	if !ok {
		return nil, fmt.Errorf("loading edit %d: %w", id, ports.ErrNotFound)
	}
	cp := *edit
	return &cp, nil
}

// ListByState returns edits in the given state, newest ID first.
func (m *EditStore) ListByState(_ context.Context, state entities.State) ([]entities.Edit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.Edit, 0, len(m.Edits))
	for _, e := range m.Edits {
		if e.State == state {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Insert stores the draft as a pending edit.
func (m *EditStore) Insert(_ context.Context, draft entities.Draft) (*entities.Edit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.nextID++
	now := time.Now()
	edit := &entities.Edit{
		ID:             m.nextID,
		Wiki:           draft.Wiki,
		Text:           append([]byte(nil), draft.Text...),
		Summary:        draft.Summary,
		BaseRevisionID: draft.BaseRevisionID,
		PageID:         draft.PageID,
		PageName:       draft.PageName,
		State:          entities.StatePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.Edits[edit.ID] = edit
	cp := *edit
	return &cp, nil
}

// Put stores an edit as-is, for seeding tests with non-pending rows.
func (m *EditStore) Put(edit entities.Edit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if edit.ID > m.nextID {
		m.nextID = edit.ID
	}
	m.Edits[edit.ID] = &edit
}

// StateOf returns the stored state of an edit, or "" if absent.
func (m *EditStore) StateOf(id int64) entities.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.Edits[id]; ok {
		return e.State
	}
	return ""
}

// SetState overwrites the state.
func (m *EditStore) SetState(_ context.Context, id int64, state entities.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	if err := m.writeErr(); err != nil {
		return err
	}
	edit, ok := m.Edits[id]
	if !ok {
		return fmt.Errorf("setting state of edit %d: %w", id, ports.ErrNotFound)
	}
	edit.State = state
	edit.UpdatedAt = time.Now()
	return nil
}

// TransitionState sets the state only if it currently equals from.
func (m *EditStore) TransitionState(_ context.Context, id int64, from, to entities.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	if err := m.writeErr(); err != nil {
		return err
	}
	edit, ok := m.Edits[id]
	if !ok {
		return fmt.Errorf("transitioning edit %d: %w", id, ports.ErrNotFound)
	}
	if edit.State != from {
		return fmt.Errorf("transitioning edit %d from %s: %w", id, from, ports.ErrStateConflict)
	}
	edit.State = to
	edit.UpdatedAt = time.Now()
	return nil
}

func (m *EditStore) writeErr() error {
	if m.Err != nil {
		return m.Err
	}
	return m.WriteErr
}

// LogAction records the entry in Audit.
func (m *EditStore) LogAction(_ context.Context, entry entities.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	entry.ID = int64(len(m.Audit) + 1)
	m.Audit = append(m.Audit, entry)
	return nil
}

// FindAuditLog returns recorded entries for an edit, newest first.
func (m *EditStore) FindAuditLog(_ context.Context, editID int64) ([]entities.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for i := len(m.Audit) - 1; i >= 0; i-- {
		if m.Audit[i].EditID == editID {
			result = append(result, m.Audit[i])
		}
	}
	return result, nil
}

// FindAuditLogByAction returns recorded entries with the given action.
func (m *EditStore) FindAuditLogByAction(_ context.Context, action entities.AuditAction, limit int) ([]entities.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for i := len(m.Audit) - 1; i >= 0 && len(result) < limit; i-- {
		if m.Audit[i].Action == action {
			result = append(result, m.Audit[i])
		}
	}
	return result, nil
}

// AuditActions returns the recorded actions in log order.
func (m *EditStore) AuditActions() []entities.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]entities.AuditAction, len(m.Audit))
	for i, e := range m.Audit {
		actions[i] = e.Action
	}
	return actions
}
