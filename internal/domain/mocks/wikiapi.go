package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
)

// WikiAPI is a mock implementation of ports.WikiAPI.
type WikiAPI struct {
	mu sync.Mutex

	// GetUsername return values
	Identity    ports.Identity
	IdentityErr error

	// GetDiff return values
	Diff    string
	DiffErr error

	// MakeEdit return value
	EditErr error
	// EditDelay stalls MakeEdit, for exercising concurrent reviews.
	EditDelay time.Duration

	UsernameCalls int
	DiffCalls     int
	EditCalls     int
	// Published holds every edit passed to MakeEdit.
	Published []entities.Edit
	// Tokens holds the token passed to each MakeEdit call.
	Tokens []string
}

// GetUsername returns the configured identity or error.
func (m *WikiAPI) GetUsername(_ context.Context, _ string) (ports.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UsernameCalls++
	if m.IdentityErr != nil {
		return ports.Identity{}, m.IdentityErr
	}
	return m.Identity, nil
}

// GetDiff returns the configured diff or error.
func (m *WikiAPI) GetDiff(_ context.Context, _ entities.Edit) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DiffCalls++
	if m.DiffErr != nil {
		return "", m.DiffErr
	}
	return m.Diff, nil
}

// MakeEdit records the edit and returns the configured error.
func (m *WikiAPI) MakeEdit(_ context.Context, edit entities.Edit, token string) error {
	if m.EditDelay > 0 {
		time.Sleep(m.EditDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EditCalls++
	m.Published = append(m.Published, edit)
	m.Tokens = append(m.Tokens, token)
	return m.EditErr
}

// Calls returns the total number of remote calls made.
func (m *WikiAPI) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UsernameCalls + m.DiffCalls + m.EditCalls
}

// EditCount returns the number of MakeEdit calls.
func (m *WikiAPI) EditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EditCalls
}
