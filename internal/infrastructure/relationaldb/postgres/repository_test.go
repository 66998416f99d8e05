package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo connects to SUGGESTOR_TEST_DATABASE_URL and empties the
// tables. Tests are skipped when it is unset.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("SUGGESTOR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping postgres test. Set SUGGESTOR_TEST_DATABASE_URL to run.")
	}

	ctx := context.Background()
	repo, err := NewRepository(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.EnsureSchema(ctx))
	err = repo.Truncate(ctx)
	require.NoError(t, err)

	return repo
}

func testDraft() entities.Draft {
	return entities.Draft{
		Wiki:           "en.wikipedia.org",
		Text:           []byte{'H', 'i', 0x00, 0xff},
		Summary:        "fix typo",
		BaseRevisionID: 1<<53 + 1,
		PageID:         42,
		PageName:       "Sandbox",
		State:          entities.StateRejected,
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	_, err := NewRepository(context.Background(), config.PostgresConfig{})
	require.Error(t, err)
}

func TestRepository_InsertAndLoad(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	edit, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)
	assert.Equal(t, entities.StatePending, edit.State)
	assert.NotZero(t, edit.CreatedAt)

	loaded, err := repo.Load(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, testDraft().Text, loaded.Text)
	assert.Equal(t, testDraft().BaseRevisionID, loaded.BaseRevisionID)
	assert.Equal(t, entities.StatePending, loaded.State)

	_, err = repo.Load(ctx, edit.ID+1000)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_ListAndTransition(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)
	second, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)

	require.NoError(t, repo.TransitionState(ctx, first.ID, entities.StatePending, entities.StatePublished))
	err = repo.TransitionState(ctx, first.ID, entities.StatePending, entities.StateRejected)
	require.ErrorIs(t, err, ports.ErrStateConflict)
	err = repo.TransitionState(ctx, 9999, entities.StatePending, entities.StateRejected)
	require.ErrorIs(t, err, ports.ErrNotFound)

	pending, err := repo.ListByState(ctx, entities.StatePending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	require.NoError(t, repo.SetState(ctx, second.ID, entities.StateRejected))
	require.ErrorIs(t, repo.SetState(ctx, 9999, entities.StateRejected), ports.ErrNotFound)
}

func TestRepository_AuditLog(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.LogAction(ctx, entities.AuditEntry{Action: entities.AuditSubmitted, EditID: 1}))
	require.NoError(t, repo.LogAction(ctx, entities.AuditEntry{
		Action:   entities.AuditRejected,
		EditID:   1,
		Reviewer: "Alice",
		Details:  map[string]any{"wiki": "en.wikipedia.org"},
	}))

	entries, err := repo.FindAuditLog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entities.AuditRejected, entries[0].Action)
	assert.Equal(t, "Alice", entries[0].Reviewer)
	assert.Equal(t, "en.wikipedia.org", entries[0].Details["wiki"])
	assert.Nil(t, entries[1].Details)

	byAction, err := repo.FindAuditLogByAction(ctx, entities.AuditSubmitted, 10)
	require.NoError(t, err)
	assert.Len(t, byAction, 1)
}
