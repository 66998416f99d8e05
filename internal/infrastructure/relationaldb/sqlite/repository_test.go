package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates an in-memory SQLite repository for testing.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	err = repo.EnsureSchema(context.Background())
	require.NoError(t, err)

	return repo
}

func testDraft() entities.Draft {
	return entities.Draft{
		Wiki:           "en.wikipedia.org",
		Text:           []byte("Hello"),
		Summary:        "fix typo",
		BaseRevisionID: 100,
		PageID:         42,
		PageName:       "Sandbox",
	}
}

func TestNewRepository(t *testing.T) {
	t.Run("success with memory database", func(t *testing.T) {
		repo, err := NewRepository(config.SQLiteConfig{Path: ":memory:"})
		require.NoError(t, err)
		defer repo.Close()
		assert.NotNil(t, repo)
	})

	t.Run("error with empty path", func(t *testing.T) {
		_, err := NewRepository(config.SQLiteConfig{Path: ""})
		require.Error(t, err)
	})
}

func TestRepository_EnsureSchema(t *testing.T) {
	repo := setupTestRepo(t)

	// Verify tables exist
	for _, table := range []string{"edits", "audit_log"} {
		var count int
		err := repo.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	// Should not error when called again
	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestRepository_InsertAndLoad(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = time.Now })

	draft := testDraft()
	draft.State = entities.StatePublished

	edit, err := repo.Insert(ctx, draft)
	require.NoError(t, err)
	assert.NotZero(t, edit.ID)
	assert.Equal(t, entities.StatePending, edit.State)

	loaded, err := repo.Load(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatePending, loaded.State)
	assert.Equal(t, "en.wikipedia.org", loaded.Wiki)
	assert.Equal(t, []byte("Hello"), loaded.Text)
	assert.Equal(t, "fix typo", loaded.Summary)
	assert.Equal(t, int64(100), loaded.BaseRevisionID)
	assert.Equal(t, int64(42), loaded.PageID)
	assert.Equal(t, "Sandbox", loaded.PageName)
	assert.True(t, fixed.Equal(loaded.CreatedAt))
}

func TestRepository_TextIsOpaqueBytes(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	draft := testDraft()
	draft.Text = []byte{0x00, 0xff, 'a', 0x00}

	edit, err := repo.Insert(ctx, draft)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.Text, loaded.Text)
}

func TestRepository_LargeIDsRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	draft := testDraft()
	draft.BaseRevisionID = 1<<53 + 1
	draft.PageID = 1<<62 - 1

	edit, err := repo.Insert(ctx, draft)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.BaseRevisionID, loaded.BaseRevisionID)
	assert.Equal(t, draft.PageID, loaded.PageID)
}

func TestRepository_Load_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Load(context.Background(), 12345)

	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_Load_StorageError(t *testing.T) {
	repo, err := NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	repo.Close()

	_, err = repo.Load(context.Background(), 1)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_ListByState(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)
	second, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)
	third, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)
	require.NoError(t, repo.SetState(ctx, second.ID, entities.StateRejected))

	pending, err := repo.ListByState(ctx, entities.StatePending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, third.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)

	published, err := repo.ListByState(ctx, entities.StatePublished)
	require.NoError(t, err)
	assert.Empty(t, published)
}

func TestRepository_SetState(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	edit, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)

	require.NoError(t, repo.SetState(ctx, edit.ID, entities.StatePublished))
	loaded, err := repo.Load(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatePublished, loaded.State)

	err = repo.SetState(ctx, 999, entities.StatePublished)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_SetState_RejectsUnknownState(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	edit, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)

	err = repo.SetState(ctx, edit.ID, "archived")

	require.Error(t, err)
}

func TestRepository_TransitionState(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	edit, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)

	require.NoError(t, repo.TransitionState(ctx, edit.ID, entities.StatePending, entities.StatePublished))

	err = repo.TransitionState(ctx, edit.ID, entities.StatePending, entities.StateRejected)
	require.ErrorIs(t, err, ports.ErrStateConflict)

	loaded, err := repo.Load(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatePublished, loaded.State)

	err = repo.TransitionState(ctx, 999, entities.StatePending, entities.StateRejected)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_TransitionState_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(config.SQLiteConfig{Path: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	edit, err := repo.Insert(ctx, testDraft())
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.TransitionState(ctx, edit.ID, entities.StatePending, entities.StatePublished)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ports.ErrStateConflict)
	}
	assert.Equal(t, 1, won)
}

func TestRepository_AuditLog(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.LogAction(ctx, entities.AuditEntry{
		Action:  entities.AuditSubmitted,
		EditID:  1,
		Details: map[string]any{"wiki": "en.wikipedia.org"},
	}))
	require.NoError(t, repo.LogAction(ctx, entities.AuditEntry{
		Action:   entities.AuditPublished,
		EditID:   1,
		Reviewer: "Alice",
	}))
	require.NoError(t, repo.LogAction(ctx, entities.AuditEntry{
		Action: entities.AuditSubmitted,
		EditID: 2,
	}))

	entries, err := repo.FindAuditLog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entities.AuditPublished, entries[0].Action)
	assert.Equal(t, "Alice", entries[0].Reviewer)
	assert.Nil(t, entries[0].Details)
	assert.Equal(t, entities.AuditSubmitted, entries[1].Action)
	assert.Equal(t, "en.wikipedia.org", entries[1].Details["wiki"])

	submitted, err := repo.FindAuditLogByAction(ctx, entities.AuditSubmitted, 1)
	require.NoError(t, err)
	require.Len(t, submitted, 1)
	assert.Equal(t, int64(2), submitted[0].EditID)

	none, err := repo.FindAuditLog(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
