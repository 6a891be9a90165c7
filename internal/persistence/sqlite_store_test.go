package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/basaa-mt/translator-api/internal/corrections"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_SaveAndCountCorrections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "data", "corrections.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.SaveCorrection(ctx, corrections.Record{
		ID: "c-1", Direction: "fr→bs", Original: "bonjour", Translation: "Mbolo.", Correction: "Mbòlò.", Timestamp: now,
	}))
	require.NoError(t, store.SaveCorrection(ctx, corrections.Record{
		ID: "c-2", Direction: "bs→fr", Original: "mbolo", Translation: "Bonjour.", Correction: "Salut.", Timestamp: now,
	}))
	// duplicate id is ignored
	require.NoError(t, store.SaveCorrection(ctx, corrections.Record{ID: "c-1", Direction: "fr→bs", Timestamp: now}))

	all, err := store.CountCorrections(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	frbs, err := store.CountCorrections(ctx, "fr→bs")
	require.NoError(t, err)
	assert.Equal(t, 1, frbs)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corrections.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var applied int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestSQLiteStore_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewSQLiteStore("  ")
	assert.Error(t, err)

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.Error(t, store.SaveCorrection(context.Background(), corrections.Record{}))
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_corrections.sql"))
	assert.Equal(t, 12, migrationVersion("12"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
