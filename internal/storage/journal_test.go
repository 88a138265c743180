package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadbridge/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.Open(ctx, storage.DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, storage.DriverSQLite, db.Driver())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), "oracle", "x")
	assert.ErrorContains(t, err, "unsupported journal driver")
}

func TestOpen_DriverNameIsCaseInsensitive(t *testing.T) {
	db, err := storage.Open(context.Background(), "SQLite", filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, storage.DriverSQLite, db.Driver())
}

func TestJournalStore_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewJournalStore(openTestDB(t))

	base := time.UnixMilli(1_700_000_000_000)
	for i, tool := range []string{"solidworks_create_sketch", "solidworks_sketch_circle", "solidworks_create_extrusion"} {
		e := &storage.Entry{
			SessionID:  "s1",
			Tool:       tool,
			ArgsJSON:   `{"radius":10}`,
			Result:     "ok",
			StartedAt:  base.Add(time.Duration(i) * time.Second),
			FinishedAt: base.Add(time.Duration(i)*time.Second + 150*time.Millisecond),
		}
		require.NoError(t, store.Append(ctx, e))
		assert.NotEmpty(t, e.ID)
	}
	require.NoError(t, store.Append(ctx, &storage.Entry{
		SessionID: "s2", Tool: "solidworks_new_part", Error: "no template", StartedAt: base.Add(time.Minute),
	}))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "solidworks_new_part", recent[0].Tool)
	assert.True(t, recent[0].Failed())
	assert.Equal(t, "{}", recent[0].ArgsJSON)
	assert.Equal(t, "solidworks_create_extrusion", recent[1].Tool)
	assert.Equal(t, 150*time.Millisecond, recent[1].Duration())

	session, err := store.BySession(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, session, 3)
	assert.Equal(t, "solidworks_create_sketch", session[0].Tool)
	assert.Equal(t, base, session[0].StartedAt)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestJournalStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := storage.NewJournalStore(openTestDB(t))

	now := time.Now()
	require.NoError(t, store.Append(ctx, &storage.Entry{Tool: "old", StartedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Append(ctx, &storage.Entry{Tool: "new", StartedAt: now}))

	deleted, err := store.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	left, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Tool)
}

func TestPruner_RunOnceAndSchedule(t *testing.T) {
	ctx := context.Background()
	store := storage.NewJournalStore(openTestDB(t))
	require.NoError(t, store.Append(ctx, &storage.Entry{Tool: "old", StartedAt: time.Now().Add(-40 * 24 * time.Hour)}))

	p := storage.NewPruner(store, 30*24*time.Hour, nil)
	assert.EqualValues(t, 1, p.RunOnce(ctx))
	assert.EqualValues(t, 0, p.RunOnce(ctx))

	assert.Error(t, p.Start(ctx, "not a schedule"))
	require.NoError(t, p.Start(ctx, "0 3 * * *"))
	p.Stop()
	p.Stop()
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, storage.ValidateSchedule("@daily"))
	assert.NoError(t, storage.ValidateSchedule("*/15 * * * *"))
	assert.Error(t, storage.ValidateSchedule("61 * * * *"))
}
