package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fichas/internal/config"
	"github.com/JonMunkholm/fichas/internal/core"
)

func sampleConversion(id string, at time.Time, dups ...string) core.Conversion {
	return core.Conversion{
		ID:         id,
		SourceName: "export.txt",
		OutputName: "lista_2026-01-02_03-04-05_MFN1-9_0123abcd.xlsx",
		Encoding:   core.EncodingLatin1,
		Records:    9,
		Ignored:    2,
		Replaced:   1,
		MinMFN:     "1",
		MaxMFN:     "9",
		Duplicates: dups,
		IPAddress:  "192.0.2.10",
		UserAgent:  "test",
		Duration:   core.Duration(150 * time.Millisecond),
		CreatedAt:  at.UTC(),
	}
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store core.HistoryStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, sampleConversion("a", base)))
	require.NoError(t, store.Record(ctx, sampleConversion("b", base.Add(time.Hour), "4", "7")))
	require.NoError(t, store.Record(ctx, sampleConversion("c", base.Add(2*time.Hour))))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
	assert.Equal(t, []string{"4", "7"}, recent[1].Duplicates)
	assert.Nil(t, recent[0].Duplicates)
	assert.Equal(t, core.EncodingLatin1, recent[1].Encoding)
	assert.Equal(t, core.Duration(150*time.Millisecond), recent[1].Duration)
	assert.True(t, recent[1].CreatedAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, 2, recent[1].Ignored)
	assert.Equal(t, 1, recent[1].Replaced)

	pruned, err := store.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	recent, err = store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c", recent[0].ID)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	now := time.Now()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, sampleConversion(id, now)))
	}

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
}

func TestMemoryStore_CopiesDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	dups := []string{"1"}
	require.NoError(t, store.Record(ctx, sampleConversion("a", time.Now(), dups...)))

	dups[0] = "changed"
	recent, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, recent[0].Duplicates)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "history.db")
	store, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, sampleConversion("a", time.Now())))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	recent, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "a", recent[0].ID)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FICHAS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FICHAS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn, 2)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.pool.Exec(ctx, `TRUNCATE conversions`)
	require.NoError(t, err)

	exerciseStore(t, store)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.HistoryConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, config.HistoryConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, config.HistoryConfig{Driver: "mysql"})
	assert.Error(t, err)
}
