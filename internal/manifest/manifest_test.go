package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgraph-io/badger/v4"

	"revhash/internal/asset"
	"revhash/internal/errors"
	"revhash/internal/storage"
)

func setupTestDB(t *testing.T) *badger.DB {
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestStore(t *testing.T) *Store {
	store, err := NewStore(setupTestDB(t), 2)
	require.NoError(t, err)
	return store
}

func sample() *Manifest {
	app := asset.NewRecord("js/app.js", []byte("1"))
	app.FinalName = "app_0123456789.js"
	app.OutputPath = "js/app_0123456789.js"
	index := asset.NewRecord("index.html", nil)
	index.Ignored = true

	return New([]*asset.Record{index, app}, asset.Report{
		TotalHashed: 1,
		Warnings:    []asset.Warning{{FileName: "a.css", MatchedText: "a.css"}},
	})
}

func TestNew(t *testing.T) {
	m := sample()

	assert.Equal(t, map[string]string{"js/app.js": "js/app_0123456789.js"}, m.Entries)
	assert.Equal(t, 1, m.TotalHashed)
	assert.True(t, m.IsOutput("js/app_0123456789.js"))
	assert.False(t, m.IsOutput("js/app.js"))
	assert.False(t, m.IsOutput("index.html"))
}

func TestStore(t *testing.T) {
	store := setupTestStore(t)

	t.Run("Latest with no builds", func(t *testing.T) {
		_, err := store.Latest()
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	})

	first := sample()
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Save(first))
	assert.NotEmpty(t, first.ID)

	second := sample()
	second.Salt = "v2"
	require.NoError(t, store.Save(second))
	assert.False(t, second.CreatedAt.IsZero())

	t.Run("Get", func(t *testing.T) {
		got, err := store.Get(first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Entries, got.Entries)
		assert.Equal(t, first.Warnings, got.Warnings)
	})

	t.Run("Get after eviction reads from badger", func(t *testing.T) {
		third := sample()
		third.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
		require.NoError(t, store.Save(third))

		got, err := store.Get(first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("Get missing", func(t *testing.T) {
		_, err := store.Get("nope")
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	})

	t.Run("List newest first", func(t *testing.T) {
		all, err := store.List()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)
	})

	t.Run("Latest", func(t *testing.T) {
		latest, err := store.Latest()
		require.NoError(t, err)
		assert.Equal(t, "v2", latest.Salt)
	})

	t.Run("Save twice is refused", func(t *testing.T) {
		assert.Error(t, store.Save(second))
	})
}

func TestStore_LatestIsTrackedWithoutRescanning(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewStore(db, 0)
	require.NoError(t, err)

	first := sample()
	require.NoError(t, store.Save(first))

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	// Drop the history behind the store's back: Latest must not rescan.
	raw := storage.NewBadgerStore(db, prefix)
	require.NoError(t, raw.Delete(first.ID))
	latest, err = store.Latest()
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	second := sample()
	require.NoError(t, store.Save(second))
	latest, err = store.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID, "Save advances the latest build")

	older := sample()
	older.CreatedAt = second.CreatedAt.Add(-time.Hour)
	require.NoError(t, store.Save(older))
	latest, err = store.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID, "an older build does not replace the latest")
}

func TestStore_LatestLoadsExistingHistory(t *testing.T) {
	db := setupTestDB(t)
	writer, err := NewStore(db, 0)
	require.NoError(t, err)

	old := sample()
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newest := sample()
	require.NoError(t, writer.Save(old))
	require.NoError(t, writer.Save(newest))

	reader, err := NewStore(db, 0)
	require.NoError(t, err)
	latest, err := reader.Latest()
	require.NoError(t, err)
	assert.Equal(t, newest.ID, latest.ID)
}
