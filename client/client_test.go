package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revhash/internal/api"
	"revhash/internal/errors"
	"revhash/internal/manifest"
	"revhash/internal/storage"
)

func setupServer(t *testing.T) (*manifest.Store, *Client) {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := manifest.NewStore(db, 0)
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(nil, store, nil, ""))
	t.Cleanup(srv.Close)
	return store, New(srv.URL + "/")
}

func TestClient(t *testing.T) {
	store, c := setupServer(t)

	t.Run("empty history", func(t *testing.T) {
		builds, err := c.List()
		require.NoError(t, err)
		assert.Empty(t, builds)

		_, err = c.Latest()
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	})

	first := &manifest.Manifest{
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		Entries:   map[string]string{"app.js": "app_0123456789.js", "old.js": "old_0123456789.js"},
	}
	second := &manifest.Manifest{
		Entries: map[string]string{"app.js": "app_9876543210.js"},
	}
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	t.Run("List", func(t *testing.T) {
		builds, err := c.List()
		require.NoError(t, err)
		require.Len(t, builds, 2)
		assert.Equal(t, second.ID, builds[0].ID)
	})

	t.Run("Get", func(t *testing.T) {
		m, err := c.Get(first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Entries, m.Entries)

		_, err = c.Get("nope")
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	})

	t.Run("Latest", func(t *testing.T) {
		m, err := c.Latest()
		require.NoError(t, err)
		assert.Equal(t, second.ID, m.ID)
	})

	t.Run("Diff", func(t *testing.T) {
		d, err := c.Diff(first.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"app_0123456789.js", "old_0123456789.js"}, d.Stale)
		assert.Equal(t, 1, d.Stats.Rehashed)
		assert.Equal(t, 1, d.Stats.Removed)
	})
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).List()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
