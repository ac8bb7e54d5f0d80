package build

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revhash/internal/config"
	"revhash/internal/manifest"
	"revhash/internal/output"
	"revhash/internal/storage"
)

func setupSite(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"web/index.html":          `<link href="css/site.css"><script src="js/app.js"></script><img src="img/logo.png">`,
		"web/css/site.css":        `@import "reset.css"; body { background: url(../img/logo.png) }`,
		"web/css/reset.css":       `* { margin: 0 }`,
		"web/js/app.js":           `fetch("data.json")`,
		"web/js/data.json":        `{}`,
		"web/img/logo.png":        "\x89PNG",
		"web/.DS_Store":           "junk",
		"web/public/old_aaaa.css": "stale",
	}
	for p, c := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(c), 0644))
	}
	return fs
}

func TestBuilder_Run(t *testing.T) {
	fs := setupSite(t)

	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	store, err := manifest.NewStore(db, 0)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Source = "web"
	cfg.Output = "web/public"
	cfg.Precompress = []string{"gzip"}

	b, err := New(cfg, fs, store, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, b.ExcludedDirs())

	out, err := b.Run()
	require.NoError(t, err)

	assert.Equal(t, 6, out.Ingested, "hidden files and the output dir are skipped")
	assert.Equal(t, 6, out.Emitted)
	assert.Equal(t, 5, out.Result.Report.TotalHashed)
	assert.Empty(t, out.Result.Report.Warnings)

	entries := out.Manifest.Entries
	require.Len(t, entries, 5)

	index, err := afero.ReadFile(fs, "web/public/index.html")
	require.NoError(t, err)
	for _, rel := range []string{"css/site.css", "js/app.js", "img/logo.png"} {
		assert.Contains(t, string(index), entries[rel])
	}

	site, err := afero.ReadFile(fs, "web/public/"+entries["css/site.css"])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(site), `@import "reset_`))
	assert.Contains(t, string(site), "url(../"+entries["img/logo.png"]+")")

	raw, err := afero.ReadFile(fs, "web/public/"+output.ManifestName)
	require.NoError(t, err)
	var onDisk map[string]string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, entries, onDisk)

	saved, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, out.Manifest.ID, saved.ID)
	assert.Equal(t, "web", saved.Source)

	t.Run("rebuild is deterministic", func(t *testing.T) {
		again, err := b.Run()
		require.NoError(t, err)
		assert.Equal(t, 6, again.Ingested)
		assert.Equal(t, entries, again.Manifest.Entries)
		assert.NotEqual(t, out.Manifest.ID, again.Manifest.ID)

		all, err := store.List()
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestNew_Validation(t *testing.T) {
	fs := afero.NewMemMapFs()

	tests := []struct {
		name           string
		source, output string
	}{
		{name: "no source", output: "dist"},
		{name: "no output", source: "web"},
		{name: "same dir", source: "web", output: "web/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Source, cfg.Output = tt.source, tt.output
			_, err := New(cfg, fs, nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestExcludedDirs(t *testing.T) {
	tests := []struct {
		source, output string
		want           []string
	}{
		{"web", "web/public", []string{"public"}},
		{"web", "dist", nil},
		{"web", "web/../dist", nil},
		{"site/web", "site", nil},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			b := &Builder{cfg: &config.Config{Source: tt.source, Output: tt.output}}
			assert.Equal(t, tt.want, b.ExcludedDirs())
		})
	}
}
