package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	from := &Manifest{Entries: map[string]string{
		"css/site.css": "css/site_aaaaaaaaaa.css",
		"js/app.js":    "js/app_bbbbbbbbbb.js",
		"js/old.js":    "js/old_cccccccccc.js",
	}}
	to := &Manifest{Entries: map[string]string{
		"css/site.css": "css/site_aaaaaaaaaa.css",
		"js/app.js":    "js/app_dddddddddd.js",
		"js/new.js":    "js/new_eeeeeeeeee.js",
	}}

	d := Diff(from, to)

	assert.Equal(t, []Change{
		{Type: Rehashed, Path: "js/app.js", Old: "js/app_bbbbbbbbbb.js", New: "js/app_dddddddddd.js"},
		{Type: Added, Path: "js/new.js", New: "js/new_eeeeeeeeee.js"},
		{Type: Removed, Path: "js/old.js", Old: "js/old_cccccccccc.js"},
	}, d.Changes)
	assert.Equal(t, 1, d.Stats.Added)
	assert.Equal(t, 1, d.Stats.Removed)
	assert.Equal(t, 1, d.Stats.Rehashed)
	assert.Equal(t, 1, d.Stats.Unchanged)
	assert.Equal(t, []string{"js/app_bbbbbbbbbb.js", "js/old_cccccccccc.js"}, d.Stale)

	assert.Equal(t, `~ js/app.js: js/app_bbbbbbbbbb.js => js/app_dddddddddd.js
+ js/new.js => js/new_eeeeeeeeee.js
- js/old.js => js/old_cccccccccc.js
1 added, 1 removed, 1 rehashed, 1 unchanged
`, d.Format())

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"stale":["js/app_bbbbbbbbbb.js","js/old_cccccccccc.js"]`)

	raw, err = json.Marshal(d.Changes[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"rehashed","path":"js/app.js","old":"js/app_bbbbbbbbbb.js","new":"js/app_dddddddddd.js"}`, string(raw))
}

func TestDiff_Identical(t *testing.T) {
	m := &Manifest{Entries: map[string]string{"a.js": "a_0123456789.js"}}
	d := Diff(m, m)

	assert.Empty(t, d.Changes)
	assert.Empty(t, d.Stale)
	assert.Equal(t, 1, d.Stats.Unchanged)
}
