package manifest

import (
	"bytes"
	"fmt"
	"sort"
)

// ChangeType says how one source file's output moved between builds.
type ChangeType int

const (
	Added ChangeType = iota
	Removed
	Rehashed
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Rehashed:
		return "rehashed"
	}
	return "unknown"
}

func (t ChangeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ChangeType) UnmarshalText(text []byte) error {
	for _, c := range []ChangeType{Added, Removed, Rehashed} {
		if c.String() == string(text) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown change type %q", text)
}

// Change is one entry that differs between two builds.
type Change struct {
	Type ChangeType `json:"type"`
	Path string     `json:"path"`
	Old  string     `json:"old,omitempty"`
	New  string     `json:"new,omitempty"`
}

// DiffResult lists every changed entry, sorted by path. Stale holds the
// old outputs, which are safe to purge from caches once the new build is live.
type DiffResult struct {
	Changes []Change `json:"changes"`
	Stale   []string `json:"stale"`
	Stats   struct {
		Added     int `json:"added"`
		Removed   int `json:"removed"`
		Rehashed  int `json:"rehashed"`
		Unchanged int `json:"unchanged"`
	} `json:"stats"`
}

// Diff compares the entries of two builds.
func Diff(from, to *Manifest) *DiffResult {
	result := &DiffResult{Changes: []Change{}, Stale: []string{}}

	for path, out := range to.Entries {
		prev, ok := from.Entries[path]
		switch {
		case !ok:
			result.Changes = append(result.Changes, Change{Type: Added, Path: path, New: out})
			result.Stats.Added++
		case prev != out:
			result.Changes = append(result.Changes, Change{Type: Rehashed, Path: path, Old: prev, New: out})
			result.Stats.Rehashed++
		default:
			result.Stats.Unchanged++
		}
	}
	for path, prev := range from.Entries {
		if _, ok := to.Entries[path]; !ok {
			result.Changes = append(result.Changes, Change{Type: Removed, Path: path, Old: prev})
			result.Stats.Removed++
		}
	}

	sort.Slice(result.Changes, func(i, j int) bool {
		return result.Changes[i].Path < result.Changes[j].Path
	})
	for _, c := range result.Changes {
		if c.Old != "" {
			result.Stale = append(result.Stale, c.Old)
		}
	}
	return result
}

// Format returns a string representation of the diff
func (r *DiffResult) Format() string {
	var buf bytes.Buffer

	for _, c := range r.Changes {
		switch c.Type {
		case Added:
			fmt.Fprintf(&buf, "+ %s => %s\n", c.Path, c.New)
		case Removed:
			fmt.Fprintf(&buf, "- %s => %s\n", c.Path, c.Old)
		case Rehashed:
			fmt.Fprintf(&buf, "~ %s: %s => %s\n", c.Path, c.Old, c.New)
		}
	}
	fmt.Fprintf(&buf, "%d added, %d removed, %d rehashed, %d unchanged\n",
		r.Stats.Added, r.Stats.Removed, r.Stats.Rehashed, r.Stats.Unchanged)

	return buf.String()
}
