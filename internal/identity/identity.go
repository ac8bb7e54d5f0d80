// Package identity gives every record of a batch a key that other files
// can reference it by. Files with a unique basename are keyed by that
// basename; files sharing one are keyed by the shortest path suffix that
// tells them apart.
package identity

import (
	"fmt"
	"strings"

	"revhash/internal/asset"
	"revhash/internal/errors"
)

// Assign keys every record in reg and sorts reg longest key first. It
// fails with an integrity error if two non-ignored records end up with
// the same key.
func Assign(reg *asset.Registry) error {
	groups := make(map[string][]*asset.Record)
	var order []string
	for _, rec := range reg.Records() {
		if _, ok := groups[rec.Name]; !ok {
			order = append(order, rec.Name)
		}
		groups[rec.Name] = append(groups[rec.Name], rec)
	}

	for _, name := range order {
		members := groups[name]
		if len(members) == 1 {
			members[0].UniqueKey = name
			continue
		}
		for i, key := range Suffixes(paths(members)) {
			members[i].UniqueKey = key
		}
	}

	if err := checkUnique(reg); err != nil {
		return err
	}

	reg.Sort()
	return nil
}

// Suffixes strips the leading path segments shared by every path, in
// lockstep, and returns what remains of each.
func Suffixes(relPaths []string) []string {
	split := make([][]string, len(relPaths))
	for i, p := range relPaths {
		split[i] = strings.Split(p, "/")
	}

	for sharedLead(split) {
		for i := range split {
			split[i] = split[i][1:]
		}
	}

	keys := make([]string, len(split))
	for i, segs := range split {
		keys[i] = strings.Join(segs, "/")
	}
	return keys
}

// sharedLead reports whether every path has more than one segment left
// and all of them start with the same one.
func sharedLead(split [][]string) bool {
	if len(split) == 0 {
		return false
	}
	for _, segs := range split {
		if len(segs) <= 1 || segs[0] != split[0][0] {
			return false
		}
	}
	return true
}

func paths(records []*asset.Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.RelativePath
	}
	return out
}

func checkUnique(reg *asset.Registry) error {
	seen := make(map[string]*asset.Record)
	for _, rec := range reg.Records() {
		if rec.Ignored {
			continue
		}
		if prev, ok := seen[rec.UniqueKey]; ok {
			return errors.Integrity(
				fmt.Sprintf("duplicate unique key %q", rec.UniqueKey),
				[]string{prev.RelativePath, rec.RelativePath},
			)
		}
		seen[rec.UniqueKey] = rec
	}
	return nil
}
