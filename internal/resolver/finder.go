package resolver

import (
	"bytes"
	"strings"

	"revhash/internal/asset"
)

// Match is one distinct spelling of a target's key found in some content.
type Match struct {
	Text string
}

// Finder locates literal references to target inside content.
type Finder interface {
	Find(content []byte, target *asset.Record) []Match
}

// LiteralFinder matches the target's unique key as plain text, in both
// slash and backslash spellings.
type LiteralFinder struct{}

func (LiteralFinder) Find(content []byte, target *asset.Record) []Match {
	var matches []Match
	for _, variant := range KeyVariants(target.UniqueKey) {
		if bytes.Contains(content, []byte(variant)) {
			matches = append(matches, Match{Text: variant})
		}
	}
	return matches
}

// KeyVariants returns key followed by its backslash-separated spelling,
// if that differs.
func KeyVariants(key string) []string {
	if key == "" {
		return nil
	}
	variants := []string{key}
	if strings.Contains(key, "/") {
		variants = append(variants, strings.ReplaceAll(key, "/", `\`))
	}
	return variants
}
