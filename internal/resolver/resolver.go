// Package resolver rewrites references between the files of a batch and
// hashes each file once its content is final.
//
// Any file may reference any other, so there is no static order to hash
// them in. Resolve recurses into a referenced file before rewriting the
// reference to it. Hashed files are never revisited. The chain of files
// currently being resolved tells a shared dependency apart from a cycle;
// a cycle leaves the offending reference as it was and records a warning.
package resolver

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"revhash/internal/asset"
)

// Namer assigns a record its final name. *hasher.Hasher implements it.
type Namer interface {
	Hash(rec *asset.Record) (string, error)
}

type Resolver struct {
	registry *asset.Registry
	namer    Namer
	finder   Finder
	logger   *zap.Logger

	scanned  map[*asset.Record]bool
	warnings []asset.Warning
}

func New(registry *asset.Registry, namer Namer, finder Finder, logger *zap.Logger) *Resolver {
	if finder == nil {
		finder = LiteralFinder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		registry: registry,
		namer:    namer,
		finder:   finder,
		logger:   logger,
		scanned:  make(map[*asset.Record]bool),
	}
}

// Resolve rewrites rec's references and hashes it unless it is ignored.
// Calling it again for the same record does nothing.
func (r *Resolver) Resolve(rec *asset.Record) error {
	return r.resolve(rec, []*asset.Record{rec})
}

// Warnings returns the cycles found so far, in discovery order.
func (r *Resolver) Warnings() []asset.Warning {
	return r.warnings
}

func (r *Resolver) resolve(rec *asset.Record, chain []*asset.Record) error {
	if rec.Hashed() || r.scanned[rec] {
		return nil
	}
	r.scanned[rec] = true

	log := r.logger.With(zap.String("file", rec.String()), zap.Int("depth", len(chain)-1))
	log.Debug("inspecting")

	if !rec.ContentRewriteSuppressed {
		if err := r.rewrite(rec, chain, log); err != nil {
			return err
		}
	}

	if rec.Ignored {
		return nil
	}

	name, err := r.namer.Hash(rec)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", rec.RelativePath, err)
	}
	log.Debug("hashed", zap.String("hashed", name))
	return nil
}

func (r *Resolver) rewrite(rec *asset.Record, chain []*asset.Record, log *zap.Logger) error {
	content := rec.Content
	modified := false

	for _, target := range r.registry.Records() {
		if target == rec || target.Ignored {
			continue
		}

		matches := r.finder.Find(content, target)
		if len(matches) == 0 {
			continue
		}

		// All spellings of a target are skipped together on a cycle.
		if inChain(chain, target) {
			w := asset.Warning{FileName: target.Name, MatchedText: matchedText(matches)}
			r.warnings = append(r.warnings, w)
			log.Warn("reference cycle", zap.String("target", target.Name), zap.String("matched", w.MatchedText))
			continue
		}

		if !target.Hashed() {
			next := make([]*asset.Record, len(chain), len(chain)+1)
			copy(next, chain)
			if err := r.resolve(target, append(next, target)); err != nil {
				return err
			}
		}
		if !target.Hashed() {
			return fmt.Errorf("resolving %s: target %s was not hashed", rec.RelativePath, target.UniqueKey)
		}

		replacement := []byte(ReferenceFor(target))
		for _, m := range matches {
			content = bytes.ReplaceAll(content, []byte(m.Text), replacement)
		}
		modified = true
		log.Debug("rewrote", zap.String("key", target.UniqueKey), zap.String("hashed", target.FinalName))
	}

	if modified {
		rec.Content = content
		log.Debug("all mods saved")
	} else {
		log.Debug("nothing to replace")
	}
	return nil
}

// ReferenceFor is the text that replaces target's key: its final name
// under the key's directory portion, slash-separated.
func ReferenceFor(target *asset.Record) string {
	return path.Join(path.Dir(target.UniqueKey), target.FinalName)
}

func inChain(chain []*asset.Record, target *asset.Record) bool {
	for _, c := range chain {
		if c.UniqueKey == target.UniqueKey {
			return true
		}
	}
	return false
}

func matchedText(matches []Match) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}
	return strings.Join(texts, ", ")
}
