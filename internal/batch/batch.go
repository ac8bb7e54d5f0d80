// internal/batch/batch.go
package batch

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"revhash/internal/asset"
	"revhash/internal/config"
	rherrors "revhash/internal/errors"
	"revhash/internal/hasher"
	"revhash/internal/identity"
	"revhash/internal/mimetype"
	"revhash/internal/pattern"
	"revhash/internal/resolver"
)

var ErrClosed = errors.New("batch is closed")

// Options configures one batch.
type Options struct {
	// nil means config.DefaultIgnorePatterns.
	IgnorePatterns              []string
	HashIgnoringContentPatterns []string
	NamingTemplate              string
	Salt                        string
	Algorithm                   hasher.Algorithm

	// Finder overrides how references are detected. Defaults to
	// resolver.LiteralFinder.
	Finder resolver.Finder
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IgnorePatterns:              cfg.IgnorePatterns,
		HashIgnoringContentPatterns: cfg.HashIgnoringContentPatterns,
		NamingTemplate:              cfg.NamingTemplate,
		Salt:                        cfg.Salt,
		Algorithm:                   hasher.Algorithm(cfg.Algorithm),
	}
}

// Batch holds the state of one build pass. Files are ingested one at a
// time, then Finalize resolves them all. A Batch is single use.
type Batch struct {
	registry *asset.Registry
	ignore   *pattern.Set
	hashOnly *pattern.Set
	hasher   *hasher.Hasher
	finder   resolver.Finder
	logger   *zap.Logger
	closed   bool
}

// Result is what a finalized batch hands to the emitter.
type Result struct {
	Records []*asset.Record
	Report  asset.Report
}

func New(opts Options, logger *zap.Logger) (*Batch, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IgnorePatterns == nil {
		opts.IgnorePatterns = config.DefaultIgnorePatterns
	}

	ignore, err := pattern.Compile(opts.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("compiling ignore patterns: %w", err)
	}
	hashOnly, err := pattern.Compile(opts.HashIgnoringContentPatterns)
	if err != nil {
		return nil, fmt.Errorf("compiling hash-only patterns: %w", err)
	}
	h, err := hasher.New(hasher.Options{
		Template:  opts.NamingTemplate,
		Salt:      opts.Salt,
		Algorithm: opts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("creating hasher: %w", err)
	}

	return &Batch{
		registry: asset.NewRegistry(),
		ignore:   ignore,
		hashOnly: hashOnly,
		hasher:   h,
		finder:   opts.Finder,
		logger:   logger,
	}, nil
}

// Ingest registers one file. Audio, image, multipart and video files are
// hashed immediately since they cannot reference anything.
func (b *Batch) Ingest(relPath string, content []byte) (*asset.Record, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if err := validPath(relPath); err != nil {
		return nil, err
	}

	rec := asset.NewRecord(relPath, content)
	rec.Ignored = b.ignore.Match(rec.RelativePath)
	rec.ContentRewriteSuppressed = b.hashOnly.Match(rec.RelativePath)

	if !rec.Ignored && mimetype.Classify(rec.Extension).IsOpaque() {
		name, err := b.hasher.Hash(rec)
		if err != nil {
			return nil, fmt.Errorf("ingesting %s: %w", rec.RelativePath, err)
		}
		b.logger.Debug("hashed without inspection",
			zap.String("file", rec.Name),
			zap.String("hashed", name))
	}

	b.registry.Add(rec)
	return rec, nil
}

// validPath rejects paths that do not name a file inside the batch root.
// Such a record would be keyed "." or ".." and match text in every file.
func validPath(relPath string) error {
	rel := path.Clean(strings.ReplaceAll(relPath, `\`, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return rherrors.ValidationError("invalid relative path", relPath)
	}
	return nil
}

// Finalize closes the batch, assigns unique keys and resolves every
// record that has no final name yet, longest key first.
func (b *Batch) Finalize() (*Result, error) {
	if b.closed {
		return nil, ErrClosed
	}
	b.closed = true

	if err := identity.Assign(b.registry); err != nil {
		return nil, err
	}

	res := resolver.New(b.registry, b.hasher, b.finder, b.logger)
	for _, rec := range b.registry.Records() {
		if rec.Hashed() {
			continue
		}
		if err := res.Resolve(rec); err != nil {
			return nil, fmt.Errorf("finalizing batch: %w", err)
		}
	}

	for _, rec := range b.registry.Records() {
		if !rec.Ignored && !rec.Hashed() {
			return nil, rherrors.Integrity(
				fmt.Sprintf("%s was not hashed", rec.RelativePath), rec.UniqueKey)
		}
	}

	report := asset.Report{
		TotalHashed: b.hasher.Count(),
		Warnings:    res.Warnings(),
	}
	b.logger.Info("batch finalized",
		zap.Int("files", b.registry.Len()),
		zap.Int("hashed", report.TotalHashed),
		zap.Int("warnings", len(report.Warnings)))

	return &Result{Records: b.registry.Records(), Report: report}, nil
}
