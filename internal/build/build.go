// internal/build/build.go
package build

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"revhash/internal/batch"
	"revhash/internal/config"
	"revhash/internal/manifest"
	"revhash/internal/output"
	"revhash/internal/precompress"
	"revhash/internal/source"
)

// Builder runs complete build passes. Every Run uses a fresh batch, so
// nothing leaks from one build into the next.
type Builder struct {
	fs         afero.Fs
	cfg        *config.Config
	store      *manifest.Store
	compressor *precompress.Compressor
	logger     *zap.Logger
}

// Outcome describes one finished build.
type Outcome struct {
	Result   *batch.Result
	Manifest *manifest.Manifest
	Ingested int
	Emitted  int
	Duration time.Duration
}

// New creates a Builder. store may be nil, in which case manifests are
// only written to the output directory.
func New(cfg *config.Config, fs afero.Fs, store *manifest.Store, logger *zap.Logger) (*Builder, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("source directory is required")
	}
	if cfg.Output == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if filepath.Clean(cfg.Source) == filepath.Clean(cfg.Output) {
		return nil, fmt.Errorf("output directory must differ from source")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	copts := precompress.DefaultOptions()
	copts.Codecs = cfg.Precompress
	compressor, err := precompress.New(copts)
	if err != nil {
		return nil, fmt.Errorf("initializing precompression: %w", err)
	}

	return &Builder{
		fs:         fs,
		cfg:        cfg,
		store:      store,
		compressor: compressor,
		logger:     logger,
	}, nil
}

func (b *Builder) Run() (*Outcome, error) {
	start := time.Now()

	bt, err := batch.New(batch.OptionsFromConfig(b.cfg), b.logger)
	if err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	ingested, err := source.Walk(b.fs, b.cfg.Source, bt, source.Options{
		Exclude: b.ExcludedDirs(),
	})
	if err != nil {
		return nil, fmt.Errorf("ingesting: %w", err)
	}

	result, err := bt.Finalize()
	if err != nil {
		return nil, err
	}

	w := output.New(b.fs, b.cfg.Output, b.compressor, b.logger)
	emitted, err := w.EmitAll(result.Records)
	if err != nil {
		return nil, fmt.Errorf("emitting: %w", err)
	}

	m := manifest.New(result.Records, result.Report)
	m.Source = b.cfg.Source
	m.Salt = b.cfg.Salt
	m.Algorithm = b.cfg.Algorithm
	if b.store != nil {
		if err := b.store.Save(m); err != nil {
			return nil, err
		}
	}

	outcome := &Outcome{
		Result:   result,
		Manifest: m,
		Ingested: ingested,
		Emitted:  emitted,
		Duration: time.Since(start),
	}
	b.logger.Info("build complete",
		zap.String("build_id", m.ID),
		zap.Int("ingested", ingested),
		zap.Int("hashed", result.Report.TotalHashed),
		zap.Int("warnings", len(result.Report.Warnings)),
		zap.Duration("duration", outcome.Duration))

	return outcome, nil
}

// ExcludedDirs returns the output directory relative to the source when
// it lives inside it, so previous builds are never ingested.
func (b *Builder) ExcludedDirs() []string {
	rel, err := filepath.Rel(filepath.Clean(b.cfg.Source), filepath.Clean(b.cfg.Output))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{rel}
}
