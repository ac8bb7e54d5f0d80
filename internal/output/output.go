// Package output writes the records of a finalized batch to disk.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"revhash/internal/asset"
	"revhash/internal/precompress"
)

// ManifestName is the file the original -> hashed path map is written to.
const ManifestName = "rev-manifest.json"

type Writer struct {
	fs         afero.Fs
	root       string
	compressor *precompress.Compressor
	logger     *zap.Logger
}

// New returns a Writer rooted at root. compressor may be nil.
func New(fs afero.Fs, root string, compressor *precompress.Compressor, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		fs:         fs,
		root:       filepath.Clean(root),
		compressor: compressor,
		logger:     logger,
	}
}

// Emit writes rec under its output path, plus any precompressed variants.
func (w *Writer) Emit(rec *asset.Record) error {
	if err := w.write(rec.OutputPath, rec.Content); err != nil {
		return err
	}

	variants, err := w.compressor.Variants(rec.OutputPath, rec.Content)
	if err != nil {
		return err
	}
	for _, v := range variants {
		if err := w.write(rec.OutputPath+v.Suffix, v.Data); err != nil {
			return err
		}
	}

	w.logger.Debug("emitted",
		zap.String("file", rec.RelativePath),
		zap.String("output", rec.OutputPath),
		zap.Int("variants", len(variants)))
	return nil
}

// EmitAll writes every record once and then the manifest. It returns the
// number of records written.
func (w *Writer) EmitAll(records []*asset.Record) (int, error) {
	for i, rec := range records {
		if err := w.Emit(rec); err != nil {
			return i, fmt.Errorf("emitting %s: %w", rec.RelativePath, err)
		}
	}

	if err := w.WriteManifest(asset.Entries(records)); err != nil {
		return len(records), err
	}
	return len(records), nil
}

// WriteManifest writes entries as indented JSON with sorted keys.
func (w *Writer) WriteManifest(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return w.write(ManifestName, append(data, '\n'))
}

// write replaces rel atomically: temp file in the same directory, then rename.
func (w *Writer) write(rel string, data []byte) error {
	target := filepath.Join(w.root, filepath.FromSlash(rel))
	if err := w.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := afero.TempFile(w.fs, filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		w.fs.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		w.fs.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", rel, err)
	}
	if err := w.fs.Chmod(tmpName, 0644); err != nil && !os.IsNotExist(err) {
		w.fs.Remove(tmpName)
		return fmt.Errorf("setting mode on %s: %w", rel, err)
	}
	if err := w.fs.Rename(tmpName, target); err != nil {
		w.fs.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", rel, err)
	}
	return nil
}
