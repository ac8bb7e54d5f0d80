// Package source feeds a directory tree into a batch.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"revhash/internal/asset"
)

// Ingester receives files one at a time. *batch.Batch implements it.
type Ingester interface {
	Ingest(relPath string, content []byte) (*asset.Record, error)
}

// Options controls which entries are walked.
type Options struct {
	// Exclude lists directories, relative to the root, that are skipped
	// entirely, e.g. an output directory nested inside the source.
	Exclude []string
}

// Walk reads every regular file under root in lexical order and passes
// it to in with its slash-separated path relative to root. Hidden files
// and directories are skipped. It returns the number of files ingested.
func Walk(fs afero.Fs, root string, in Ingester, opts Options) (int, error) {
	root = filepath.Clean(root)
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, dir := range opts.Exclude {
		exclude[filepath.ToSlash(filepath.Clean(dir))] = true
	}

	count := 0
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if exclude[rel] || isHidden(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || isHidden(info.Name()) {
			return nil
		}

		content, err := afero.ReadFile(fs, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		if _, err := in.Ingest(rel, content); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("walking %s: %w", root, err)
	}

	return count, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
