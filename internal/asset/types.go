package asset

import (
	"fmt"
	"path"
	"strings"
)

// Record is one file of the current batch.
type Record struct {
	Name         string `json:"name"`          // basename, not unique
	RelativePath string `json:"relative_path"` // slash-separated, never mutated
	Extension    string `json:"extension"`     // lower-cased, with leading dot
	Content      []byte `json:"-"`

	// UniqueKey is the text other files reference this one by. Empty until
	// the batch is disambiguated.
	UniqueKey string `json:"unique_key"`

	// FinalName is the hashed basename. Set once.
	FinalName string `json:"final_name,omitempty"`

	// OutputPath is where the record is addressable after hashing.
	OutputPath string `json:"output_path"`

	Ignored                  bool `json:"ignored"`
	ContentRewriteSuppressed bool `json:"content_rewrite_suppressed"`
}

// NewRecord builds a record for the file at relPath. Backslashes are
// normalised so the same tree produces the same keys on every platform.
func NewRecord(relPath string, content []byte) *Record {
	rel := path.Clean(strings.ReplaceAll(relPath, `\`, "/"))
	name := path.Base(rel)
	return &Record{
		Name:         name,
		RelativePath: rel,
		Extension:    strings.ToLower(path.Ext(name)),
		Content:      content,
		OutputPath:   rel,
	}
}

func (r *Record) Hashed() bool {
	return r.FinalName != ""
}

// Stem is the basename without its extension.
func (r *Record) Stem() string {
	return strings.TrimSuffix(r.Name, path.Ext(r.Name))
}

func (r *Record) String() string {
	if r.UniqueKey != "" {
		return r.UniqueKey
	}
	return r.RelativePath
}

// Warning is recorded when a reference cycle leaves a match unrewritten.
type Warning struct {
	FileName    string `json:"file_name"`
	MatchedText string `json:"matched_text"`
}

func (w Warning) String() string {
	return fmt.Sprintf("Recursion detected in file %s: %s", w.FileName, w.MatchedText)
}

// Report is the end-of-batch summary.
type Report struct {
	TotalHashed int       `json:"total_hashed"`
	Warnings    []Warning `json:"warnings"`
}

// Entries maps the relative path of every hashed record to its output path.
func Entries(records []*Record) map[string]string {
	entries := make(map[string]string, len(records))
	for _, rec := range records {
		if rec.Hashed() {
			entries[rec.RelativePath] = rec.OutputPath
		}
	}
	return entries
}
