// internal/precompress/precompress.go
package precompress

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	Gzip = "gzip"
	Zstd = "zstd"
)

// Suffix is the file suffix each codec's output is written under.
var Suffix = map[string]string{
	Gzip: ".gz",
	Zstd: ".zst",
}

// Options configures which emitted files get compressed siblings.
type Options struct {
	// Codecs to produce, any of Gzip and Zstd.
	Codecs []string
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 4=best) for zstd; gzip uses its default
	Level int
	// File extensions to skip compression for
	SkipExtensions []string
}

// DefaultOptions provides sensible defaults
func DefaultOptions() Options {
	return Options{
		MinSize: 1024, // 1KB
		Level:   3,
		SkipExtensions: []string{
			".zip", ".gz", ".zst", ".xz", ".bz2", ".br",
			".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif",
			".mp3", ".mp4", ".webm", ".ogg",
			".woff", ".woff2",
			".pdf",
		},
	}
}

// Variant is one compressed rendition of a file.
type Variant struct {
	Codec  string
	Suffix string
	Data   []byte
}

// Compressor produces precompressed variants of emitted files.
type Compressor struct {
	opts     Options
	encoders sync.Pool
}

func New(opts Options) (*Compressor, error) {
	for _, codec := range opts.Codecs {
		if _, ok := Suffix[codec]; !ok {
			return nil, fmt.Errorf("unknown codec %q", codec)
		}
	}
	if opts.Level == 0 {
		opts.Level = DefaultOptions().Level
	}

	// Create an encoder up front so bad options fail here, not in the pool
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	c := &Compressor{opts: opts}
	c.encoders.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
			zstd.WithEncoderConcurrency(1),
		)
		return enc
	}
	c.encoders.Put(enc)

	return c, nil
}

// Enabled reports whether any codec is configured.
func (c *Compressor) Enabled() bool {
	return c != nil && len(c.opts.Codecs) > 0
}

// ShouldCompress determines if content should be compressed
func (c *Compressor) ShouldCompress(name string, size int) bool {
	if size < c.opts.MinSize {
		return false
	}

	ext := strings.ToLower(path.Ext(name))
	for _, skipExt := range c.opts.SkipExtensions {
		if ext == skipExt {
			return false
		}
	}

	return true
}

// Variants returns one compressed rendition per configured codec, or
// none if the file is too small or already compressed.
func (c *Compressor) Variants(name string, content []byte) ([]Variant, error) {
	if !c.Enabled() || !c.ShouldCompress(name, len(content)) {
		return nil, nil
	}

	variants := make([]Variant, 0, len(c.opts.Codecs))
	for _, codec := range c.opts.Codecs {
		data, err := c.Compress(codec, content)
		if err != nil {
			return nil, fmt.Errorf("compressing %s with %s: %w", name, codec, err)
		}
		variants = append(variants, Variant{Codec: codec, Suffix: Suffix[codec], Data: data})
	}
	return variants, nil
}

// Compress encodes content with codec.
func (c *Compressor) Compress(codec string, content []byte) ([]byte, error) {
	switch codec {
	case Zstd:
		enc := c.encoders.Get().(*zstd.Encoder)
		defer c.encoders.Put(enc)
		return enc.EncodeAll(content, make([]byte, 0, len(content)/2)), nil

	case Gzip:
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(content); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("unknown codec %q", codec)
}

// Decompress decodes data produced by Compress.
func Decompress(codec string, data []byte) ([]byte, error) {
	switch codec {
	case Zstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)

	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}

	return nil, fmt.Errorf("unknown codec %q", codec)
}
