// Package mimetype maps file extensions to coarse MIME categories.
package mimetype

import (
	"mime"
	"strings"
)

// Category is the top-level MIME type, e.g. "image" for "image/png".
type Category string

const (
	Unknown     Category = ""
	Application Category = "application"
	Audio       Category = "audio"
	Font        Category = "font"
	Image       Category = "image"
	Multipart   Category = "multipart"
	Text        Category = "text"
	Video       Category = "video"
)

// builtin pins the common web asset types so classification does not
// depend on the host's mime.types files.
var builtin = map[string]string{
	".aac":   "audio/aac",
	".avif":  "image/avif",
	".bmp":   "image/bmp",
	".css":   "text/css",
	".flac":  "audio/flac",
	".gif":   "image/gif",
	".htm":   "text/html",
	".html":  "text/html",
	".ico":   "image/x-icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "application/javascript",
	".json":  "application/json",
	".m4a":   "audio/mp4",
	".map":   "application/json",
	".mjs":   "application/javascript",
	".mkv":   "video/x-matroska",
	".mov":   "video/quicktime",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".oga":   "audio/ogg",
	".ogg":   "audio/ogg",
	".ogv":   "video/ogg",
	".otf":   "font/otf",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".ttf":   "font/ttf",
	".txt":   "text/plain",
	".wasm":  "application/wasm",
	".wav":   "audio/wav",
	".weba":  "audio/webm",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".xml":   "application/xml",
}

// TypeByExtension returns the MIME type for ext ("png" or ".png"), or "".
func TypeByExtension(ext string) string {
	if ext == "" {
		return ""
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if t, ok := builtin[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// Classify returns the top-level category for ext.
func Classify(ext string) Category {
	t := TypeByExtension(ext)
	if t == "" {
		return Unknown
	}
	top, _, _ := strings.Cut(t, "/")
	return Category(top)
}

// IsOpaque reports whether files of this category cannot carry textual
// references and can be hashed as soon as they arrive.
func (c Category) IsOpaque() bool {
	switch c {
	case Audio, Image, Multipart, Video:
		return true
	}
	return false
}
