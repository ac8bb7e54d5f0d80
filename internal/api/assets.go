package api

import (
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"revhash/internal/mimetype"
	"revhash/internal/precompress"
)

const (
	immutableCache = "public, max-age=31536000, immutable"
	revalidate     = "no-cache"
)

// AssetHandler serves the output directory. Hashed outputs of the latest
// build are served as immutable; everything else must be revalidated.
// Precompressed siblings are served when the client accepts them.
type AssetHandler struct {
	fs     afero.Fs
	root   string
	prefix string
	box    BuildBox
}

func NewAssetHandler(fs afero.Fs, root, prefix string, box BuildBox) *AssetHandler {
	return &AssetHandler{fs: fs, root: root, prefix: prefix, box: box}
}

func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(r.URL.Path, h.prefix)), "/")
	if rel == "" {
		http.NotFound(w, r)
		return
	}

	file := filepath.Join(h.root, filepath.FromSlash(rel))
	info, err := h.fs.Stat(file)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl(rel))
	if ct := mimetype.TypeByExtension(path.Ext(rel)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Add("Vary", "Accept-Encoding")

	accept := r.Header.Get("Accept-Encoding")
	for _, codec := range []string{precompress.Zstd, precompress.Gzip} {
		if !acceptsEncoding(accept, codec) {
			continue
		}
		variant := file + precompress.Suffix[codec]
		if vi, err := h.fs.Stat(variant); err == nil && !vi.IsDir() {
			w.Header().Set("Content-Encoding", codec)
			h.serve(w, r, variant)
			return
		}
	}

	h.serve(w, r, file)
}

func (h *AssetHandler) serve(w http.ResponseWriter, r *http.Request, name string) {
	f, err := h.fs.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *AssetHandler) cacheControl(rel string) string {
	if h.box == nil {
		return revalidate
	}
	m, err := h.box.Latest()
	if err != nil || !m.IsOutput(rel) {
		return revalidate
	}
	return immutableCache
}

func acceptsEncoding(header, codec string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), codec) {
			continue
		}
		q, ok := strings.CutPrefix(strings.TrimSpace(params), "q=")
		if !ok {
			return true
		}
		weight, err := strconv.ParseFloat(q, 64)
		return err == nil && weight > 0
	}
	return false
}
