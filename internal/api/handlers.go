// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"

	"revhash/internal/errors"
	"revhash/internal/manifest"
)

// BuildBox is the read side of the manifest store.
type BuildBox interface {
	Get(id string) (*manifest.Manifest, error)
	List() ([]*manifest.Manifest, error)
	Latest() (*manifest.Manifest, error)
}

var errHistoryDisabled = errors.NotFound("build history is disabled")

// BuildHandler serves recorded build manifests
type BuildHandler struct {
	box BuildBox
}

func NewBuildHandler(box BuildBox) *BuildHandler {
	return &BuildHandler{box: box}
}

func (h *BuildHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.box == nil {
		writeError(w, errHistoryDisabled)
		return
	}

	builds, err := h.box.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if builds == nil {
		builds = []*manifest.Manifest{}
	}

	writeJSON(w, http.StatusOK, builds)
}

func (h *BuildHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	if h.box == nil {
		writeError(w, errHistoryDisabled)
		return
	}

	var (
		m   *manifest.Manifest
		err error
	)
	if id == "latest" {
		m, err = h.box.Latest()
	} else {
		m, err = h.box.Get(id)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// Diff compares build {id} with the build named by ?to=, or the latest.
func (h *BuildHandler) Diff(w http.ResponseWriter, r *http.Request) {
	if h.box == nil {
		writeError(w, errHistoryDisabled)
		return
	}

	from, err := h.box.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var to *manifest.Manifest
	if id := r.URL.Query().Get("to"); id != "" && id != "latest" {
		to, err = h.box.Get(id)
	} else {
		to, err = h.box.Latest()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, manifest.Diff(from, to))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if e, ok := err.(*errors.Error); ok {
		writeJSON(w, e.Code, e)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
