package api

import (
	"net/http"

	"github.com/spf13/afero"

	"revhash/internal/logging"
	"revhash/internal/middleware"
)

const AssetPrefix = "/assets/"

// NewRouter wires the health check, build API and asset server.
func NewRouter(logger *logging.Logger, box BuildBox, fs afero.Fs, outputDir string) http.Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	builds := NewBuildHandler(box)

	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("GET /health", healthCheck)

	// Build endpoints
	mux.HandleFunc("GET /api/builds", builds.List)
	mux.HandleFunc("GET /api/builds/{id}", builds.Get)
	mux.HandleFunc("GET /api/builds/{id}/diff", builds.Diff)

	mux.Handle(AssetPrefix, NewAssetHandler(fs, outputDir, AssetPrefix, box))

	return middleware.Chain(
		mux,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.RequestID,
	)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}
