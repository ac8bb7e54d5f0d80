package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"revhash/internal/api"
	"revhash/internal/build"
	"revhash/internal/config"
	"revhash/internal/logging"
	"revhash/internal/manifest"
	"revhash/internal/storage"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	path := os.Getenv("REVHASH_CONFIG")
	if path == "" {
		path = "config.json"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.EffectiveLogLevel())
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Initialize build history
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	store, err := manifest.NewStore(db, 0)
	if err != nil {
		logger.Fatal("failed to initialize manifest store", zap.Error(err))
	}

	fs := afero.NewOsFs()

	// Build once at startup so the served output matches the source
	if cfg.Source != "" {
		builder, err := build.New(cfg, fs, store, logger.Logger)
		if err != nil {
			logger.Fatal("failed to initialize builder", zap.Error(err))
		}
		if _, err := builder.Run(); err != nil {
			logger.Fatal("initial build failed", zap.Error(err))
		}
	}

	handler := api.NewRouter(logger, store, fs, cfg.Output)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
