// cmd/revhash/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"revhash/client"
	"revhash/internal/api"
	"revhash/internal/asset"
	"revhash/internal/build"
	"revhash/internal/config"
	"revhash/internal/logging"
	"revhash/internal/manifest"
	"revhash/internal/storage"
	"revhash/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	noStore     bool
	overrides   config.Config
	listenAddr  string
	debounce    time.Duration
	manifestFmt string
	remoteURL   string
)

var rootCmd = &cobra.Command{
	Use:   "revhash",
	Short: "revhash renames assets after their content and rewrites references to them",
	Long: `revhash gives every file of a build a content-derived name and rewrites
every textual reference between the files so that each one points at its
referenced file's final name. The output can be served with immutable,
cache-friendly names.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (.json, .jsonc, .yaml)")
	flags.StringVarP(&overrides.Source, "source", "s", "", "Source directory")
	flags.StringVarP(&overrides.Output, "output", "o", "", "Output directory")
	flags.StringSliceVar(&overrides.IgnorePatterns, "ignore", nil, "Glob patterns of files to leave unhashed; \".ext\" or a known extension such as \"html\" means **/*.ext (default **/*.html)")
	flags.StringSliceVar(&overrides.HashIgnoringContentPatterns, "hash-only", nil, "Glob patterns of files to hash without rewriting their content")
	flags.StringVar(&overrides.NamingTemplate, "template", "", "Naming template using {filename}, {hash} and {extension}")
	flags.StringVar(&overrides.Salt, "salt", "", "Value mixed into every hash")
	flags.StringVar(&overrides.Algorithm, "algorithm", "", "Digest algorithm (sha256, blake3)")
	flags.StringSliceVar(&overrides.Precompress, "precompress", nil, "Write precompressed siblings (gzip, zstd)")
	flags.StringVar(&overrides.Database.Path, "db", "", "Build history database directory")
	flags.BoolVarP(&overrides.Verbose, "verbose", "v", false, "Trace reference resolution")
	flags.BoolVar(&noStore, "no-store", false, "Do not record the build in the history database")

	var buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Hash the source tree into the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, closeDB, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			builder, err := build.New(cfg, afero.NewOsFs(), store, logger.Logger)
			if err != nil {
				return err
			}

			outcome, err := builder.Run()
			if err != nil {
				return fmt.Errorf("building: %w", err)
			}

			printReport(outcome.Result.Report)
			return nil
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever the source tree changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, closeDB, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			builder, err := build.New(cfg, afero.NewOsFs(), store, logger.Logger)
			if err != nil {
				return err
			}

			rebuild := func() error {
				outcome, err := builder.Run()
				if err != nil {
					return err
				}
				printReport(outcome.Result.Report)
				return nil
			}
			if err := rebuild(); err != nil {
				return fmt.Errorf("initial build: %w", err)
			}

			w, err := watch.New(cfg.Source, builder.ExcludedDirs(), debounce, rebuild, logger.Logger)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("watching for changes", zap.String("source", cfg.Source))
			return w.Run(ctx)
		},
	}
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before rebuilding")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the output directory and the build history API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, closeDB, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			var box api.BuildBox
			if store != nil {
				box = store
			}

			addr := listenAddr
			if addr == "" {
				addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			}
			srv := &http.Server{
				Addr:    addr,
				Handler: api.NewRouter(logger, box, afero.NewOsFs(), cfg.Output),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			logger.Info("starting server", zap.String("address", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config server.host:port)")

	var manifestCmd = &cobra.Command{
		Use:   "manifest",
		Short: "Inspect recorded builds",
	}
	manifestCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "Read history from a revhash server (e.g. http://127.0.0.1:8080)")

	var listManifestsCmd = &cobra.Command{
		Use:   "list",
		Short: "List recorded builds, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			history, closeHistory, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closeHistory()

			builds, err := history.List()
			if err != nil {
				return fmt.Errorf("listing builds: %w", err)
			}

			if len(builds) == 0 {
				fmt.Println("No builds recorded")
				return nil
			}

			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Println("\nBuilds:")
			for _, m := range builds {
				fmt.Printf("%s  %s  %d files  %s warnings\n",
					shortID(m.ID),
					m.CreatedAt.Format(time.RFC3339),
					m.TotalHashed,
					yellow(len(m.Warnings)),
				)
			}
			return nil
		},
	}

	var showManifestCmd = &cobra.Command{
		Use:   "show [build-id|latest]",
		Short: "Show the file mapping of one build",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			history, closeHistory, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closeHistory()

			var m *manifest.Manifest
			if len(args) == 0 || args[0] == "latest" {
				m, err = history.Latest()
			} else {
				m, err = findBuild(history, args[0])
			}
			if err != nil {
				return err
			}

			if manifestFmt == "json" {
				return printJSON(m)
			}

			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("Build %s (%s)\n\n", m.ID, m.CreatedAt.Format(time.RFC3339))
			keys := make([]string, 0, len(m.Entries))
			for k := range m.Entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("\t%s => %s\n", k, green(m.Entries[k]))
			}
			printReport(asset.Report{TotalHashed: m.TotalHashed, Warnings: m.Warnings})
			return nil
		},
	}
	showManifestCmd.Flags().StringVar(&manifestFmt, "format", "text", "Output format (text, json)")

	var diffManifestCmd = &cobra.Command{
		Use:   "diff <from-build-id> [to-build-id|latest]",
		Short: "Show which outputs changed between two builds",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			history, closeHistory, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closeHistory()

			from, err := findBuild(history, args[0])
			if err != nil {
				return err
			}
			var to *manifest.Manifest
			if len(args) < 2 || args[1] == "latest" {
				to, err = history.Latest()
			} else {
				to, err = findBuild(history, args[1])
			}
			if err != nil {
				return err
			}

			d, err := diffBuilds(history, from, to)
			if err != nil {
				return err
			}

			if manifestFmt == "json" {
				return printJSON(d)
			}
			fmt.Printf("%s..%s\n", shortID(from.ID), shortID(to.ID))
			fmt.Print(d.Format())
			if len(d.Stale) > 0 {
				yellow := color.New(color.FgYellow).SprintFunc()
				fmt.Println(yellow("Stale outputs:"))
				for _, out := range d.Stale {
					fmt.Println("-", out)
				}
			}
			return nil
		},
	}
	diffManifestCmd.Flags().StringVar(&manifestFmt, "format", "text", "Output format (text, json)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(manifestCmd)

	manifestCmd.AddCommand(listManifestsCmd)
	manifestCmd.AddCommand(showManifestCmd)
	manifestCmd.AddCommand(diffManifestCmd)
}

// setup loads the config file, applies flag overrides and builds a logger.
func setup(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewDevelopment(cfg.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, logger, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		return cmd.Flags().Changed(name)
	}
	if changed("source") {
		cfg.Source = overrides.Source
	}
	if changed("output") {
		cfg.Output = overrides.Output
	}
	if changed("ignore") {
		cfg.IgnorePatterns = append([]string{}, overrides.IgnorePatterns...)
	}
	if changed("hash-only") {
		cfg.HashIgnoringContentPatterns = overrides.HashIgnoringContentPatterns
	}
	if changed("template") {
		cfg.NamingTemplate = overrides.NamingTemplate
	}
	if changed("salt") {
		cfg.Salt = overrides.Salt
	}
	if changed("algorithm") {
		cfg.Algorithm = overrides.Algorithm
	}
	if changed("precompress") {
		cfg.Precompress = overrides.Precompress
	}
	if changed("db") {
		cfg.Database.Path = overrides.Database.Path
	}
	if changed("verbose") {
		cfg.Verbose = overrides.Verbose
	}
}

// openStore opens the build history database unless --no-store is set.
func openStore(cfg *config.Config) (*manifest.Store, func(), error) {
	if noStore {
		return nil, func() {}, nil
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "closing database:", err)
		}
	}

	store, err := manifest.NewStore(db, 0)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return store, closeDB, nil
}

// openHistory returns the build history to inspect: a remote server when
// --remote is set, the local database otherwise.
func openHistory(cfg *config.Config) (api.BuildBox, func(), error) {
	if remoteURL != "" {
		return client.New(remoteURL), func() {}, nil
	}

	store, closeDB, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("build history is disabled (--no-store)")
	}
	return store, closeDB, nil
}

// findBuild accepts a full build ID or a unique prefix of one.
func findBuild(history api.BuildBox, id string) (*manifest.Manifest, error) {
	if m, err := history.Get(id); err == nil {
		return m, nil
	}

	builds, err := history.List()
	if err != nil {
		return nil, err
	}
	var found *manifest.Manifest
	for _, m := range builds {
		if strings.HasPrefix(m.ID, id) {
			if found != nil {
				return nil, fmt.Errorf("build id %q is ambiguous", id)
			}
			found = m
		}
	}
	if found == nil {
		return nil, fmt.Errorf("build not found: %s", id)
	}
	return found, nil
}

// diffBuilds lets a remote server compute the diff; local history is
// diffed in process.
func diffBuilds(history api.BuildBox, from, to *manifest.Manifest) (*manifest.DiffResult, error) {
	remote, ok := history.(*client.Client)
	if !ok {
		return manifest.Diff(from, to), nil
	}
	d, err := remote.Diff(from.ID, to.ID)
	if err != nil {
		return nil, fmt.Errorf("diffing builds: %w", err)
	}
	return d, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(report asset.Report) {
	yellow := color.New(color.FgYellow).SprintFunc()
	magenta := color.New(color.FgMagenta).SprintFunc()

	if len(report.Warnings) > 0 {
		fmt.Println(yellow("WARNINGS:"))
		for _, w := range report.Warnings {
			fmt.Println("-", yellow(w.String()))
		}
	}
	fmt.Printf("revhash: %s files renamed\n", magenta(report.TotalHashed))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
