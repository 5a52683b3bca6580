// Command listenvault inspects and queries ListenBrainz-style listen dumps
// stored in object storage.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/listenvault/listenvault/internal/catalog"
	"github.com/listenvault/listenvault/internal/config"
	"github.com/listenvault/listenvault/internal/scan"
	"github.com/listenvault/listenvault/internal/storage"
)

var (
	flagConfig   string
	flagEnvFile  string
	flagLogLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "listenvault",
		Short:         "Query time-bounded listen ranges from chronologically partitioned dumps",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (YAML or JSON)")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "env file to load before reading LISTENVAULT_* variables")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newLsCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newLatestCmd())
	root.AddCommand(newImportCmd())

	return root
}

// loadConfig builds the effective configuration: file, then env overrides.
func loadConfig() (*config.Config, error) {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if flagConfig != "" {
		loaded, err := config.LoadFromFile(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

// buildStore constructs the object storage from configuration.
func buildStore(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "local":
		return storage.NewLocalStorage(cfg.Storage.Path)
	case "s3":
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, storage.S3Config{
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// buildScanner wires catalog, source and scanner from configuration.
func buildScanner(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*scan.Scanner, error) {
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.New(store, cfg.DumpPrefix)
	source, err := scan.NewStoreSource(store, cfg.DownloadDir, cfg.Concurrency, log)
	if err != nil {
		return nil, err
	}

	opts := []scan.Option{scan.WithLogger(log)}
	if cfg.Prefetch > 0 {
		opts = append(opts, scan.WithPrefetch(source, cfg.Prefetch))
	}

	return scan.NewScanner(cat, source, opts...), nil
}

// parseTimestamp accepts a Unix timestamp or an RFC3339 time string.
func parseTimestamp(s string) (int64, error) {
	var ts int64
	if _, err := fmt.Sscanf(s, "%d", &ts); err == nil && fmt.Sprintf("%d", ts) == s {
		return ts, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q (want Unix seconds or RFC3339)", s)
	}
	return t.Unix(), nil
}
