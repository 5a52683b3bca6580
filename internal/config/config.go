// Package config provides unified configuration for the listenvault tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the dump store and local working dirs.
type Config struct {
	// DataDir is the base directory for all local working files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// DumpPrefix is the path of the dump directory within the store
	DumpPrefix string `json:"dump_prefix" yaml:"dump_prefix"`

	// DownloadDir is the directory partition files are downloaded into
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// StagingDir is the directory ingest builds partition files in
	StagingDir string `json:"staging_dir" yaml:"staging_dir"`

	// Prefetch is how many partitions a scan warms into the download
	// cache before merging. 0 disables prefetch.
	Prefetch int `json:"prefetch" yaml:"prefetch"`

	// Concurrency bounds parallel prefetch downloads
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// LogLevel is the zerolog level name (debug, info, warn, error)
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir:     "./data/listenvault",
		DumpPrefix:  "listens",
		Prefetch:    4,
		Concurrency: 4,
		LogLevel:    "info",
		Storage: StorageConfig{
			Type: "local",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/listenvault"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.DownloadDir == "" {
		c.DownloadDir = filepath.Join(c.DataDir, "downloads")
	}
	if c.StagingDir == "" {
		c.StagingDir = filepath.Join(c.DataDir, "staging")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.DumpPrefix == "" {
		return fmt.Errorf("dump_prefix is required")
	}
	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("prefetch must not be negative, got %d", c.Prefetch)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the LISTENVAULT_ prefix. A non-integer value in
// a numeric variable is an error rather than a silently kept default.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("LISTENVAULT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LISTENVAULT_DUMP_PREFIX"); v != "" {
		cfg.DumpPrefix = v
	}
	if v := os.Getenv("LISTENVAULT_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
	if v := os.Getenv("LISTENVAULT_STAGING_DIR"); v != "" {
		cfg.StagingDir = v
	}
	if v := os.Getenv("LISTENVAULT_PREFETCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LISTENVAULT_PREFETCH %q: %w", v, err)
		}
		cfg.Prefetch = n
	}
	if v := os.Getenv("LISTENVAULT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LISTENVAULT_CONCURRENCY %q: %w", v, err)
		}
		cfg.Concurrency = n
	}
	if v := os.Getenv("LISTENVAULT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LISTENVAULT_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("LISTENVAULT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("LISTENVAULT_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("LISTENVAULT_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("LISTENVAULT_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("LISTENVAULT_S3_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = v == "true" || v == "1"
	}
	return nil
}

// EnsureDirectories creates all required local directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.DownloadDir, c.StagingDir}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
