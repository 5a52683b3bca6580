package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DumpPrefix != "listens" {
		t.Errorf("got dump prefix %q, want %q", cfg.DumpPrefix, "listens")
	}
	if cfg.Storage.Type != "local" {
		t.Errorf("got storage type %q, want local", cfg.Storage.Type)
	}
	if cfg.Prefetch != 4 || cfg.Concurrency != 4 {
		t.Errorf("got prefetch=%d concurrency=%d, want 4/4", cfg.Prefetch, cfg.Concurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestResolve_FillsDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/listenvault"}
	cfg.Resolve()

	if cfg.DownloadDir != filepath.Join("/var/lib/listenvault", "downloads") {
		t.Errorf("got download dir %q", cfg.DownloadDir)
	}
	if cfg.StagingDir != filepath.Join("/var/lib/listenvault", "staging") {
		t.Errorf("got staging dir %q", cfg.StagingDir)
	}
	if cfg.Storage.Path != filepath.Join("/var/lib/listenvault", "storage") {
		t.Errorf("got storage path %q", cfg.Storage.Path)
	}
}

func TestResolve_KeepsExplicitPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data", DownloadDir: "/fast/cache"}
	cfg.Resolve()

	if cfg.DownloadDir != "/fast/cache" {
		t.Errorf("explicit download dir was overwritten: %q", cfg.DownloadDir)
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	content := `
data_dir: /srv/vault
dump_prefix: fullexport
prefetch: 8
log_level: debug
storage:
  type: s3
  s3:
    bucket: listen-dumps
    region: eu-west-1
    use_path_style: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.DataDir != "/srv/vault" || cfg.DumpPrefix != "fullexport" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Prefetch != 8 {
		t.Errorf("got prefetch %d, want 8", cfg.Prefetch)
	}
	if cfg.Storage.Type != "s3" || cfg.Storage.S3.Bucket != "listen-dumps" {
		t.Errorf("s3 config not applied: %+v", cfg.Storage)
	}
	if !cfg.Storage.S3.UsePathStyle {
		t.Error("use_path_style not applied")
	}
	// Unset keys keep defaults.
	if cfg.Concurrency != 4 {
		t.Errorf("got concurrency %d, want default 4", cfg.Concurrency)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	content := `{"data_dir": "/srv/vault", "dump_prefix": "listens"}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.DataDir != "/srv/vault" {
		t.Errorf("json values not applied: %+v", cfg)
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LISTENVAULT_DUMP_PREFIX", "env-prefix")
	t.Setenv("LISTENVAULT_PREFETCH", "12")
	t.Setenv("LISTENVAULT_STORAGE_TYPE", "s3")
	t.Setenv("LISTENVAULT_S3_BUCKET", "env-bucket")
	t.Setenv("LISTENVAULT_S3_PATH_STYLE", "1")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.DumpPrefix != "env-prefix" {
		t.Errorf("got dump prefix %q", cfg.DumpPrefix)
	}
	if cfg.Prefetch != 12 {
		t.Errorf("got prefetch %d, want 12", cfg.Prefetch)
	}
	if cfg.Storage.Type != "s3" || cfg.Storage.S3.Bucket != "env-bucket" {
		t.Errorf("s3 env not applied: %+v", cfg.Storage)
	}
	if !cfg.Storage.S3.UsePathStyle {
		t.Error("path style env not applied")
	}
}

func TestLoadFromEnv_RejectsJunkIntegers(t *testing.T) {
	cases := map[string]string{
		"LISTENVAULT_PREFETCH":    "lots",
		"LISTENVAULT_CONCURRENCY": "4x",
	}
	for envVar, junk := range cases {
		t.Run(envVar, func(t *testing.T) {
			t.Setenv(envVar, junk)

			cfg := DefaultConfig()
			err := LoadFromEnv(cfg)
			if err == nil {
				t.Fatalf("junk %s should be an error, not a kept default", envVar)
			}
			if !strings.Contains(err.Error(), envVar) {
				t.Errorf("error %q should name %s", err, envVar)
			}
		})
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"missing dump prefix", func(c *Config) { c.DumpPrefix = "" }, "dump_prefix"},
		{"bad storage type", func(c *Config) { c.Storage.Type = "gcs" }, "storage type"},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, "s3.bucket"},
		{"negative prefetch", func(c *Config) { c.Prefetch = -1 }, "prefetch"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{DataDir: filepath.Join(base, "data"), DumpPrefix: "listens", Storage: StorageConfig{Type: "local"}}
	cfg.Resolve()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.DataDir, cfg.DownloadDir, cfg.StagingDir, cfg.Storage.Path} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}
