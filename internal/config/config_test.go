package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }, "fetcher.type"},
		{"source fetcher", func(c *Config) { c.Sources.Kakaku.Fetcher = "curl" }, "sources.kakaku.fetcher"},
		{"negative delay", func(c *Config) { c.Sources.Zenn.Delay = -time.Second }, "sources.zenn.delay"},
		{"empty queries", func(c *Config) { c.Sources.Hatena.Queries = nil }, "sources.hatena.queries"},
		{"explored backend", func(c *Config) { c.Explored.Backend = "etcd" }, "explored.backend"},
		{"redis addr", func(c *Config) { c.Explored.Backend = "redis"; c.Explored.RedisAddr = "" }, "redis_addr"},
		{"amazon default", func(c *Config) { c.Collect.DefaultAmazon = 101 }, "default_amazon"},
		{"associate tag", func(c *Config) { c.Affiliate.AssociateTag = "" }, "associate_tag"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 0 }, "metrics.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestPageFetcher(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.PageFetcher(cfg.Sources.Note); got != "browser" {
		t.Errorf("note fetcher = %q, want browser", got)
	}
	if got := cfg.PageFetcher(cfg.Sources.Hatena); got != "http" {
		t.Errorf("hatena fetcher = %q, want http", got)
	}

	cfg.Fetcher.Type = "browser"
	cfg.Sources.Note.Fetcher = "http"
	if got := cfg.PageFetcher(cfg.Sources.Kakaku); got != "browser" {
		t.Errorf("kakaku fetcher = %q, want the fetcher.type default", got)
	}
	if got := cfg.PageFetcher(cfg.Sources.Note); got != "http" {
		t.Errorf("note fetcher = %q, want its own setting", got)
	}
}

func TestDisabledSourceMayHaveNoQueries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources.Zenn.Enabled = false
	cfg.Sources.Zenn.Queries = nil
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled source should not need queries: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deskrank.yaml")
	content := `
paths:
  catalog: /tmp/items.json
sources:
  zenn:
    delay: 250ms
    queries: ["キーボード"]
explored:
  backend: memory
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Catalog != "/tmp/items.json" {
		t.Errorf("catalog path = %q", cfg.Paths.Catalog)
	}
	if cfg.Sources.Zenn.Delay != 250*time.Millisecond {
		t.Errorf("zenn delay = %v", cfg.Sources.Zenn.Delay)
	}
	if len(cfg.Sources.Zenn.Queries) != 1 || cfg.Sources.Zenn.Queries[0] != "キーボード" {
		t.Errorf("zenn queries = %v", cfg.Sources.Zenn.Queries)
	}
	if cfg.Explored.Backend != "memory" {
		t.Errorf("explored backend = %q", cfg.Explored.Backend)
	}
	// untouched keys keep their defaults
	if cfg.Sources.Hatena.Delay != 2*time.Second {
		t.Errorf("hatena delay = %v, want default 2s", cfg.Sources.Hatena.Delay)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadReadsUnprefixedAPIKey(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("NEXT_PUBLIC_AMAZON_ASSOCIATE_TAG", "mytag-22")

	path := filepath.Join(t.TempDir(), "deskrank.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Credentials.YouTubeAPIKey != "yt-key" {
		t.Errorf("youtube key = %q", cfg.Credentials.YouTubeAPIKey)
	}
	if cfg.Affiliate.AssociateTag != "mytag-22" {
		t.Errorf("associate tag = %q", cfg.Affiliate.AssociateTag)
	}
}
